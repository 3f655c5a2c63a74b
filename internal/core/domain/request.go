package domain

import "time"

// RequestSpec describes one logical upstream call. The dispatcher may turn it
// into several physical attempts.
type RequestSpec struct {
	// Operation names the logical call for logs, metrics and the journal
	// (e.g. "search", "ad", "user").
	Operation string

	Method string
	URL    string
	// Body is sent as-is with Content-Type application/json when non-nil.
	Body []byte

	// Timeout bounds each physical attempt. Zero means the executor default.
	Timeout time.Duration

	// CacheKey enables response caching when non-empty and a cache is wired.
	CacheKey string
}
