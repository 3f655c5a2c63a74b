// Package upstream is the read-only marketplace client. It builds the finder
// API requests and hands them to the dispatcher; everything about pacing,
// identity, classification and retries lives below in the guard layer.
// Payloads come back as raw JSON: deep data-model mapping is the façade
// caller's business.
package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vthibault/annonce/internal/core/domain"
)

// Dispatcher resolves one logical request to a payload or a typed failure.
type Dispatcher interface {
	Execute(ctx context.Context, spec domain.RequestSpec) ([]byte, error)
}

// Client fetches search results, ads and user profiles.
type Client struct {
	dispatcher Dispatcher
	baseURL    string
	timeout    time.Duration
}

// New creates a client. baseURL defaults to the public API host.
func New(d Dispatcher, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.leboncoin.fr"
	}
	return &Client{dispatcher: d, baseURL: baseURL, timeout: timeout}
}

// Search runs a finder query and returns the raw result document.
func (c *Client) Search(ctx context.Context, q SearchQuery) (json.RawMessage, error) {
	payload, err := json.Marshal(q.payload())
	if err != nil {
		return nil, fmt.Errorf("encode search payload: %w", err)
	}

	return c.dispatcher.Execute(ctx, domain.RequestSpec{
		Operation: "search",
		Method:    "POST",
		URL:       c.baseURL + "/finder/search",
		Body:      payload,
		Timeout:   c.timeout,
		CacheKey:  "search:" + fingerprint(payload),
	})
}

// SearchRaw posts a caller-built finder payload unchanged, for filters the
// typed query does not model.
func (c *Client) SearchRaw(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return c.dispatcher.Execute(ctx, domain.RequestSpec{
		Operation: "search",
		Method:    "POST",
		URL:       c.baseURL + "/finder/search",
		Body:      payload,
		Timeout:   c.timeout,
		CacheKey:  "search:" + fingerprint(payload),
	})
}

// Ad fetches one classified ad by ID.
func (c *Client) Ad(ctx context.Context, id string) (json.RawMessage, error) {
	return c.dispatcher.Execute(ctx, domain.RequestSpec{
		Operation: "ad",
		Method:    "GET",
		URL:       fmt.Sprintf("%s/finder/classified/%s", c.baseURL, id),
		Timeout:   c.timeout,
		CacheKey:  "ad:" + id,
	})
}

// User fetches one user profile by ID.
func (c *Client) User(ctx context.Context, id string) (json.RawMessage, error) {
	return c.dispatcher.Execute(ctx, domain.RequestSpec{
		Operation: "user",
		Method:    "GET",
		URL:       fmt.Sprintf("%s/users/%s", c.baseURL, id),
		Timeout:   c.timeout,
		CacheKey:  "user:" + id,
	})
}

func fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}
