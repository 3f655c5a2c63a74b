// Package classify turns the structured result of one physical attempt into
// an outcome category. Classification is a pure function so it stays unit
// testable without any real network call.
package classify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vthibault/annonce/internal/core/domain"
)

// DefaultChallengeMarkers match the Datadome interstitials the upstream is
// known to serve, sometimes behind an HTTP 200.
var DefaultChallengeMarkers = []string{
	"datadome",
	"captcha-delivery.com",
	"you have been blocked",
	"access denied",
}

// Classifier inspects attempt results. Markers extend the challenge-page
// detection without a rebuild.
type Classifier struct {
	markers []string
}

// New creates a classifier. An empty marker list falls back to the defaults.
func New(markers []string) *Classifier {
	if len(markers) == 0 {
		markers = DefaultChallengeMarkers
	}
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return &Classifier{markers: lowered}
}

// Classify applies the outcome rules in priority order:
//
//  1. transport failure            -> transient network error
//  2. 403, or 200 challenge body   -> blocked by protection
//  3. 404, or absent-resource body -> not found
//  4. other 4xx                    -> client error
//  5. 2xx with parseable payload   -> success
//  6. anything else                -> unexpected error
func (c *Classifier) Classify(res domain.Result) domain.Outcome {
	if res.Err != nil {
		return domain.OutcomeTransientNetwork
	}

	switch {
	case res.StatusCode == http.StatusForbidden:
		return domain.OutcomeBlockedByProtection
	case res.StatusCode == http.StatusOK && c.isChallengeBody(res):
		return domain.OutcomeBlockedByProtection
	}

	if res.StatusCode == http.StatusNotFound || isAbsentBody(res) {
		return domain.OutcomeNotFound
	}

	if res.StatusCode >= 400 && res.StatusCode < 500 {
		return domain.OutcomeClientError
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 && json.Valid(res.Body) {
		return domain.OutcomeSuccess
	}

	return domain.OutcomeUnexpected
}

// isChallengeBody recognizes a block disguised as a normal response. Datadome
// answers either a small JSON document pointing at its captcha delivery URL,
// or an HTML interstitial whose title/text carries a marker.
func (c *Classifier) isChallengeBody(res domain.Result) bool {
	if len(res.Body) == 0 {
		return false
	}

	var probe struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(res.Body, &probe); err == nil && probe.URL != "" {
		if c.matches(probe.URL) {
			return true
		}
	}

	if looksLikeHTML(res) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
		if err != nil {
			return false
		}
		title := strings.ToLower(doc.Find("title").Text())
		return c.matches(title)
	}

	return false
}

func (c *Classifier) matches(s string) bool {
	s = strings.ToLower(s)
	for _, m := range c.markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func looksLikeHTML(res domain.Result) bool {
	if strings.Contains(res.ContentType, "text/html") {
		return true
	}
	trimmed := bytes.TrimSpace(res.Body)
	return bytes.HasPrefix(trimmed, []byte("<!")) || bytes.HasPrefix(trimmed, []byte("<html"))
}

// isAbsentBody recognizes a well-formed "resource absent" payload served with
// a non-404 status.
func isAbsentBody(res domain.Result) bool {
	if res.StatusCode < 200 || res.StatusCode >= 300 || len(res.Body) == 0 {
		return false
	}
	var probe struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(res.Body, &probe); err != nil {
		return false
	}
	return probe.Code == "NOT_FOUND"
}
