package classify

import (
	"errors"
	"testing"

	"github.com/vthibault/annonce/internal/core/domain"
)

func TestClassify(t *testing.T) {
	c := New(nil)

	tests := []struct {
		name   string
		res    domain.Result
		expect domain.Outcome
	}{
		{
			"transport error wins over everything",
			domain.Result{Err: errors.New("connection refused"), ErrKind: domain.ErrKindConnection},
			domain.OutcomeTransientNetwork,
		},
		{
			"timeout",
			domain.Result{Err: errors.New("context deadline exceeded"), ErrKind: domain.ErrKindTimeout},
			domain.OutcomeTransientNetwork,
		},
		{
			"403 forbidden",
			domain.Result{StatusCode: 403, Body: []byte(`{}`)},
			domain.OutcomeBlockedByProtection,
		},
		{
			"datadome json behind 200",
			domain.Result{StatusCode: 200, Body: []byte(`{"url":"https://geo.captcha-delivery.com/captcha/?initialCid=abc"}`)},
			domain.OutcomeBlockedByProtection,
		},
		{
			"datadome html interstitial behind 200",
			domain.Result{
				StatusCode:  200,
				ContentType: "text/html",
				Body:        []byte(`<html><head><title>You have been blocked</title></head><body></body></html>`),
			},
			domain.OutcomeBlockedByProtection,
		},
		{
			"404",
			domain.Result{StatusCode: 404, Body: []byte(`{"error":"not found"}`)},
			domain.OutcomeNotFound,
		},
		{
			"absent resource behind 200",
			domain.Result{StatusCode: 200, Body: []byte(`{"code":"NOT_FOUND"}`)},
			domain.OutcomeNotFound,
		},
		{
			"plain 4xx",
			domain.Result{StatusCode: 422, Body: []byte(`{"error":"bad payload"}`)},
			domain.OutcomeClientError,
		},
		{
			"2xx with json payload",
			domain.Result{StatusCode: 200, Body: []byte(`{"total":12,"ads":[]}`)},
			domain.OutcomeSuccess,
		},
		{
			"2xx with malformed body",
			domain.Result{StatusCode: 200, ContentType: "application/json", Body: []byte(`{"total":`)},
			domain.OutcomeUnexpected,
		},
		{
			"5xx",
			domain.Result{StatusCode: 503, Body: []byte(`{}`)},
			domain.OutcomeUnexpected,
		},
		{
			"ordinary url field is not a challenge",
			domain.Result{StatusCode: 200, Body: []byte(`{"url":"https://www.leboncoin.fr/ad/123"}`)},
			domain.OutcomeSuccess,
		},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.res); got != tt.expect {
			t.Errorf("%s: Classify() = %v, want %v", tt.name, got, tt.expect)
		}
	}
}

func TestCustomMarkers(t *testing.T) {
	c := New([]string{"maintenance-wall"})

	res := domain.Result{
		StatusCode:  200,
		ContentType: "text/html",
		Body:        []byte(`<html><head><title>Maintenance-Wall Check</title></head></html>`),
	}
	if got := c.Classify(res); got != domain.OutcomeBlockedByProtection {
		t.Errorf("custom marker not honored, got %v", got)
	}

	// Default markers are replaced, not appended.
	res.Body = []byte(`<html><head><title>You have been blocked</title></head></html>`)
	if got := c.Classify(res); got == domain.OutcomeBlockedByProtection {
		t.Errorf("default marker should not match with custom list")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		outcome domain.Outcome
		expect  bool
	}{
		{domain.OutcomeBlockedByProtection, true},
		{domain.OutcomeTransientNetwork, true},
		{domain.OutcomeSuccess, false},
		{domain.OutcomeNotFound, false},
		{domain.OutcomeClientError, false},
		{domain.OutcomeUnexpected, false},
	}
	for _, tt := range tests {
		if got := tt.outcome.Retryable(); got != tt.expect {
			t.Errorf("%s.Retryable() = %v, want %v", tt.outcome, got, tt.expect)
		}
	}
}
