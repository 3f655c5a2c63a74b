package domain

import "fmt"

// BlockedError means the upstream's anti-bot protection rejected every attempt.
type BlockedError struct {
	Attempts int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by upstream protection after %d attempts", e.Attempts)
}

// NotFoundError means the requested resource does not exist upstream.
// It is terminal on the first attempt, no retry happens.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return "resource not found upstream"
	}
	return fmt.Sprintf("%s not found upstream", e.Resource)
}

// NetworkError means transient transport failures exhausted every attempt.
type NetworkError struct {
	Attempts int
	Last     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure after %d attempts: %v", e.Attempts, e.Last)
}

func (e *NetworkError) Unwrap() error { return e.Last }

// ClientRequestError is a non-retryable 4xx other than not-found or blocked.
type ClientRequestError struct {
	Status int
}

func (e *ClientRequestError) Error() string {
	return fmt.Sprintf("upstream rejected request with status %d", e.Status)
}

// UnexpectedResponseError means the response matched no known shape.
type UnexpectedResponseError struct {
	Status int
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected upstream response (status %d)", e.Status)
}

// ConfigValidationError rejects an administrative policy update that violates
// an invariant.
type ConfigValidationError struct {
	Field  string
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
