package domain

import "time"

// Outcome is the classification of one physical attempt.
type Outcome string

const (
	OutcomeSuccess             Outcome = "success"
	OutcomeBlockedByProtection Outcome = "blocked_by_protection"
	OutcomeNotFound            Outcome = "not_found"
	OutcomeTransientNetwork    Outcome = "transient_network_error"
	OutcomeClientError         Outcome = "client_error"
	OutcomeUnexpected          Outcome = "unexpected_error"
)

// Retryable reports whether an attempt with this outcome may be retried.
// NotFound and ClientError are deterministic given the request; Unexpected
// fails closed rather than looping on an unknown response shape.
func (o Outcome) Retryable() bool {
	return o == OutcomeBlockedByProtection || o == OutcomeTransientNetwork
}

// ErrKind buckets transport-level failures for classification and diagnostics.
type ErrKind string

const (
	ErrKindNone       ErrKind = ""
	ErrKindTimeout    ErrKind = "timeout"
	ErrKindDNS        ErrKind = "dns"
	ErrKindConnection ErrKind = "connection"
	ErrKindOther      ErrKind = "other"
)

// Result is the structured outcome of one physical HTTP attempt, as seen by
// the classifier. Either Err is set (transport failure) or StatusCode/Body are.
type Result struct {
	StatusCode  int
	Body        []byte
	ContentType string
	Err         error
	ErrKind     ErrKind
}

// AttemptRecord is the ephemeral trail of one physical attempt inside a
// logical call. It exists for diagnostics and the journal, nothing on the hot
// path reads it back.
type AttemptRecord struct {
	Attempt    int
	Identity   Identity
	Proxy      *ProxyEndpoint
	StartedAt  time.Time
	Outcome    Outcome
	HTTPStatus int
	ErrKind    ErrKind
}
