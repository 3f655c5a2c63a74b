// Package policy holds the runtime-mutable protection policy: the pacing
// bounds, attempt limit and backoff base read by the rate governor and the
// retry controller. The live policy is an atomically swapped immutable
// snapshot, never mutated field by field, so concurrent readers can never
// observe a torn mix of old and new bounds.
package policy

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vthibault/annonce/internal/core/domain"
)

// Policy is one immutable snapshot of the tunable protection settings.
type Policy struct {
	MinDelaySeconds    float64 `json:"min_delay_seconds"    yaml:"min_delay_seconds"`
	MaxDelaySeconds    float64 `json:"max_delay_seconds"    yaml:"max_delay_seconds"`
	MaxAttempts        int     `json:"max_attempts"         yaml:"max_attempts"`
	BackoffBaseSeconds float64 `json:"backoff_base_seconds" yaml:"backoff_base_seconds"`
}

// MinDelay returns the lower pacing bound as a duration.
func (p Policy) MinDelay() time.Duration {
	return time.Duration(p.MinDelaySeconds * float64(time.Second))
}

// MaxDelay returns the upper pacing bound as a duration.
func (p Policy) MaxDelay() time.Duration {
	return time.Duration(p.MaxDelaySeconds * float64(time.Second))
}

// Backoff returns the penalty sleep before attempt k (k >= 2):
// backoff_base * 2^(k-2).
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BackoffBaseSeconds
	for i := 2; i < attempt; i++ {
		d *= 2
	}
	return time.Duration(d * float64(time.Second))
}

// Default is the policy the process starts with.
func Default() Policy {
	return Policy{
		MinDelaySeconds:    1,
		MaxDelaySeconds:    3,
		MaxAttempts:        3,
		BackoffBaseSeconds: 2,
	}
}

// Update is a partial policy change; nil fields keep their current value.
type Update struct {
	MinDelaySeconds    *float64 `json:"min_delay_seconds"`
	MaxDelaySeconds    *float64 `json:"max_delay_seconds"`
	MaxAttempts        *int     `json:"max_attempts"`
	BackoffBaseSeconds *float64 `json:"backoff_base_seconds"`
}

// Store serves lock-free snapshot reads and serialized validated updates.
type Store struct {
	mu   sync.Mutex // serializes writers only
	live atomic.Pointer[Policy]
}

// NewStore creates a store with the given initial policy.
// The initial policy must be valid.
func NewStore(p Policy) (*Store, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	s := &Store{}
	s.live.Store(&p)
	return s, nil
}

// Snapshot returns the current policy. Safe for concurrent use, never blocks.
func (s *Store) Snapshot() Policy {
	return *s.live.Load()
}

// Apply merges a partial update into the current policy, validates the merged
// result, and swaps it in atomically. The previous policy stays live when the
// update is rejected.
func (s *Store) Apply(u Update) (Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.live.Load()
	if u.MinDelaySeconds != nil {
		next.MinDelaySeconds = *u.MinDelaySeconds
	}
	if u.MaxDelaySeconds != nil {
		next.MaxDelaySeconds = *u.MaxDelaySeconds
	}
	if u.MaxAttempts != nil {
		next.MaxAttempts = *u.MaxAttempts
	}
	if u.BackoffBaseSeconds != nil {
		next.BackoffBaseSeconds = *u.BackoffBaseSeconds
	}

	if err := validate(next); err != nil {
		return Policy{}, err
	}
	s.live.Store(&next)
	return next, nil
}

func validate(p Policy) error {
	if p.MinDelaySeconds < 0 {
		return &domain.ConfigValidationError{Field: "min_delay_seconds", Reason: "must be >= 0"}
	}
	if p.MaxDelaySeconds < p.MinDelaySeconds {
		return &domain.ConfigValidationError{Field: "max_delay_seconds", Reason: "must be >= min_delay_seconds"}
	}
	if p.MaxAttempts < 1 {
		return &domain.ConfigValidationError{Field: "max_attempts", Reason: "must be >= 1"}
	}
	if p.BackoffBaseSeconds <= 0 {
		return &domain.ConfigValidationError{Field: "backoff_base_seconds", Reason: "must be > 0"}
	}
	return nil
}
