package policy

import (
	"errors"
	"testing"
	"time"

	"github.com/vthibault/annonce/internal/core/domain"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }

func TestNewStoreRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		p    Policy
	}{
		{"min greater than max", Policy{MinDelaySeconds: 5, MaxDelaySeconds: 1, MaxAttempts: 3, BackoffBaseSeconds: 1}},
		{"zero attempts", Policy{MinDelaySeconds: 0, MaxDelaySeconds: 1, MaxAttempts: 0, BackoffBaseSeconds: 1}},
		{"non-positive backoff", Policy{MinDelaySeconds: 0, MaxDelaySeconds: 1, MaxAttempts: 1, BackoffBaseSeconds: 0}},
		{"negative min", Policy{MinDelaySeconds: -1, MaxDelaySeconds: 1, MaxAttempts: 1, BackoffBaseSeconds: 1}},
	}

	for _, tt := range tests {
		if _, err := NewStore(tt.p); err == nil {
			t.Errorf("%s: expected validation error, got nil", tt.name)
		}
	}
}

func TestApplyPartialUpdate(t *testing.T) {
	s, err := NewStore(Default())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	got, err := s.Apply(Update{MaxAttempts: i(5), BackoffBaseSeconds: f64(0.5)})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.MaxAttempts != 5 || got.BackoffBaseSeconds != 0.5 {
		t.Errorf("updated fields not applied: %+v", got)
	}
	if got.MinDelaySeconds != Default().MinDelaySeconds {
		t.Errorf("untouched field changed: %+v", got)
	}
	if snap := s.Snapshot(); snap != got {
		t.Errorf("Snapshot() = %+v, want %+v", snap, got)
	}
}

func TestApplyAllOrNothing(t *testing.T) {
	s, _ := NewStore(Default())
	before := s.Snapshot()

	_, err := s.Apply(Update{MinDelaySeconds: f64(10), MaxDelaySeconds: f64(5)})
	if err == nil {
		t.Fatal("expected rejection for min > max")
	}
	var vErr *domain.ConfigValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ConfigValidationError, got %T", err)
	}
	if s.Snapshot() != before {
		t.Errorf("rejected update mutated live policy: %+v", s.Snapshot())
	}
}

func TestBackoffSchedule(t *testing.T) {
	p := Policy{MaxDelaySeconds: 1, MaxAttempts: 5, BackoffBaseSeconds: 1}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{2, 1 * time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 8 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestConcurrentReaders(t *testing.T) {
	s, _ := NewStore(Default())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for n := 0; n < 1000; n++ {
			if _, err := s.Apply(Update{MaxAttempts: i(n%5 + 1)}); err != nil {
				t.Errorf("Apply: %v", err)
				return
			}
		}
	}()

	for n := 0; n < 1000; n++ {
		p := s.Snapshot()
		// A torn policy would show up as a snapshot failing validation.
		if p.MaxAttempts < 1 || p.MaxDelaySeconds < p.MinDelaySeconds {
			t.Fatalf("torn snapshot observed: %+v", p)
		}
	}
	<-done
}
