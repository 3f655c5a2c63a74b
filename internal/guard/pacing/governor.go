// Package pacing enforces the global minimum spacing between outbound
// requests. A single next-eligible-time watermark is shared by every logical
// operation; the read-modify-write on it is one critical section, so
// concurrent callers serialize onto the spacing schedule instead of each
// sleeping independently from "now" and bursting.
package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/vthibault/annonce/internal/guard/policy"
	"github.com/vthibault/annonce/internal/metrics"
)

// Governor blocks callers until the next request is safe to send.
type Governor struct {
	policies *policy.Store

	mu        sync.Mutex
	watermark time.Time

	// test seams
	now       func() time.Time
	randFloat func() float64
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates a governor reading its delay bounds from the policy store.
func New(policies *policy.Store) *Governor {
	return &Governor{
		policies:  policies,
		now:       time.Now,
		randFloat: rand.Float64,
		sleep:     sleepCtx,
	}
}

// Wait suspends the caller until its slot on the global spacing schedule.
// Each call claims the slot `max(now, watermark) + jittered delay` and sleeps
// until it, honoring context cancellation.
func (g *Governor) Wait(ctx context.Context) error {
	pol := g.policies.Snapshot()
	delay := pol.MinDelay() +
		time.Duration(g.randFloat()*float64(pol.MaxDelay()-pol.MinDelay()))

	g.mu.Lock()
	base := g.now()
	if g.watermark.After(base) {
		base = g.watermark
	}
	g.watermark = base.Add(delay)
	target := g.watermark
	g.mu.Unlock()

	wait := target.Sub(g.now())
	if wait <= 0 {
		return nil
	}
	metrics.PacingWaitSeconds.Observe(wait.Seconds())
	return g.sleep(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
