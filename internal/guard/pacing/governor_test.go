package pacing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vthibault/annonce/internal/guard/policy"
)

func newTestGovernor(t *testing.T, p policy.Policy) (*Governor, *fakeClock) {
	t.Helper()
	store, err := policy.NewStore(p)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	clk := &fakeClock{now: time.Unix(1000, 0)}
	g := New(store)
	g.now = clk.Now
	g.randFloat = func() float64 { return 0 } // delay pinned to min
	g.sleep = clk.Sleep
	return g, clk
}

// fakeClock advances virtual time on sleep instead of blocking.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func TestWaitAdvancesWatermarkByDelay(t *testing.T) {
	g, clk := newTestGovernor(t, policy.Policy{
		MinDelaySeconds: 2, MaxDelaySeconds: 2, MaxAttempts: 1, BackoffBaseSeconds: 1,
	})

	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(clk.sleeps) != 1 || clk.sleeps[0] != 2*time.Second {
		t.Errorf("sleeps = %v, want [2s]", clk.sleeps)
	}
}

func TestSequentialWaitsKeepGlobalSpacing(t *testing.T) {
	g, clk := newTestGovernor(t, policy.Policy{
		MinDelaySeconds: 1, MaxDelaySeconds: 1, MaxAttempts: 1, BackoffBaseSeconds: 1,
	})

	var dispatches []time.Time
	for i := 0; i < 5; i++ {
		if err := g.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
		dispatches = append(dispatches, clk.Now())
	}

	for i := 1; i < len(dispatches); i++ {
		gap := dispatches[i].Sub(dispatches[i-1])
		if gap < 1*time.Second {
			t.Errorf("gap %d = %v, want >= 1s", i, gap)
		}
	}
}

func TestConcurrentWaitsSerializeOntoSchedule(t *testing.T) {
	// Watermark claims happen under the lock, so N concurrent callers must
	// claim N distinct slots spaced by the full delay, not all sleep the same
	// delay from "now". Time is frozen here: every claimed slot shows up as a
	// distinct sleep duration relative to the same instant.
	store, _ := policy.NewStore(policy.Policy{
		MinDelaySeconds: 1, MaxDelaySeconds: 1, MaxAttempts: 1, BackoffBaseSeconds: 1,
	})
	g := New(store)
	start := time.Unix(1000, 0)
	g.now = func() time.Time { return start }
	g.randFloat = func() float64 { return 0 }

	var mu sync.Mutex
	var sleeps []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
		return nil
	}

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Wait(context.Background()); err != nil {
				t.Errorf("Wait: %v", err)
			}
		}()
	}
	wg.Wait()

	g.mu.Lock()
	final := g.watermark
	g.mu.Unlock()

	// Eight claims of 1s each land the watermark at +8s.
	if want := start.Add(callers * time.Second); !final.Equal(want) {
		t.Errorf("final watermark %v, want %v", final, want)
	}

	// Each caller got its own slot: sleeps are 1s, 2s, ..., 8s in some order.
	seen := make(map[time.Duration]bool, len(sleeps))
	for _, d := range sleeps {
		seen[d] = true
	}
	for i := 1; i <= callers; i++ {
		if !seen[time.Duration(i)*time.Second] {
			t.Errorf("missing slot at +%ds, sleeps = %v", i, sleeps)
		}
	}
}

func TestJitterStaysWithinBounds(t *testing.T) {
	store, _ := policy.NewStore(policy.Policy{
		MinDelaySeconds: 1, MaxDelaySeconds: 3, MaxAttempts: 1, BackoffBaseSeconds: 1,
	})
	clk := &fakeClock{now: time.Unix(0, 0)}
	g := New(store)
	g.now = clk.Now
	g.sleep = clk.Sleep
	g.randFloat = func() float64 { return 0.5 }

	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := clk.sleeps[0]; got != 2*time.Second {
		t.Errorf("jittered delay = %v, want 2s for rand=0.5", got)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	store, _ := policy.NewStore(policy.Policy{
		MinDelaySeconds: 5, MaxDelaySeconds: 5, MaxAttempts: 1, BackoffBaseSeconds: 1,
	})
	g := New(store)
	g.randFloat = func() float64 { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Wait(ctx); err == nil {
		t.Fatal("expected context error from canceled Wait")
	}
}
