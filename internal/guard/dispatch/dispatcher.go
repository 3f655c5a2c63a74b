// Package dispatch is the thin orchestration point of the resilience layer:
// per logical call it consults the response cache, runs the retry controller
// over the HTTP executor, and records the call in the journal.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vthibault/annonce/internal/core/domain"
	"github.com/vthibault/annonce/internal/guard/retry"
	"github.com/vthibault/annonce/internal/metrics"
)

// Executor performs one physical HTTP attempt with the given identity/proxy.
type Executor interface {
	Do(ctx context.Context, spec domain.RequestSpec, id domain.Identity, proxy *domain.ProxyEndpoint) domain.Result
}

// Cache stores successful payloads keyed by request fingerprint. A cache hit
// skips the resilience layer entirely: every avoided upstream hit is one less
// detection signal.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
}

// CallSummary is what the journal keeps per logical call.
type CallSummary struct {
	ID        string
	Operation string
	Attempts  int
	Result    string
	Duration  time.Duration
	Proxy     string
	StartedAt time.Time
}

// Journal persists call summaries for diagnostics. Implementations must not
// fail the call: errors are logged and dropped.
type Journal interface {
	Record(ctx context.Context, s CallSummary) error
}

// Dispatcher executes logical calls. Cache and journal are optional.
type Dispatcher struct {
	retry   *retry.Controller
	exec    Executor
	cache   Cache
	journal Journal
	log     *slog.Logger
}

// New creates a dispatcher. cache and journal may be nil.
func New(ctrl *retry.Controller, exec Executor, cache Cache, journal Journal, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{retry: ctrl, exec: exec, cache: cache, journal: journal, log: log}
}

// Execute resolves one logical call to a payload or one typed failure. It
// never silently drops a call.
func (d *Dispatcher) Execute(ctx context.Context, spec domain.RequestSpec) ([]byte, error) {
	if d.cache != nil && spec.CacheKey != "" {
		if payload, ok := d.cache.Get(ctx, spec.CacheKey); ok {
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			return payload, nil
		}
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	callID := uuid.NewString()
	started := time.Now()

	payload, records, err := d.retry.Run(ctx, spec.Operation,
		func(ctx context.Context, id domain.Identity, proxy *domain.ProxyEndpoint) domain.Result {
			attemptStart := time.Now()
			res := d.exec.Do(ctx, spec, id, proxy)
			metrics.UpstreamLatency.WithLabelValues(spec.Operation).Observe(time.Since(attemptStart).Seconds())
			return res
		})

	result := "success"
	if err != nil {
		result = errLabel(err)
	}
	metrics.CallsTotal.WithLabelValues(spec.Operation, result).Inc()

	d.journalCall(ctx, CallSummary{
		ID:        callID,
		Operation: spec.Operation,
		Attempts:  len(records),
		Result:    result,
		Duration:  time.Since(started),
		Proxy:     lastProxy(records),
		StartedAt: started,
	})

	if err != nil {
		d.log.Info("logical call failed",
			"call_id", callID,
			"operation", spec.Operation,
			"attempts", len(records),
			"result", result,
		)
		return nil, err
	}

	if d.cache != nil && spec.CacheKey != "" {
		d.cache.Set(ctx, spec.CacheKey, payload)
	}
	return payload, nil
}

func (d *Dispatcher) journalCall(ctx context.Context, s CallSummary) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Record(ctx, s); err != nil {
		d.log.Warn("journal write failed", "call_id", s.ID, "error", err)
	}
}

func lastProxy(records []domain.AttemptRecord) string {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Proxy != nil {
			return records[i].Proxy.Addr()
		}
	}
	return ""
}

func errLabel(err error) string {
	switch err.(type) {
	case *domain.BlockedError:
		return "blocked"
	case *domain.NotFoundError:
		return "not_found"
	case *domain.NetworkError:
		return "network"
	case *domain.ClientRequestError:
		return "client_error"
	case *domain.UnexpectedResponseError:
		return "unexpected"
	default:
		return "error"
	}
}
