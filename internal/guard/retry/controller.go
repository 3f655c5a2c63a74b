// Package retry drives one logical call across its physical attempts. The
// flow is an explicit state machine so the suspension points (pacing wait,
// penalty backoff) and the terminal states are unambiguous under concurrency.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vthibault/annonce/internal/core/domain"
	"github.com/vthibault/annonce/internal/guard/classify"
	"github.com/vthibault/annonce/internal/guard/identity"
	"github.com/vthibault/annonce/internal/guard/pacing"
	"github.com/vthibault/annonce/internal/guard/policy"
	"github.com/vthibault/annonce/internal/metrics"
)

// State is the retry controller's position inside one logical call.
type State int

const (
	StateIdle State = iota
	StateWaiting
	StateAttempting
	StateSucceeded
	StateExhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt performs exactly one physical attempt with the given identity and
// proxy, and returns the structured transport result.
type Attempt func(ctx context.Context, id domain.Identity, proxy *domain.ProxyEndpoint) domain.Result

// Controller orchestrates attempts against the rate governor, the identity
// pool and the classifier.
type Controller struct {
	policies   *policy.Store
	governor   *pacing.Governor
	pool       *identity.Pool
	classifier *classify.Classifier
	log        *slog.Logger

	// test seams
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a controller over the shared guard components.
func New(policies *policy.Store, governor *pacing.Governor, pool *identity.Pool, classifier *classify.Classifier, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		policies:   policies,
		governor:   governor,
		pool:       pool,
		classifier: classifier,
		log:        log,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Run executes one logical call. It returns the successful payload, the
// attempt trail for diagnostics, and the terminal error when the call did not
// succeed. maxAttempts is taken from a single policy snapshot at entry, so a
// concurrent policy update never changes the budget of an in-flight call.
func (c *Controller) Run(ctx context.Context, operation string, attempt Attempt) ([]byte, []domain.AttemptRecord, error) {
	pol := c.policies.Snapshot()

	var (
		state    = StateIdle
		attempts int
		records  []domain.AttemptRecord
		payload  []byte
		termErr  error
		backoff  time.Duration
		lastErr  error
		lastOut  domain.Outcome
		prevID   = identity.NoIdentity
	)

	for {
		switch state {
		case StateIdle:
			state = StateWaiting

		case StateWaiting:
			if backoff > 0 {
				metrics.BackoffSleepSeconds.Observe(backoff.Seconds())
				if err := c.sleep(ctx, backoff); err != nil {
					return nil, records, fmt.Errorf("%s canceled during backoff: %w", operation, err)
				}
				backoff = 0
			}
			if err := c.governor.Wait(ctx); err != nil {
				return nil, records, fmt.Errorf("%s canceled during pacing wait: %w", operation, err)
			}
			state = StateAttempting

		case StateAttempting:
			attempts++
			id, idx, proxy := c.pool.Acquire(prevID)
			prevID = idx

			rec := domain.AttemptRecord{
				Attempt:   attempts,
				Identity:  id,
				Proxy:     proxy,
				StartedAt: c.now(),
			}
			res := attempt(ctx, id, proxy)
			out := c.classifier.Classify(res)

			rec.Outcome = out
			rec.HTTPStatus = res.StatusCode
			rec.ErrKind = res.ErrKind
			records = append(records, rec)
			metrics.AttemptsTotal.WithLabelValues(operation, string(out)).Inc()

			lastOut = out
			lastErr = res.Err

			switch out {
			case domain.OutcomeSuccess:
				c.pool.ReportSuccess(proxy)
				payload = res.Body
				state = StateSucceeded

			case domain.OutcomeNotFound:
				termErr = &domain.NotFoundError{Resource: operation}
				state = StateFailed

			case domain.OutcomeClientError:
				termErr = &domain.ClientRequestError{Status: res.StatusCode}
				state = StateFailed

			case domain.OutcomeUnexpected:
				termErr = &domain.UnexpectedResponseError{Status: res.StatusCode}
				state = StateFailed

			default: // blocked or transient: retry candidates
				c.pool.ReportFailure(proxy)
				if attempts >= pol.MaxAttempts {
					state = StateExhausted
					break
				}
				if attempts == 1 && c.pool.Identities() == 1 {
					c.log.Warn("identity catalog has a single entry, retries cannot rotate",
						"operation", operation,
					)
				}
				backoff = pol.Backoff(attempts + 1)
				c.log.Debug("attempt failed, backing off",
					"operation", operation,
					"attempt", attempts,
					"outcome", out,
					"backoff", backoff,
				)
				state = StateWaiting
			}

		case StateSucceeded:
			return payload, records, nil

		case StateExhausted:
			if lastOut == domain.OutcomeBlockedByProtection {
				termErr = &domain.BlockedError{Attempts: attempts}
			} else {
				termErr = &domain.NetworkError{Attempts: attempts, Last: lastErr}
			}
			c.log.Warn("logical call exhausted",
				"operation", operation,
				"attempts", attempts,
				"last_outcome", lastOut,
			)
			return nil, records, termErr

		case StateFailed:
			return nil, records, termErr
		}
	}
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
