// Package metrics exposes the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal counts physical attempts by logical operation and outcome.
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annonce_attempts_total",
			Help: "Total number of physical upstream attempts",
		},
		[]string{"operation", "outcome"},
	)

	// CallsTotal counts logical calls by operation and final result.
	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annonce_calls_total",
			Help: "Total number of logical calls",
		},
		[]string{"operation", "result"},
	)

	// PacingWaitSeconds tracks how long callers sat at the rate governor.
	PacingWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "annonce_pacing_wait_seconds",
			Help:    "Time spent waiting for the global pacing watermark",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// BackoffSleepSeconds tracks penalty sleeps after suspected blocks.
	BackoffSleepSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "annonce_backoff_sleep_seconds",
			Help:    "Time spent in post-block exponential backoff",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)

	// ProxyHealthy reports each proxy's health flag (1 healthy, 0 cooling down).
	ProxyHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "annonce_proxy_healthy",
			Help: "Proxy health flag (1 = healthy)",
		},
		[]string{"proxy"},
	)

	// CacheRequestsTotal counts response-cache lookups by result.
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "annonce_cache_requests_total",
			Help: "Response cache lookups",
		},
		[]string{"result"},
	)

	// UpstreamLatency tracks per-attempt upstream latency.
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "annonce_upstream_latency_seconds",
			Help:    "Upstream attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
