// Package metrics provides Prometheus metrics collection for the coaching
// orchestration layer. It tracks chat requests, cache effectiveness,
// provider latency, and proactive-notification volume.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "coach"
)

// LatencyBuckets defines histogram buckets for latency metrics (in seconds).
var LatencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	1.0, 2.0, 3.0, 5.0, 10.0, 20.0, 30.0, 60.0,
}

// =============================================================================
// Chat Request Metrics
// =============================================================================

var (
	// ChatRequests counts chat requests by category and outcome
	// (completed, cached, fallback, error).
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Total number of chat requests",
		},
		[]string{"category", "outcome"},
	)

	// ChatLatency tracks end-to-end chat latency.
	ChatLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_latency_seconds",
			Help:      "End-to-end chat request latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"category"},
	)

	// CoalescedRequests counts requests that piggybacked on an identical
	// in-flight completion instead of issuing their own.
	CoalescedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesced_requests_total",
			Help:      "Total number of requests coalesced onto an in-flight completion",
		},
	)
)

// =============================================================================
// Provider Metrics
// =============================================================================

var (
	// ProviderRequests counts upstream completion calls by provider and
	// status code.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of upstream completion requests",
		},
		[]string{"provider", "status_code"},
	)

	// ProviderLatency tracks upstream completion call latency.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Upstream completion call latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"provider"},
	)

	// ProviderRetries counts retry attempts by provider.
	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Total number of retried completion requests",
		},
		[]string{"provider"},
	)

	// TokensUsed counts completion tokens consumed upstream.
	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total completion tokens consumed",
		},
		[]string{"provider"},
	)
)

// =============================================================================
// Cache Metrics
// =============================================================================

var (
	// CacheHits counts response cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of response cache hits",
		},
	)

	// CacheMisses counts response cache misses.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of response cache misses",
		},
	)

	// CacheEntries gauges the current number of cached responses.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Current number of cached responses",
		},
	)
)

// =============================================================================
// Session Metrics
// =============================================================================

var (
	// ActiveSessions gauges the number of live conversation contexts.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Current number of live conversation contexts",
		},
	)

	// SessionsExpired counts contexts removed by the expiry sweep.
	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Total number of conversation contexts expired",
		},
	)
)

// =============================================================================
// Notification Metrics
// =============================================================================

var (
	// NotificationsEmitted counts notifications produced by trigger rules.
	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_emitted_total",
			Help:      "Total number of notifications emitted by trigger rules",
		},
		[]string{"rule", "priority"},
	)

	// NotificationsSuppressed counts firings dropped by the daily cap.
	NotificationsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_suppressed_total",
			Help:      "Total number of notifications suppressed by the daily cap",
		},
	)
)
