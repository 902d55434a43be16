// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

// Package metrics exposes Prometheus instrumentation for the security
// pipeline: authorization decisions, rate-limit outcomes, SSRF blocks,
// replay rejections and degraded-context fallbacks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthzDecisions counts policy-engine decisions by effect.
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateward_authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"effect"}, // "allow", "deny"
	)

	// RateLimitChecks counts rate-limit checks by strategy and outcome.
	RateLimitChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateward_ratelimit_checks_total",
			Help: "Total number of rate limit checks",
		},
		[]string{"strategy", "outcome"}, // strategy: local, distributed; outcome: allowed, limited
	)

	// RateLimitFallbacks counts distributed-limiter failures that degraded
	// to the local strategy. A sustained rise means the store is unhealthy.
	RateLimitFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateward_ratelimit_fallbacks_total",
			Help: "Total number of distributed rate limiter fallbacks to local strategy",
		},
	)

	// SSRFBlocks counts blocked outbound requests by reason.
	SSRFBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateward_ssrf_blocks_total",
			Help: "Total number of outbound requests blocked by the SSRF guard",
		},
		[]string{"reason"}, // "empty host", "private address", "host not allow-listed"
	)

	// ReplayRejections counts secure actions rejected for stale or invalid
	// replay tokens. Spikes indicate replayed or forged requests.
	ReplayRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateward_replay_rejections_total",
			Help: "Total number of actions rejected by replay protection",
		},
	)

	// ContextFallbacks counts security-context builds that timed out and
	// degraded to a guest context.
	ContextFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateward_context_fallbacks_total",
			Help: "Total number of security context builds degraded to guest",
		},
	)

	// SecureActions counts secure-action invocations by result status.
	SecureActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateward_secure_actions_total",
			Help: "Total number of secure action invocations",
		},
		[]string{"action", "status"}, // status: success, validation_error, unauthorized, error
	)

	// InternalAPIDenied counts requests rejected by the internal-API guard.
	InternalAPIDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateward_internal_api_denied_total",
			Help: "Total number of internal API requests rejected for bad or missing secret",
		},
	)

	// AuditEventsWritten counts audit events persisted by outcome.
	AuditEventsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateward_audit_events_total",
			Help: "Total number of audit events written",
		},
		[]string{"type"},
	)

	// HTTPRequests counts served requests by method, path and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateward_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateward_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// HTTPActiveRequests tracks in-flight requests.
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateward_http_active_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// RecordHTTPRequest records one completed request.
func RecordHTTPRequest(method, path, status string, seconds float64) {
	HTTPRequests.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
