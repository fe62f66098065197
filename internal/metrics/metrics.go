package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuthDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmifi_auth_decisions_total",
			Help: "Auth gate decisions by mode, outcome and denial reason",
		},
		[]string{"mode", "outcome", "reason"},
	)

	AuthGateDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cosmifi_auth_gate_duration_seconds",
			Help:    "Time spent evaluating credentials",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"mode"},
	)

	WalletVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmifi_wallet_verifications_total",
			Help: "Wallet verification (token issuance) attempts",
		},
		[]string{"status"},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmifi_event_publish_failures_total",
			Help: "Auth events that could not be published",
		},
		[]string{"kind"},
	)
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosmifi_http_requests_total",
			Help: "HTTP requests by method, route template and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cosmifi_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route template",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
