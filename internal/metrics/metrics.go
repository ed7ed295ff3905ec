// Package metrics holds the Prometheus collectors for the service. All
// collectors are registered on the default registry and exposed through the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP facade metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "probe_hub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests handled by the facade.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probe_hub_http_requests_total",
			Help: "Total HTTP requests handled by the facade.",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "probe_hub_http_requests_in_flight",
			Help: "HTTP requests currently being handled.",
		},
	)

	// Run lifecycle metrics

	RunsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "probe_hub_runs_submitted_total",
			Help: "Test runs accepted by the Job Service.",
		},
	)

	RunsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probe_hub_runs_finished_total",
			Help: "Test runs that reached a terminal state, by state.",
		},
		[]string{"state"},
	)

	RunsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "probe_hub_runs_rejected_total",
			Help: "Run requests rejected before submission, by reason.",
		},
		[]string{"reason"},
	)

	// Polling metrics

	PollAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "probe_hub_poll_attempts_total",
			Help: "Status probes issued against the Job Service.",
		},
	)

	PollTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "probe_hub_poll_timeouts_total",
			Help: "Polling loops that exhausted their attempt budget.",
		},
	)
)
