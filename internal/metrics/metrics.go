// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled HTTP requests by route, method and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotreg_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPDuration observes request latency per route.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lotreg_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// StatusTransitions counts accepted lot status switches.
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotreg_lot_status_transitions_total",
			Help: "Total number of accepted lot status transitions",
		},
		[]string{"from", "to"},
	)

	// LotIDConflicts counts optimistic-concurrency retries of the lot
	// identifier counter.
	LotIDConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lotreg_lotid_counter_conflicts_total",
			Help: "Total number of lot identifier counter write conflicts",
		},
	)
)
