package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookrec_gateway_requests_total",
		Help: "Total number of HTTP requests to the web adapter",
	}, []string{"method", "path", "status"})

	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookrec_gateway_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookrec_searches_total",
		Help: "Searches issued against the vector service by mode and outcome",
	}, []string{"mode", "outcome"})

	FilteredOutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookrec_filtered_out_total",
		Help: "Candidates dropped by the distance cutoff",
	})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookrec_upstream_request_duration_seconds",
		Help:    "Duration of requests to the vector service",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	UpstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookrec_upstream_errors_total",
		Help: "Failed requests to the vector service",
	}, []string{"endpoint"})
)

// Search outcomes.
const (
	OutcomeFound     = "found"
	OutcomeEmpty     = "empty"
	OutcomeNoResults = "no_results"
	OutcomeError     = "error"
)
