// Package metrics provides Prometheus metrics collection for the adherence API.
// It exports HTTP request metrics (totals, latency histogram, in-flight gauge)
// plus rebuild pipeline metrics: rebuild duration, matched/unmatched medication
// counts and a counter for resolver batch failures.
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	RebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "review_rebuild_duration_seconds",
			Help:    "Duration of full review snapshot rebuilds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	MatchedMedications = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "review_matched_medications",
			Help: "Medications paired with dispensing history in the current snapshot",
		},
	)

	UnmatchedMedications = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "review_unmatched_medications",
			Help: "Medications without dispensing history in the current snapshot",
		},
	)

	ResolverDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "review_resolver_degraded_total",
			Help: "Rebuilds where the canonical code batch failed and matching fell back to product codes",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(RebuildDuration)
	prometheus.MustRegister(MatchedMedications)
	prometheus.MustRegister(UnmatchedMedications)
	prometheus.MustRegister(ResolverDegradedTotal)
}

// RecordRebuild updates the pipeline metrics after one snapshot swap.
func RecordRebuild(elapsed time.Duration, matched, unmatched int, degraded bool) {
	RebuildDuration.Observe(elapsed.Seconds())
	MatchedMedications.Set(float64(matched))
	UnmatchedMedications.Set(float64(unmatched))
	if degraded {
		ResolverDegradedTotal.Inc()
	}
}
