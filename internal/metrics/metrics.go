package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ChecksTotal counts completed provenance checks by outcome.
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provguard_checks_total",
			Help: "Total number of provenance checks by outcome",
		},
		[]string{"outcome"},
	)

	// CheckDuration tracks end-to-end check latency.
	CheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provguard_check_duration_seconds",
			Help:    "End-to-end provenance check duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// CandidatesGenerated tracks Layer 1 candidate counts per check.
	CandidatesGenerated = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provguard_candidates_per_check",
			Help:    "Number of candidates produced by the local index per check",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		},
	)

	// FetchesTotal counts upstream diff fetches by result.
	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provguard_fetches_total",
			Help: "Total number of upstream diff fetches by result",
		},
		[]string{"result"},
	)
)

// InitPrometheus registers all collectors with the default registry.
func InitPrometheus() {
	prometheus.MustRegister(
		ChecksTotal,
		CheckDuration,
		CandidatesGenerated,
		FetchesTotal,
	)
}

// ObserveCheck records the outcome and duration of a finished check.
func ObserveCheck(matched, incomplete bool, started time.Time) {
	outcome := "rejected"
	switch {
	case incomplete:
		outcome = "incomplete"
	case matched:
		outcome = "matched"
	}
	ChecksTotal.WithLabelValues(outcome).Inc()
	CheckDuration.Observe(time.Since(started).Seconds())
}
