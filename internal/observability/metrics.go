package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// OutcomeSuccess labels analyses that produced a result.
	OutcomeSuccess = "success"
	// OutcomeMissingInput labels analyses rejected before reading.
	OutcomeMissingInput = "missing_input"
	// OutcomeNoHandles labels analyses whose documents held no profile links.
	OutcomeNoHandles = "no_handles"
	// OutcomeReadFailure labels analyses whose documents could not be read.
	OutcomeReadFailure = "read_failure"
	// OutcomeCanceled labels analyses discarded because the caller went away.
	OutcomeCanceled = "canceled"
)

// Metrics definitions
var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "igsync_analyses_total",
		Help: "Total number of unfollower analyses by outcome.",
	}, []string{"outcome"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "igsync_analysis_seconds",
		Help:    "Time spent reading documents and computing unfollowers.",
		Buckets: prometheus.DefBuckets,
	})

	ExtractedHandles = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "igsync_extracted_handles",
		Help:    "Number of profile links extracted from an export document.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 7),
	}, []string{"role"})

	UnfollowersFound = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "igsync_unfollowers",
		Help:    "Number of unfollowers reported by a successful analysis.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 7),
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "igsync_active_sessions",
		Help: "Current number of analyzer sessions held by the server.",
	})

	RateLimitedRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "igsync_rate_limited_requests_total",
		Help: "Total number of analyze requests rejected by the rate limiter.",
	})
)
