// Package metrics provides observability for the network credit scoring
// module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks contribution throughput, score lookups, and background run
// durations.
type Metrics struct {
	ObservationsContributed prometheus.Counter
	ContributionsSkipped    prometheus.Counter
	ScoreLookups            *prometheus.CounterVec
	ScoreCacheHits          prometheus.Counter
	ScoreCacheMisses        prometheus.Counter
	ProfilesAggregated      prometheus.Counter
	PatternsDetected        *prometheus.CounterVec
	AggregationDuration     prometheus.Histogram
	DetectionDuration       prometheus.Histogram
}

// New registers all network module metrics.
func New() *Metrics {
	return &Metrics{
		ObservationsContributed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditnet_observations_contributed_total",
			Help: "Total payment observations accepted into the network pool",
		}),
		ContributionsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditnet_contributions_skipped_total",
			Help: "Contributions silently skipped for tenants without consent",
		}),
		ScoreLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditnet_score_lookups_total",
			Help: "Community score lookups by outcome",
		}, []string{"outcome"}),
		ScoreCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditnet_score_cache_hits_total",
			Help: "Score lookups served from the profile cache",
		}),
		ScoreCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditnet_score_cache_misses_total",
			Help: "Score lookups that fell through to the profile store",
		}),
		ProfilesAggregated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "creditnet_profiles_aggregated_total",
			Help: "Buyer profiles recomputed by aggregation runs",
		}),
		PatternsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "creditnet_patterns_detected_total",
			Help: "Network patterns detected by detector",
		}, []string{"detector"}),
		AggregationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "creditnet_aggregation_duration_seconds",
			Help:    "Duration of full aggregation runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		DetectionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "creditnet_detection_duration_seconds",
			Help:    "Duration of full pattern detection runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
	}
}

// ObserveAggregation records the duration of one aggregation run.
func (m *Metrics) ObserveAggregation(start time.Time) {
	m.AggregationDuration.Observe(time.Since(start).Seconds())
}

// ObserveDetection records the duration of one detection run.
func (m *Metrics) ObserveDetection(start time.Time) {
	m.DetectionDuration.Observe(time.Since(start).Seconds())
}
