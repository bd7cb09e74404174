package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_recomputes_total",
			Help: "Total recompute pipeline runs per axis and trigger",
		},
		[]string{"axis", "trigger"},
	)

	recomputeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_recompute_failures_total",
			Help: "Per-user recompute failures, by axis",
		},
		[]string{"axis"},
	)

	matchesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_matches_stored_total",
			Help: "Match rows written by reconciliation, by axis",
		},
		[]string{"axis"},
	)

	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_notifications_sent_total",
			Help: "New-match notifications dispatched, by channel",
		},
		[]string{"channel"},
	)

	compatibilityScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_compatibility_scores",
			Help:    "Distribution of compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
		[]string{"axis"},
	)

	sweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matching_sweep_duration_seconds",
			Help:    "Wall time of full population sweeps",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"axis"},
	)
)

func recordRecompute(axis Axis, trigger string) {
	recomputesTotal.WithLabelValues(string(axis), trigger).Inc()
}

func recordRecomputeFailure(axis Axis) {
	recomputeFailures.WithLabelValues(string(axis)).Inc()
}

func recordMatchesStored(axis Axis, n int) {
	matchesStored.WithLabelValues(string(axis)).Add(float64(n))
}

func recordNotification(channel string) {
	notificationsSent.WithLabelValues(channel).Inc()
}

func recordScore(axis Axis, score int) {
	compatibilityScores.WithLabelValues(string(axis)).Observe(float64(score))
}

func observeSweepDuration(axis Axis, seconds float64) {
	sweepDuration.WithLabelValues(string(axis)).Observe(seconds)
}
