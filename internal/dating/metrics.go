package dating

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	swipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dating_swipes_total",
			Help: "Total number of swipes recorded, by decision",
		},
		[]string{"decision"},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dating_match_transitions_total",
			Help: "Total number of pair status transitions, by target status",
		},
		[]string{"status"},
	)

	matchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dating_matches_total",
			Help: "Total number of pairs that became matched",
		},
	)

	conflictRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dating_match_conflict_retries_total",
			Help: "Total number of optimistic match updates retried after a conflict",
		},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dating_compatibility_scores",
			Help:    "Distribution of compatibility scores stored on matches",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
	)

	feedLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dating_feed_duration_seconds",
			Help:    "Time to build one feed page",
			Buckets: prometheus.DefBuckets,
		},
	)

	feedCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dating_feed_cache_lookups_total",
			Help: "Feed cache lookups, by result",
		},
		[]string{"result"},
	)
)

func recordSwipe(d Decision) {
	swipesTotal.WithLabelValues(string(d)).Inc()
}

func recordTransition(s Status) {
	transitionsTotal.WithLabelValues(string(s)).Inc()
}

func recordMatch() {
	matchesTotal.Inc()
}

func recordConflictRetry() {
	conflictRetries.Inc()
}

func recordCompatibilityScore(score float64) {
	compatibilityScores.Observe(score)
}

func recordFeedLatency(d time.Duration) {
	feedLatency.Observe(d.Seconds())
}

func recordFeedCache(hit bool) {
	if hit {
		feedCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	feedCacheLookups.WithLabelValues("miss").Inc()
}
