package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query resolution metrics.
var (
	QueryOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_outcomes_total",
			Help:      "Resolved queries by outcome kind",
		},
		[]string{"outcome"},
	)

	MatchScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_score",
			Help:      "Similarity score of the best match per query",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)
