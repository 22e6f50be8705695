package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "docquery"

// Embedding Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// RecordEmbedding records the outcome of one provider call.
// errorType is empty on success.
func RecordEmbedding(provider, model string, seconds float64, promptTokens, totalTokens int, errorType string) {
	if errorType != "" {
		EmbeddingRequestsTotal.WithLabelValues(provider, model, "error").Inc()
		EmbeddingErrorsTotal.WithLabelValues(provider, model, errorType).Inc()
		return
	}

	EmbeddingRequestsTotal.WithLabelValues(provider, model, "success").Inc()
	EmbeddingRequestDuration.WithLabelValues(provider, model).Observe(seconds)
	if totalTokens > 0 {
		EmbeddingTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
		EmbeddingTokensTotal.WithLabelValues(provider, model, "total").Add(float64(totalTokens))
	}
}
