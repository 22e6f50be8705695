package health

import "context"

// VectorStore is the readiness view of the vector store.
type VectorStore interface {
	Ping(ctx context.Context) error
}

// EmbeddingProvider is the readiness view of the embedding backend.
type EmbeddingProvider interface {
	HealthCheck(ctx context.Context) error
}
