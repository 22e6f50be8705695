package db

import (
	"context"
	"time"
)

// Store is the vector store facade consumed by the search repository and health checks.
type Store interface {
	Pinger
	Searcher
	Close()
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher provides nearest-neighbour search over a collection.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// KVStore is a byte cache with expiry.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Connector builds a Store. Construction may fail and is reported to the caller.
type Connector interface {
	// Name identifies the backend (qdrant, redis, valkey, postgres).
	Name() string
	Connect(ctx context.Context) (Store, error)
	Close()
}
