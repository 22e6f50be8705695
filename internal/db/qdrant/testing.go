package qdrant

// NewStoreForTest wraps a client double.
func NewStoreForTest(c client) *Store {
	return &Store{client: c}
}
