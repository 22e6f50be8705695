package postgres

// NewStoreForTest wraps a querier double.
func NewStoreForTest(q querier) *Store {
	return &Store{pool: q}
}
