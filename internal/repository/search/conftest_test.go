package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docquery/internal/db"
)

// mockStore implements db.Store for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	pingErr     error
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }
func (m *mockStore) Close()                       {}

// mockConnector hands out a fixed store or a fixed error.
type mockConnector struct {
	store *mockStore
	err   error
}

func (m *mockConnector) Name() string { return "qdrant" }

func (m *mockConnector) Connect(_ context.Context) (db.Store, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.store, nil
}

func newTestRepo(t *testing.T, opts Options) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(&mockConnector{store: ms}, opts), ms
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}
