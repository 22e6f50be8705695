package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/docquery/internal/db"
	"github.com/kailas-cloud/docquery/internal/domain"
)

// Scope selects how a query category maps onto the vector store.
type Scope string

const (
	// ScopeCollection treats the category as the collection (index, table) name.
	ScopeCollection Scope = "collection"
	// ScopeFilter searches a fixed collection with an equality filter on CategoryField.
	ScopeFilter Scope = "filter"
)

// CategoryField is the payload field filtered on under ScopeFilter.
const CategoryField = "category"

// connector is the consumer interface for reaching the vector store (ISP).
type connector interface {
	Name() string
	Connect(ctx context.Context) (db.Store, error)
}

// Options configures category scoping and payload projection.
type Options struct {
	Scope      Scope
	Collection string // used by ScopeFilter
	PayloadKey string
}

// Repo implements usecase/query.Searcher over any db.Store backend.
type Repo struct {
	conn connector
	opts Options
}

// New creates a search repository.
func New(c connector, opts Options) *Repo {
	if opts.Scope == "" {
		opts.Scope = ScopeCollection
	}
	if opts.PayloadKey == "" {
		opts.PayloadKey = domain.DefaultPayloadKey
	}
	return &Repo{conn: c, opts: opts}
}

// Name returns the backend name used in diagnostics.
func (r *Repo) Name() string {
	return r.conn.Name()
}

// Connect makes sure a client for the vector store can be built.
func (r *Repo) Connect(ctx context.Context) error {
	if _, err := r.conn.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreError, err)
	}
	return nil
}

// Ping checks vector store connectivity for readiness probes.
func (r *Repo) Ping(ctx context.Context) error {
	s, err := r.conn.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreError, err)
	}
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreError, err)
	}
	return nil
}

// Best returns the single nearest neighbour of vector within category.
// A store with no candidate yields an empty Match, not an error.
func (r *Repo) Best(ctx context.Context, category string, vector []float32) (domain.Match, error) {
	s, err := r.conn.Connect(ctx)
	if err != nil {
		return domain.Match{}, fmt.Errorf("%w: %w", domain.ErrVectorStoreError, err)
	}

	q := r.knnQuery(category, vector)

	sr, err := s.SearchKNN(ctx, q)
	if err != nil {
		return domain.Match{}, fmt.Errorf("%w: search %s: %w", domain.ErrVectorStoreError, q.Collection, err)
	}

	if sr == nil || len(sr.Entries) == 0 {
		return domain.Match{}, nil
	}

	best := sr.Entries[0]
	payload := make(map[string]string, len(best.Fields))
	for k, v := range best.Fields {
		payload[k] = v
	}

	return domain.Match{Score: best.Score, Payload: payload}, nil
}

func (r *Repo) knnQuery(category string, vector []float32) *db.KNNQuery {
	q := &db.KNNQuery{
		Collection:   category,
		Vector:       vector,
		K:            1,
		ReturnFields: []string{r.opts.PayloadKey},
	}
	if r.opts.Scope == ScopeFilter {
		q.Collection = r.opts.Collection
		q.Filters = map[string]string{CategoryField: category}
	}
	return q
}
