// Package postgres implements db.Store on PostgreSQL with the pgvector extension.
//
// Each collection is a table with a TEXT column per payload field, an optional
// category column and an `embedding vector(N)` column. Similarity is
// 1 - cosine distance.
package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/docquery/internal/db"
)

var _ db.Store = (*Store)(nil)

const embeddingColumn = "embedding"

// querier is the subset of *pgxpool.Pool used by the store.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Store implements db.Store using pgx and pgvector.
type Store struct {
	pool querier
}

// NewStore connects to PostgreSQL and verifies the connection.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// SearchKNN orders rows by cosine distance and returns the K closest.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("table name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	if len(q.ReturnFields) == 0 {
		return nil, fmt.Errorf("return fields are required")
	}

	sql, args := buildKNNQuery(q)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	var entries []db.SearchEntry
	for rows.Next() {
		values := make([]string, len(q.ReturnFields))
		dest := make([]any, 0, len(values)+1)
		for i := range values {
			dest = append(dest, &values[i])
		}
		var score float64
		dest = append(dest, &score)

		if err := rows.Scan(dest...); err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: fmt.Errorf("scan: %w", err)}
		}

		fields := make(map[string]string, len(values))
		for i, f := range q.ReturnFields {
			fields[f] = values[i]
		}
		entries = append(entries, db.SearchEntry{
			Key:    values[0],
			Score:  score,
			Fields: fields,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// buildKNNQuery renders the search statement. Identifiers are sanitized;
// values travel as parameters ($1 is the query vector).
func buildKNNQuery(q *db.KNNQuery) (string, []any) {
	cols := make([]string, 0, len(q.ReturnFields)+1)
	for _, f := range q.ReturnFields {
		cols = append(cols, fmt.Sprintf("COALESCE(%s::text, '')", pgx.Identifier{f}.Sanitize()))
	}
	emb := pgx.Identifier{embeddingColumn}.Sanitize()
	cols = append(cols, fmt.Sprintf("1 - (%s <=> $1)", emb))

	args := []any{pgvector.NewVector(q.Vector)}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(cols, ", "), pgx.Identifier{q.Collection}.Sanitize())

	if len(q.Filters) > 0 {
		keys := make([]string, 0, len(q.Filters))
		for k := range q.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		conds := make([]string, 0, len(keys))
		for _, k := range keys {
			args = append(args, q.Filters[k])
			conds = append(conds, fmt.Sprintf("%s = $%d", pgx.Identifier{k}.Sanitize(), len(args)))
		}
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	args = append(args, q.K)
	fmt.Fprintf(&sb, " ORDER BY %s <=> $1 LIMIT $%d", emb, len(args))

	return sb.String(), args
}
