// Package qdrant implements db.Store on top of the Qdrant gRPC API.
package qdrant

import (
	"context"
	"fmt"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/docquery/internal/db"
)

var _ db.Store = (*Store)(nil)

// Config holds Qdrant connection parameters.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// client is the subset of *qdrant.Client used by the store.
type client interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	Close() error
}

// Store implements db.Store via the official Qdrant Go client.
type Store struct {
	client client
}

// NewStore builds a Qdrant client. Construction failures are returned, never panicked on.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}

	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: c}, nil
}

// Ping checks connectivity via the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the gRPC connection.
func (s *Store) Close() {
	_ = s.client.Close()
}

// SearchKNN runs a nearest-neighbour query. Qdrant scores are similarities already.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	req := &qdrant.QueryPoints{
		CollectionName: q.Collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Limit:          qdrant.PtrOf(uint64(q.K)),
		WithPayload:    withPayload(q.ReturnFields),
	}
	if len(q.Filters) > 0 {
		req.Filter = buildFilter(q.Filters)
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	entries := make([]db.SearchEntry, 0, len(points))
	for _, p := range points {
		entries = append(entries, db.SearchEntry{
			Key:    pointID(p.GetId()),
			Score:  widenScore(p.GetScore()),
			Fields: payloadToFields(p.GetPayload()),
		})
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

func withPayload(fields []string) *qdrant.WithPayloadSelector {
	if len(fields) == 0 {
		return qdrant.NewWithPayload(true)
	}
	return qdrant.NewWithPayloadInclude(fields...)
}

func buildFilter(filters map[string]string) *qdrant.Filter {
	must := make([]*qdrant.Condition, 0, len(filters))
	for k, v := range filters {
		must = append(must, qdrant.NewMatch(k, v))
	}
	return &qdrant.Filter{Must: must}
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// payloadToFields flattens scalar payload values to strings; nested values are skipped.
func payloadToFields(payload map[string]*qdrant.Value) map[string]string {
	fields := make(map[string]string, len(payload))
	for k, v := range payload {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			fields[k] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			fields[k] = strconv.FormatInt(kind.IntegerValue, 10)
		case *qdrant.Value_DoubleValue:
			fields[k] = strconv.FormatFloat(kind.DoubleValue, 'f', -1, 64)
		case *qdrant.Value_BoolValue:
			fields[k] = strconv.FormatBool(kind.BoolValue)
		}
	}
	return fields
}

// widenScore converts a float32 score to the float64 with the same shortest
// decimal form, so 0.92 stays 0.92 rather than 0.9200000166893005.
func widenScore(f float32) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'f', -1, 32), 64)
	if err != nil {
		return float64(f)
	}
	return v
}
