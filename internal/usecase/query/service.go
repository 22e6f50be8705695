package query

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/logger"
	"github.com/kailas-cloud/docquery/internal/metrics"
)

// DefaultThreshold is the minimum similarity a match must exceed.
const DefaultThreshold = 0.75

// Options configures the resolver.
type Options struct {
	// Category is used when the query carries none.
	Category string
	// Threshold is exclusive: a score equal to it is not a match.
	Threshold  float64
	PayloadKey string

	// EmbedderName and StoreName prefix adapter diagnostics ("ollama", "qdrant").
	EmbedderName string
	StoreName    string

	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
}

// Service is the production Resolver: connect, embed, search, gate, load.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	conn    Connector
	embed   Embedder
	search  Searcher
	content ContentLoader
	opts    Options
	logger  *zap.Logger
}

var _ Resolver = (*Service)(nil)

// New creates a query service.
func New(
	conn Connector, embed Embedder, search Searcher, content ContentLoader,
	opts Options, log *zap.Logger,
) *Service {
	if opts.PayloadKey == "" {
		opts.PayloadKey = domain.DefaultPayloadKey
	}
	if opts.EmbedderName == "" {
		opts.EmbedderName = "ollama"
	}
	if opts.StoreName == "" {
		opts.StoreName = "qdrant"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		conn:    conn,
		embed:   embed,
		search:  search,
		content: content,
		opts:    opts,
		logger:  log,
	}
}

// Resolve runs the pipeline once. No step is retried.
func (s *Service) Resolve(ctx context.Context, q domain.Query) domain.Response {
	resp := s.resolve(ctx, q)
	metrics.QueryOutcomesTotal.WithLabelValues(resp.Kind.String()).Inc()
	return resp
}

func (s *Service) resolve(ctx context.Context, q domain.Query) domain.Response {
	log := logger.FromContext(ctx, s.logger)

	category := q.Category
	if category == "" {
		category = s.opts.Category
	}

	if err := s.connect(ctx); err != nil {
		log.Warn("Vector store connect failed", zap.String("store", s.opts.StoreName), zap.Error(err))
		return domain.AdapterFailure(s.opts.StoreName, err)
	}

	vector, err := s.vectorize(ctx, q.Text)
	if err != nil {
		log.Warn("Query embedding failed", zap.String("provider", s.opts.EmbedderName), zap.Error(err))
		return domain.AdapterFailure(s.opts.EmbedderName, err)
	}

	match, err := s.best(ctx, category, vector)
	if err != nil {
		log.Warn("Vector search failed",
			zap.String("store", s.opts.StoreName),
			zap.String("category", category),
			zap.Error(err),
		)
		return domain.AdapterFailure(s.opts.StoreName, err)
	}

	if match.IsEmpty() {
		log.Info("No candidate", zap.String("category", category))
		return domain.NoMatch(q.Text)
	}

	metrics.MatchScore.Observe(match.Score)
	log.Info("Best match",
		zap.String("category", category),
		zap.Float64("score", match.Score),
		zap.Float64("threshold", s.opts.Threshold),
	)

	if match.Score <= s.opts.Threshold {
		return domain.NoMatch(q.Text)
	}

	path, ok := match.Path(s.opts.PayloadKey)
	if !ok {
		log.Warn("Match payload has no content path", zap.String("payload_key", s.opts.PayloadKey))
		return domain.ContentUnavailable(q.Text)
	}

	data, err := s.content.Load(ctx, path)
	if err == nil && data == "" {
		err = fmt.Errorf("%s: empty content: %w", path, domain.ErrContentUnavailable)
	}
	if err != nil {
		log.Warn("Content load failed", zap.String("path", path), zap.Error(err))
		return domain.ContentUnavailable(q.Text)
	}

	return domain.OK(q.Text, match.Score, data)
}

// connect shares the search budget so a stalled dial cannot hang a query.
func (s *Service) connect(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	return s.conn.Connect(ctx) //nolint:wrapcheck // diagnostic is surfaced verbatim
}

func (s *Service) vectorize(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()

	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, err //nolint:wrapcheck // diagnostic is surfaced verbatim
	}
	return res.Embedding, nil
}

func (s *Service) best(ctx context.Context, category string, vector []float32) (domain.Match, error) {
	ctx, cancel := withTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	return s.search.Best(ctx, category, vector) //nolint:wrapcheck // diagnostic is surfaced verbatim
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
