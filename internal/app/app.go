// Package app assembles the query pipeline from configuration. It is the
// composition root shared by the server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/config"
	"github.com/kailas-cloud/docquery/internal/content"
	"github.com/kailas-cloud/docquery/internal/db"
	dbPostgres "github.com/kailas-cloud/docquery/internal/db/postgres"
	dbQdrant "github.com/kailas-cloud/docquery/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/docquery/internal/db/redis"
	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/metrics"
	"github.com/kailas-cloud/docquery/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/docquery/internal/repository/search"
	ollamaEmb "github.com/kailas-cloud/docquery/internal/transport/ollama"
	openaiEmb "github.com/kailas-cloud/docquery/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/docquery/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docquery/internal/usecase/health"
	queryuc "github.com/kailas-cloud/docquery/internal/usecase/query"
)

// App holds the wired pipeline and the resources it owns.
type App struct {
	Resolver *queryuc.Service
	Health   *healthuc.Service
	Search   *searchrepo.Repo
	Embedder domain.Embedder

	connector *db.LazyConnector
	closers   []func()
}

// New wires the pipeline. No network connection is opened here: the vector
// store is dialled lazily on the first request.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	dial, err := dialer(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	a := &App{connector: db.NewLazyConnector(cfg.VectorStore.Driver, dial)}
	a.closers = append(a.closers, a.connector.Close)

	a.Embedder, err = a.buildEmbedder(cfg.Embedding, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Search = searchrepo.New(a.connector, searchrepo.Options{
		Scope:      searchrepo.Scope(cfg.VectorStore.CategoryScope),
		Collection: cfg.VectorStore.Collection,
		PayloadKey: cfg.VectorStore.PayloadKey,
	})

	a.Resolver = queryuc.New(
		a.Search, a.Embedder, a.Search, content.NewFileLoader(cfg.Content.Root),
		queryuc.Options{
			Category:      cfg.Query.Category,
			Threshold:     cfg.Query.Threshold(),
			PayloadKey:    cfg.VectorStore.PayloadKey,
			EmbedderName:  cfg.Embedding.Provider,
			StoreName:     cfg.VectorStore.Driver,
			EmbedTimeout:  cfg.Embedding.Timeout(),
			SearchTimeout: cfg.VectorStore.Timeout(),
		},
		logger,
	)

	var checker healthuc.EmbeddingProvider
	if hc, ok := a.Embedder.(domain.HealthChecker); ok {
		checker = hc
	}
	a.Health = healthuc.New(a.Search, checker)

	return a, nil
}

// WaitForStore blocks until the vector store answers a ping or timeout expires.
func (a *App) WaitForStore(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	store, err := a.connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect %s: %w", a.connector.Name(), err)
	}
	if err := db.WaitForReady(ctx, store, timeout); err != nil {
		return fmt.Errorf("wait for %s: %w", a.connector.Name(), err)
	}
	return nil
}

// Close releases every owned client in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// buildEmbedder assembles the decorator chain: provider -> cache -> instrumented -> instruction.
func (a *App) buildEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) (domain.Embedder, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout()}

	var base domain.Embedder
	switch cfg.Provider {
	case config.ProviderOllama:
		emb, err := ollamaEmb.NewEmbedder(&ollamaEmb.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("ollama embedder: %w", err)
		}
		base = emb
	case config.ProviderOpenAI:
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			HTTPClient: httpClient,
			Logger:     logger,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	embedder := base
	if cfg.Cache.Enabled {
		kv, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
		a.closers = append(a.closers, kv.Close)
		embedder = embcache.New(embedder, kv, embcache.Options{
			Model:       cfg.Model,
			TTL:         cfg.Cache.TTL(),
			CallTimeout: cfg.Timeout(),
			Counter:     metrics.EmbeddingCacheTotal,
		}, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)

	// Outermost, so cache keys include the instruction.
	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}

	return embedder, nil
}

// dialer returns the constructor for the configured vector store driver.
func dialer(cfg config.VectorStoreConfig) (db.DialFunc, error) {
	switch cfg.Driver {
	case config.DriverQdrant:
		return func(context.Context) (db.Store, error) {
			return dbQdrant.NewStore(dbQdrant.Config{
				Host:   cfg.Host,
				Port:   cfg.Port,
				APIKey: cfg.APIKey,
				UseTLS: cfg.UseTLS,
			})
		}, nil
	case config.DriverRedis, config.DriverValkey:
		return func(context.Context) (db.Store, error) {
			return dbRedis.NewStore(dbRedis.Config{
				Addrs:    cfg.Addrs,
				Username: cfg.Username,
				Password: cfg.Password,
			})
		}, nil
	case config.DriverPostgres:
		return func(ctx context.Context) (db.Store, error) {
			return dbPostgres.NewStore(ctx, cfg.DSN)
		}, nil
	default:
		return nil, fmt.Errorf("unknown vector store driver %q", cfg.Driver)
	}
}
