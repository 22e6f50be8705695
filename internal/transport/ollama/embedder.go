// Package ollama is the native Ollama embedding provider (POST /api/embed).
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/metrics"
)

const providerName = "ollama"

// Config holds the Ollama connection settings.
type Config struct {
	BaseURL    string // e.g. http://localhost:11434
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Embedder implements domain.Embedder against an Ollama server.
type Embedder struct {
	client *api.Client
	model  string
	logger *zap.Logger
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(cfg *Config) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client: api.NewClient(base, httpClient),
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordEmbedding(providerName, e.model, elapsed, 0, 0, errorType(err))
		return domain.EmbeddingResult{}, wrapError(err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		metrics.RecordEmbedding(providerName, e.model, elapsed, 0, 0, "empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.RecordEmbedding(providerName, e.model, elapsed, resp.PromptEvalCount, resp.PromptEvalCount, "")

	e.logger.Debug("Ollama embedding",
		zap.String("model", e.model),
		zap.Int("dims", len(resp.Embeddings[0])),
		zap.Int("prompt_tokens", resp.PromptEvalCount),
	)

	return domain.EmbeddingResult{
		Embedding:    resp.Embeddings[0],
		PromptTokens: resp.PromptEvalCount,
		TotalTokens:  resp.PromptEvalCount,
	}, nil
}

// HealthCheck pings the server root.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if err := e.client.Heartbeat(ctx); err != nil {
		return wrapError(err)
	}
	return nil
}

func wrapError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		return fmt.Errorf("ollama API error %d: %s: %w", statusErr.StatusCode, msg, domain.ErrEmbeddingProviderError)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("ollama request timed out: %w", domain.ErrEmbeddingProviderError)
	}
	return fmt.Errorf("ollama request failed: %v: %w", err, domain.ErrEmbeddingProviderError)
}

func errorType(err error) string {
	var statusErr api.StatusError
	switch {
	case errors.As(err, &statusErr):
		return "api_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport_error"
	}
}
