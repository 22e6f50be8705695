// Package embcache memoizes query embeddings in Redis or Valkey so repeated
// questions skip the embedding provider.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/docquery/internal/db"
	"github.com/kailas-cloud/docquery/internal/domain"
)

const keyPrefix = "docquery:emb_cache:"

// DefaultCallTimeout bounds a shared provider call when Options.CallTimeout is unset.
const DefaultCallTimeout = 30 * time.Second

// Cache outcomes, used as the "result" label.
const (
	resultHit  = "hit"
	resultMiss = "miss"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures a CachedEmbedder.
type Options struct {
	// Model scopes keys; vectors from another model never match.
	Model string
	TTL   time.Duration
	// CallTimeout bounds a shared provider call independently of any one
	// caller's context.
	CallTimeout time.Duration
	// Counter is a counter vec labelled "result". Optional.
	Counter *prometheus.CounterVec
}

// CachedEmbedder wraps an embedder with a read-through cache. Concurrent
// misses for the same text share one provider call.
type CachedEmbedder struct {
	inner  domain.Embedder
	kv     kv
	opts   Options
	group  singleflight.Group
	logger *zap.Logger
}

// New wraps inner. Cache failures are logged and never fail a request.
func New(inner domain.Embedder, store kv, opts Options, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &CachedEmbedder{inner: inner, kv: store, opts: opts, logger: logger}
}

// Embed serves text from the cache, falling back to the inner embedder.
// A hit reports zero tokens since the provider was not called. The shared
// provider call is detached from the caller, so one caller's cancellation
// does not fail the others waiting on the same text.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count(resultHit)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.count(resultMiss)

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.CallTimeout)
		defer cancel()

		res, err := c.inner.Embed(callCtx, text)
		if err != nil {
			return domain.EmbeddingResult{}, err
		}
		c.store(callCtx, key, res.Embedding)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", r.Err)
		}
		return r.Val.(domain.EmbeddingResult), nil
	}
}

// HealthCheck reports the inner embedder's health; the cache is optional.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := c.inner.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.opts.Model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	raw, err := c.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	vec, err := decodeEntry(raw)
	if err != nil {
		c.logger.Warn("Discarding embedding cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	if err := c.kv.SetWithTTL(ctx, key, encodeEntry(vec), c.opts.TTL); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.opts.Counter != nil {
		c.opts.Counter.WithLabelValues(result).Inc()
	}
}
