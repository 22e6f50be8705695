package embcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/db"
	"github.com/kailas-cloud/docquery/internal/domain"
)

type fakeEmbedder struct {
	mu        sync.Mutex
	result    domain.EmbeddingResult
	err       error
	calls     int
	release   chan struct{} // when set, Embed blocks until closed
	healthErr error
	ctxErr    error // ctx.Err() observed once released
}

func (f *fakeEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.ctxErr = ctx.Err()
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeEmbedder) HealthCheck(context.Context) error { return f.healthErr }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memKV is an in-memory kv. getErr/setErr override the map when set.
type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	getHook func(key string) ([]byte, error)
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getHook != nil {
		return m.getHook(key)
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func newCached(t *testing.T, inner *fakeEmbedder, kv *memKV) *CachedEmbedder {
	t.Helper()
	return New(inner, kv, Options{Model: "nomic-embed-text", TTL: time.Hour}, zap.NewNop())
}
