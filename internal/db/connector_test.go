package db

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeStore struct {
	closed atomic.Bool
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) SearchKNN(context.Context, *KNNQuery) (*SearchResult, error) {
	return &SearchResult{}, nil
}
func (f *fakeStore) Close() { f.closed.Store(true) }

func TestLazyConnector_CachesStore(t *testing.T) {
	calls := 0
	c := NewLazyConnector("qdrant", func(context.Context) (Store, error) {
		calls++
		return &fakeStore{}, nil
	})

	s1, err := c.Connect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, err := c.Connect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s1 != s2 {
		t.Error("expected cached store on second connect")
	}
	if calls != 1 {
		t.Errorf("expected 1 dial, got %d", calls)
	}
	if c.Name() != "qdrant" {
		t.Errorf("unexpected name %q", c.Name())
	}
}

func TestLazyConnector_RetriesAfterFailure(t *testing.T) {
	dialErr := errors.New("bad url")
	calls := 0
	c := NewLazyConnector("qdrant", func(context.Context) (Store, error) {
		calls++
		if calls == 1 {
			return nil, dialErr
		}
		return &fakeStore{}, nil
	})

	_, err := c.Connect(context.Background())
	if !errors.Is(err, dialErr) {
		t.Fatalf("expected dial error, got %v", err)
	}
	var dbErr *Error
	if !errors.As(err, &dbErr) || dbErr.Op != OpConnect {
		t.Errorf("expected *Error with op %s, got %v", OpConnect, err)
	}

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("expected second connect to succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 dials, got %d", calls)
	}
}

func TestLazyConnector_Close(t *testing.T) {
	fs := &fakeStore{}
	c := NewLazyConnector("redis", func(context.Context) (Store, error) { return fs, nil })

	if _, err := c.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Close()
	if !fs.closed.Load() {
		t.Error("expected store to be closed")
	}
	c.Close()
}

func TestLazyConnector_StalledDialDoesNotBlockOthers(t *testing.T) {
	healthy := &fakeStore{}
	var calls atomic.Int32
	c := NewLazyConnector("qdrant", func(ctx context.Context) (Store, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return healthy, nil
	})

	stalledCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var stalledErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, stalledErr = c.Connect(stalledCtx)
	}()

	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	done := make(chan Store, 1)
	go func() {
		s, err := c.Connect(context.Background())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- s
	}()

	select {
	case s := <-done:
		if s != healthy {
			t.Error("expected the healthy store")
		}
	case <-time.After(time.Second):
		t.Fatal("connect blocked behind a stalled dial")
	}
	if c.Name() != "qdrant" {
		t.Errorf("unexpected name %q", c.Name())
	}

	cancel()
	wg.Wait()
	if !errors.Is(stalledErr, context.Canceled) {
		t.Errorf("expected canceled dial, got %v", stalledErr)
	}

	s, err := c.Connect(context.Background())
	if err != nil || s != healthy {
		t.Errorf("expected cached healthy store, got %v, %v", s, err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 dials, got %d", calls.Load())
	}
}

func TestLazyConnector_ConcurrentDialKeepsFirstStore(t *testing.T) {
	first, second := &fakeStore{}, &fakeStore{}
	release := make(chan struct{})
	var calls atomic.Int32
	c := NewLazyConnector("redis", func(context.Context) (Store, error) {
		if calls.Add(1) == 1 {
			<-release
			return second, nil
		}
		return first, nil
	})

	var wg sync.WaitGroup
	var late Store
	wg.Add(1)
	go func() {
		defer wg.Done()
		late, _ = c.Connect(context.Background())
	}()
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	if s, err := c.Connect(context.Background()); err != nil || s != first {
		t.Fatalf("expected first store, got %v, %v", s, err)
	}
	close(release)
	wg.Wait()

	if late != first {
		t.Error("late dial should return the cached store")
	}
	if !second.closed.Load() {
		t.Error("expected the losing store to be closed")
	}
	if first.closed.Load() {
		t.Error("cached store must stay open")
	}
}
