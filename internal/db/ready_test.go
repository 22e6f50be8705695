package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("not yet")
	}
	return nil
}

func TestWaitForReady_EventuallyReady(t *testing.T) {
	p := &flakyPinger{failures: 2}
	if err := WaitForReady(context.Background(), p, 2*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 pings, got %d", p.calls)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	p := &flakyPinger{failures: 1 << 30}
	err := WaitForReady(context.Background(), p, 250*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
