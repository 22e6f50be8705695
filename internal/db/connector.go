package db

import (
	"context"
	"sync"
)

// DialFunc constructs a Store.
type DialFunc func(ctx context.Context) (Store, error)

// LazyConnector dials on first use and caches the Store. A failed dial is
// returned to the caller and retried on the next Connect. Dials run outside
// the lock, so a stalled dial blocks only its own caller.
type LazyConnector struct {
	name string
	dial DialFunc

	mu    sync.Mutex
	store Store
}

var _ Connector = (*LazyConnector)(nil)

// NewLazyConnector creates a connector for the named backend.
func NewLazyConnector(name string, dial DialFunc) *LazyConnector {
	return &LazyConnector{name: name, dial: dial}
}

// Name returns the backend name.
func (c *LazyConnector) Name() string { return c.name }

// Connect returns the cached Store or dials a new one.
func (c *LazyConnector) Connect(ctx context.Context) (Store, error) {
	if s := c.cached(); s != nil {
		return s, nil
	}

	s, err := c.dial(ctx)
	if err != nil {
		return nil, &Error{Op: OpConnect, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A concurrent dial won the race; keep its Store.
	if c.store != nil {
		s.Close()
		return c.store, nil
	}
	c.store = s
	return s, nil
}

func (c *LazyConnector) cached() Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

// Close releases the cached Store, if any.
func (c *LazyConnector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		c.store.Close()
		c.store = nil
	}
}
