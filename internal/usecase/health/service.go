package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as report keys.
const (
	ComponentVectorStore = "vector_store"
	ComponentEmbedding   = "embedding"
)

const defaultCheckTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
	// Errors holds the failure message per failed component. Not exposed over HTTP.
	Errors map[string]string `json:"-"`
}

// Service coordinates health checks.
type Service struct {
	store     VectorStore
	embedding EmbeddingProvider
	timeout   time.Duration
}

// New creates a Service. embedding can be nil.
func New(store VectorStore, embedding EmbeddingProvider) *Service {
	return &Service{store: store, embedding: embedding, timeout: defaultCheckTimeout}
}

// WithTimeout bounds each component check.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs the component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	probes := map[string]func(context.Context) error{
		ComponentVectorStore: s.store.Ping,
	}
	if s.embedding != nil {
		probes[ComponentEmbedding] = s.embedding.HealthCheck
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(probes))
		errs   = make(map[string]string)
	)

	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()

			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			err := probe(cctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[name] = CheckError
				errs[name] = err.Error()
				return
			}
			checks[name] = CheckOK
		}()
	}
	wg.Wait()

	return Report{Status: aggregate(checks), Checks: checks, Errors: errs}
}

func aggregate(checks map[string]CheckResult) Status {
	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}
	switch {
	case failed == 0:
		return Healthy
	case failed == len(checks):
		return Unhealthy
	default:
		return Degraded
	}
}
