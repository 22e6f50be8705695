package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/metrics"
	healthuc "github.com/kailas-cloud/docquery/internal/usecase/health"
	queryuc "github.com/kailas-cloud/docquery/internal/usecase/query"
)

// Options configures the public router.
type Options struct {
	MaxBodyBytes int64
	// LivenessOK answers /isalive with 200 instead of 500.
	LivenessOK bool
	// CategoryFromRequest honours the body's category instead of the configured one.
	CategoryFromRequest bool
	// APIKeys enables bearer auth when non-empty.
	APIKeys []string
}

// NewRouter builds the public listener: POST /query, GET /isalive, and a JSON 404 for everything else.
func NewRouter(resolver queryuc.Resolver, opts Options, log *zap.Logger) http.Handler {
	s := NewServer(resolver, opts, log)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(log))
	r.Use(requestID)
	r.Use(wideEventMiddleware(log))
	r.Use(BearerAuthMiddleware(opts.APIKeys))
	r.Use(metrics.Middleware())

	r.Post("/query", s.Query)
	r.Get("/isalive", s.IsAlive)
	r.NotFound(s.NotFound)
	r.MethodNotAllowed(s.NotFound)

	return r
}

// NewAdminRouter builds the operator listener: /metrics and /readyz.
func NewAdminRouter(health *healthuc.Service, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(log))

	r.Handle("/metrics", metrics.Handler())
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		report := health.Check(req.Context())
		status := http.StatusOK
		if report.Status != healthuc.Healthy {
			status = http.StatusServiceUnavailable
			logger := log
			for name, msg := range report.Errors {
				logger = logger.With(zap.String(name, msg))
			}
			logger.Warn("Readiness check failed", zap.String("status", string(report.Status)))
		}
		writeJSON(w, status, report)
	})

	return r
}
