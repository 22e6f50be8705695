package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/app"
	"github.com/kailas-cloud/docquery/internal/config"
	logpkg "github.com/kailas-cloud/docquery/internal/logger"
	"github.com/kailas-cloud/docquery/internal/metrics"
	chiTransport "github.com/kailas-cloud/docquery/internal/transport/chi"
	"github.com/kailas-cloud/docquery/internal/version"
)

func main() {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docquery",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("vector_store", cfg.VectorStore.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Float64("score_threshold", cfg.Query.Threshold()),
	)

	metrics.Register()

	a, err := app.New(&cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build application", zap.Error(err))
	}
	defer a.Close()

	// The store is dialled lazily per request, so a slow store only delays readiness.
	if cfg.VectorStore.ReadinessTimeoutSec > 0 {
		timeout := time.Duration(cfg.VectorStore.ReadinessTimeoutSec) * time.Second
		if err := a.WaitForStore(context.Background(), timeout); err != nil {
			logger.Warn("Vector store not ready, serving anyway", zap.Error(err))
		} else {
			logger.Info("Connected to vector store")
		}
	}

	servers := []*http.Server{
		newServer(cfg.HTTP.Port, chiTransport.NewRouter(a.Resolver, chiTransport.Options{
			MaxBodyBytes:        cfg.HTTP.MaxBodyBytes,
			LivenessOK:          cfg.HTTP.LivenessOKStatus,
			CategoryFromRequest: cfg.Query.CategoryFromRequest,
			APIKeys:             cfg.Auth.APIKeys,
		}, logger), cfg.HTTP),
	}
	if cfg.Admin.Port > 0 {
		servers = append(servers, newServer(cfg.Admin.Port, chiTransport.NewAdminRouter(a.Health, logger), cfg.HTTP))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for _, srv := range servers {
		go func() {
			logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("HTTP server error", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}()
	}

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}

	logger.Info("Server stopped gracefully")
}

func newServer(port int, h http.Handler, cfg config.HTTPConfig) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: time.Duration(cfg.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}
}
