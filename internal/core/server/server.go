// Package server wires the HTTP routes and runs the listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/sos-gateway/internal/core/config"
	"github.com/mohammed-shakir/sos-gateway/internal/core/health"
	middleware "github.com/mohammed-shakir/sos-gateway/internal/core/middleware"
	"github.com/mohammed-shakir/sos-gateway/internal/core/router"
	"github.com/mohammed-shakir/sos-gateway/internal/storage"
)

// NewHandler builds the chi router. metrics may be nil, in which case the
// default Prometheus registry is served.
func NewHandler(cfg config.Config, logger *slog.Logger, store storage.Store, d router.Dispatcher, metrics http.Handler) http.Handler {
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(store, 2*time.Second))
	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics)
	}

	sos := router.HandleSOS(logger, cfg, store, d)
	r.Get(cfg.Resource, sos)
	r.Post(cfg.Resource, sos)
	return r
}

// Run serves h on cfg.Addr until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, h http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr, "resource", cfg.Resource)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
