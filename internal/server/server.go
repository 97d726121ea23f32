// Package server exposes a game session to the browser UI over HTTP.
// The session itself is a plain in-process engine; this is the thin
// surface the rendering layer talks to.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/geocoin-engine/internal/core/config"
	"github.com/mohammed-shakir/geocoin-engine/internal/core/health"
	"github.com/mohammed-shakir/geocoin-engine/internal/core/middleware"
	"github.com/mohammed-shakir/geocoin-engine/internal/game"
)

// NewRouter builds the HTTP routes for one session.
func NewRouter(logger *slog.Logger, s *game.Session, ready func() error) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(ready))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.With(middleware.Metrics("/state")).Get("/state", handleState(s))
	r.With(middleware.Metrics("/move")).Post("/move", handleMove(s))
	r.With(middleware.Metrics("/collect")).Post("/collect", handleCollect(s))
	r.With(middleware.Metrics("/deposit")).Post("/deposit", handleDeposit(s))
	r.With(middleware.Metrics("/hot")).Get("/hot", handleHot(s))

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, s *game.Session, ready func() error) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(logger, s, ready),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
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
