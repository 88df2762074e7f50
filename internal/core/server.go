// Package core provides the API chassis for the StockWatch alert platform:
// a chi router with the cross-cutting middleware chain, response envelope
// helpers, and the structured-logger adapter shared by the entrypoints.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stockwatch/internal/config"
)

// Server bundles the API's cross-cutting dependencies and router. Domain
// handlers are mounted by the caller after construction.
type Server struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	router *chi.Mux
}

// NewServer creates the chassis with its global middleware chain installed.
func NewServer(cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config: cfg,
		Logger: logger,
		Pool:   pool,
		router: chi.NewRouter(),
	}

	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(logger))

	s.router.Get("/health", s.HandleHealth)

	return s, nil
}

// Handler returns the router as an http.Handler for http.Server.
func (s *Server) Handler() http.Handler { return s.router }

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux { return s.router }

// HandleHealth is the liveness endpoint: process up, database reachable.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.Pool != nil {
		if err := s.Pool.Ping(r.Context()); err != nil {
			s.Logger.Error("health check database ping failed", "error", err.Error())
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	JSON(w, r, code, APIResponse{Data: map[string]string{
		"status":  status,
		"service": s.Config.Service,
	}})
}

// Shutdown releases server-held resources after the HTTP listener drains.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	if s.Pool != nil {
		s.Pool.Close()
	}
	s.Logger.Info("server shutdown complete")
	return nil
}
