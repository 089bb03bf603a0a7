// Package core provides the HTTP chassis for the commutewatch service: a chi
// router with the cross-cutting middleware chain (panic recovery, request
// IDs, security headers, structured request logging, CORS, metrics) and the
// shared JSON response helpers. Domain handlers mount onto it through route
// registrars so core stays free of handler imports.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"commutewatch/internal/config"
)

// MetricsCollector records API request telemetry.
type MetricsCollector interface {
	RecordRequest(method, route string, status int, duration time.Duration)
}

// HealthProbe checks one dependency for the health endpoint.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server holds the chassis dependencies and the router.
type Server struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics MetricsCollector
	Probes  []HealthProbe

	// V1Registrars mount domain routes under /v1. Populated by main before
	// MountRoutes; the indirection avoids import cycles with handler
	// packages.
	V1Registrars []func(chi.Router)

	// MetricsHandler serves the Prometheus scrape endpoint.
	MetricsHandler http.Handler

	router *chi.Mux
}

// NewServer prepares a Server with an empty router. The caller mounts routes
// after construction.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config: cfg,
		Logger: logger,
		router: chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for tests and route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}
