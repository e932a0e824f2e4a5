// Package core provides the API chassis for the brineguard review service:
// a chi router with the cross-cutting middleware chain (recovery, request
// IDs, logging, metrics, CORS), the standard response envelopes, and the
// health endpoint.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"brineguard/internal/config"
)

// MetricsCollector records API telemetry. Implementations publish request
// latency and count metrics to CloudWatch or equivalent backends.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RouteRegistrar mounts one domain handler group onto the v1 router. The
// indirection keeps core free of handler package imports.
type RouteRegistrar func(r chi.Router)

// Server bundles the API dependencies so tests can inject fakes and
// environments can differ in configuration only.
type Server struct {
	Config            *config.Config
	Logger            *slog.Logger
	Metrics           MetricsCollector
	HealthProbes      []HealthProbe
	V1RouteRegistrars []RouteRegistrar

	router *chi.Mux
}

// NewServer prepares the server for route mounting. The caller mounts routes
// via MountRoutes after registering handlers; this separation lets tests
// customize route registration.
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

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	s.Logger.Info("server shutdown complete")
	return nil
}
