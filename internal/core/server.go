// Package core provides the HTTP chassis for the AirWatch API. It builds a
// chi router and enforces cross-cutting concerns (panic recovery, request
// IDs, security headers, logging, CORS, metrics, rate limiting) before
// requests reach the domain handlers.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"airwatch/internal/config"
	"airwatch/internal/types"
)

// MetricsCollector records API telemetry.
type MetricsCollector interface {
	// RecordRequest records latency for one request. endpoint is the chi route
	// pattern, not the raw path, to keep attribute cardinality bounded.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// HealthProbe is re-exported so callers can build probe lists without
// importing types.
type HealthProbe = types.HealthProbe

// Server encapsulates all dependencies for the API, allowing for easy
// injection during testing.
type Server struct {
	Config         *config.Config
	Logger         *slog.Logger
	Validator      *Validator
	Metrics        MetricsCollector
	RateLimitStore RateLimitStore
	HealthProbes   []HealthProbe

	// V1RouteRegistrars mount domain handlers under /v1. They are populated
	// by the entry point so core never imports handler packages.
	V1RouteRegistrars []func(chi.Router)

	// Closers are released in reverse order during Shutdown.
	Closers []io.Closer

	router *chi.Mux
}

// NewServer validates the critical dependencies and prepares the router.
// The caller mounts routes with MountRoutes after wiring optional fields.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases every registered Closer, last registered first, and
// returns the joined errors.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var errs []error
	for i := len(s.Closers) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.Closers[i].Close(); err != nil {
			s.Logger.Error("error closing resource", "error", err)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing resources: %w", err)
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
