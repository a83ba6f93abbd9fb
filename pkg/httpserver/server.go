// Package httpserver exposes the agent's operational surface: Prometheus
// metrics, health and readiness probes, a read-only JSON API over the
// in-memory scan state, and the dashboard WebSocket stream.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vaibhav0806/prophit-sub001/pkg/healthprobe"
	"github.com/vaibhav0806/prophit-sub001/pkg/websocket"
)

// Server provides HTTP endpoints for metrics, health checks, and the
// read-only trading API.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration. The API sources and the stream hub
// are optional; routes are only mounted for the ones provided.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Opportunities OpportunitySource
	Quotes        QuoteSource
	Positions     PositionSource
	Stream        *websocket.Hub
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	api := &apiHandler{
		opportunities: cfg.Opportunities,
		quotes:        cfg.Quotes,
		positions:     cfg.Positions,
		logger:        cfg.Logger,
	}

	// Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/metrics", promhttp.Handler().ServeHTTP)
		r.Get("/health", cfg.HealthChecker.Health())
		r.Get("/ready", cfg.HealthChecker.Ready())

		if cfg.Opportunities != nil {
			r.Get("/api/opportunities", api.HandleOpportunities)
		}
		if cfg.Quotes != nil {
			r.Get("/api/quotes", api.HandleQuotes)
		}
		if cfg.Positions != nil {
			r.Get("/api/positions", api.HandlePositions)
		}
	})

	// The stream holds its connection open for the client's lifetime, so
	// it stays outside the request timeout group.
	if cfg.Stream != nil {
		r.Get("/ws/opportunities", cfg.Stream.Handler())
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
