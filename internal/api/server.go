package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/heron/internal/assess"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/indicators"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *indicators.Engine, pipeline *assess.Pipeline, version string) *Server {
	handler := NewHandler(repo, cache, bus, engine, pipeline, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Route("/", func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Dataset ingest and assessment
		r.Post("/customers/{id}/dataset", handler.IngestDataset)
		r.Post("/customers/{id}/assess", handler.Assess)

		// Assessment retrieval
		r.Get("/assessments/{id}", handler.GetAssessment)
		r.Get("/customers/{id}/assessments/latest", handler.LatestAssessment)
		r.Get("/customers/{id}/assessments", handler.ListAssessments)

		// Indicator checklist management
		r.Get("/indicators", handler.ListIndicators)
		r.Get("/indicators/{id}", handler.GetIndicator)
		r.Post("/indicators", handler.CreateIndicator)
		r.Post("/indicators/reload", handler.ReloadIndicators)

		// Scoring configuration
		r.Get("/config/scoring", handler.GetScoringConfig)
		r.Put("/config/scoring", handler.UpdateScoringConfig)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
