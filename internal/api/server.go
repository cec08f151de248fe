package api

import (
	"context"
	"net/http"
	"time"

	"github.com/groupe-jds/doku-seal/config"
	"github.com/groupe-jds/doku-seal/internal/api/handlers"
	"github.com/groupe-jds/doku-seal/internal/api/middleware"
	"github.com/groupe-jds/doku-seal/internal/metrics"
	"github.com/groupe-jds/doku-seal/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators served over HTTP
type Dependencies struct {
	Envelopes    handlers.EnvelopeService
	Recipients   handlers.RecipientService
	Fields       handlers.FieldService
	Idempotency  handlers.IdempotencyStore
	Metrics      *metrics.Metrics
	HealthChecks map[string]handlers.HealthCheck
	Tracer       tracing.Tracer
}

// Server represents the HTTP server
type Server struct {
	config     config.ServerConfig
	deps       Dependencies
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Dependencies) (*Server, error) {
	if deps.Tracer == nil {
		deps.Tracer = tracing.Disabled()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics()
	}
	if err := handlers.RegisterValidations(); err != nil {
		return nil, err
	}

	server := &Server{
		config: cfg,
		deps:   deps,
	}
	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      server.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, nil
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.NewRelicMiddleware(s.deps.Tracer.Application()),
	)
	router.MaxMultipartMemory = s.config.MaxUploadBytes

	metricsHandler := handlers.NewMetricsHandler(s.deps.Metrics, s.deps.HealthChecks)
	metricsHandler.RegisterRoutes(router)

	v1 := router.Group("/api/v1", middleware.Identity())
	handlers.NewEnvelopeHandler(s.deps.Envelopes, s.deps.Idempotency, s.config.MaxUploadBytes, s.deps.Tracer).RegisterRoutes(v1)
	handlers.NewRecipientHandler(s.deps.Recipients, s.deps.Tracer).RegisterRoutes(v1)
	handlers.NewFieldHandler(s.deps.Fields, s.deps.Tracer).RegisterRoutes(v1)

	return router
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
