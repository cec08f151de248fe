package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/groupe-jds/doku-seal/internal/metrics"
	"github.com/rs/zerolog/log"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// MetricsHandler handles metrics-related HTTP requests
type MetricsHandler struct {
	metrics *metrics.Metrics
	checks  map[string]HealthCheck
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(m *metrics.Metrics, checks map[string]HealthCheck) *MetricsHandler {
	return &MetricsHandler{
		metrics: m,
		checks:  checks,
	}
}

// HandleGetMetrics returns all metrics
func (h *MetricsHandler) HandleGetMetrics(c *gin.Context) {
	h.metrics.SetGauge("goroutines", int64(runtime.NumGoroutine()))
	c.JSON(http.StatusOK, h.metrics.GetAllMetrics())
}

// HandleGetHealthCheck probes every dependency and returns a simplified health status
func (h *MetricsHandler) HandleGetHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	for name, check := range h.checks {
		err := check(ctx)
		if err != nil {
			log.Warn().Err(err).Str("component", name).Msg("Health check failed")
		}
		h.metrics.SetHealth(name, err == nil)
	}

	healthChecks := h.metrics.GetHealthChecks()
	healthy := true
	for _, ok := range healthChecks {
		if !ok {
			healthy = false
			break
		}
	}

	status := http.StatusOK
	text := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		text = "unavailable"
	}

	c.JSON(status, gin.H{
		"status":  text,
		"details": healthChecks,
	})
}

// RegisterRoutes registers the handler's routes
func (h *MetricsHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/metrics", h.HandleGetMetrics)
	router.GET("/health", h.HandleGetHealthCheck)
}
