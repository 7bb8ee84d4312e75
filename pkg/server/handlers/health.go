package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edgarlens/factgraph"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests
type HealthHandler struct {
	client factgraph.FactGraph
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(client factgraph.FactGraph) *HealthHandler {
	return &HealthHandler{client: client}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "factgraph",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// LivenessCheck handles GET /live
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// ReadinessCheck handles GET /ready. Readiness means both stores answer a
// stats query within the timeout.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := gin.H{
		"status":    "ready",
		"service":   "factgraph",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.client == nil {
		response["status"] = "not_ready"
		response["error"] = "client not initialized"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	start := time.Now()
	stats, err := h.client.Stats(ctx)
	duration := time.Since(start)

	if err != nil {
		response["status"] = "not_ready"
		response["error"] = err.Error()
		response["duration"] = duration.String()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response["duration"] = duration.String()
	response["stats"] = stats
	c.JSON(http.StatusOK, response)
}
