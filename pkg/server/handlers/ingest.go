package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgarlens/factgraph"
	"github.com/edgarlens/factgraph/pkg/ingest"
)

// IngestHandler handles bulk ingestion requests
type IngestHandler struct {
	client factgraph.FactGraph
	logger *slog.Logger
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(client factgraph.FactGraph, logger *slog.Logger) *IngestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestHandler{client: client, logger: logger}
}

type ingestRequest struct {
	Items []ingest.Item `json:"items" binding:"required"`
}

// Ingest handles POST /api/v1/ingest, blocking until the batch finished.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", "items array is required and cannot be empty")
		return
	}

	result, err := h.client.Ingest(c.Request.Context(), req.Items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// IngestStream handles POST /api/v1/ingest/stream, emitting one SSE event
// per pipeline step and a final result event.
func (h *IngestHandler) IngestStream(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", "items array is required and cannot be empty")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	resultCh, events := h.client.IngestStream(c.Request.Context(), req.Items)

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			if result := <-resultCh; result != nil {
				h.writeSSE(c, "result", result)
			}
			return false
		}
		h.writeSSE(c, string(event.Type), event)
		return true
	})
}

func (h *IngestHandler) writeSSE(c *gin.Context, name string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("failed to encode stream event", "event", name, "error", err)
		return
	}
	c.SSEvent(name, string(data))
	c.Writer.Flush()
}
