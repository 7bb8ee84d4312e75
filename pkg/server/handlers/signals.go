package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edgarlens/factgraph"
	"github.com/edgarlens/factgraph/pkg/server/dto"
	"github.com/edgarlens/factgraph/pkg/signals"
	"github.com/edgarlens/factgraph/pkg/types"
)

// SignalsHandler handles signal ingestion and screening requests
type SignalsHandler struct {
	client factgraph.FactGraph
}

// NewSignalsHandler creates a new signals handler
func NewSignalsHandler(client factgraph.FactGraph) *SignalsHandler {
	return &SignalsHandler{client: client}
}

// UpsertSignal handles POST /api/v1/signals
func (h *SignalsHandler) UpsertSignal(c *gin.Context) {
	var req dto.SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	signal, err := h.client.UpsertSignal(c.Request.Context(), &types.Signal{
		ExternalID: req.ExternalID,
		SignalKey:  req.SignalKey,
		AsOfDate:   req.AsOfDate,
		Value:      req.Value,
		Source:     req.Source,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, signal)
}

// Screen handles POST /api/v1/signals/screen
func (h *SignalsHandler) Screen(c *gin.Context) {
	var req signals.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.EpsSignalKey) == "" || strings.TrimSpace(req.FlowSignalKey) == "" {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", "eps_signal_key and flow_signal_key are required")
		return
	}

	candidates, err := h.client.Screen(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates, "total": len(candidates)})
}
