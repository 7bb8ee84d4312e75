package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgarlens/factgraph"
	"github.com/edgarlens/factgraph/pkg/server/dto"
)

// GraphHandler handles traversal and path requests
type GraphHandler struct {
	client factgraph.FactGraph
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(client factgraph.FactGraph) *GraphHandler {
	return &GraphHandler{client: client}
}

// Traverse handles POST /api/v1/graph/traverse
func (h *GraphHandler) Traverse(c *gin.Context) {
	var req dto.TraverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.client.Traverse(c.Request.Context(), req.SeedEntityIDs, req.Depth, req.EdgeTypes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Explain handles POST /api/v1/graph/explain
func (h *GraphHandler) Explain(c *gin.Context) {
	var req dto.ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.client.Explain(c.Request.Context(), req.FromEntityID, req.ToEntityID, req.MaxHops, req.EdgeTypes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
