package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edgarlens/factgraph"
	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/retrieval"
	"github.com/edgarlens/factgraph/pkg/server/dto"
	"github.com/edgarlens/factgraph/pkg/types"
)

// FactsHandler handles fact queries, conflicts and corrections
type FactsHandler struct {
	client factgraph.FactGraph
}

// NewFactsHandler creates a new facts handler
func NewFactsHandler(client factgraph.FactGraph) *FactsHandler {
	return &FactsHandler{client: client}
}

// Facts handles POST /api/v1/facts
func (h *FactsHandler) Facts(c *gin.Context) {
	var req dto.FactsQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	filter := &factstore.AssertionFilter{
		SubjectEntityID:  req.SubjectEntityID,
		Predicate:        types.Predicate(req.Predicate),
		ObjectEntityID:   req.ObjectEntityID,
		SourceDocumentID: req.SourceDocumentID,
		Status:           types.AssertionStatus(req.Status),
		MinConfidence:    req.MinConfidence,
		Limit:            req.Limit,
	}

	facts, err := h.client.Facts(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facts": facts, "total": len(facts)})
}

// Citations handles POST /api/v1/citations
func (h *FactsHandler) Citations(c *gin.Context) {
	var req retrieval.CitationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.ChunkIDs) == 0 && len(req.AssertionIDs) == 0 {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", "chunk_ids or assertion_ids must be provided")
		return
	}

	citations, err := h.client.Citations(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"citations": citations, "total": len(citations)})
}

// Conflicts handles GET /api/v1/conflicts?predicate=...
func (h *FactsHandler) Conflicts(c *gin.Context) {
	var predicates []types.Predicate
	for _, raw := range c.QueryArray("predicate") {
		predicates = append(predicates, types.Predicate(strings.ToUpper(raw)))
	}

	groups, err := h.client.Conflicts(c.Request.Context(), predicates)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": groups, "total": len(groups)})
}

// ApplyCorrection handles POST /api/v1/corrections
func (h *FactsHandler) ApplyCorrection(c *gin.Context) {
	var req dto.CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ctx := c.Request.Context()
	switch types.CorrectionAction(strings.ToLower(req.Action)) {
	case types.ActionRetract:
		result, err := h.client.Retract(ctx, req.AssertionID, req.Reason, req.CreatedBy)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	case types.ActionSupersede:
		result, err := h.client.Supersede(ctx, req.AssertionID, req.Replacement, req.Reason, req.CreatedBy)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	case types.ActionOverride:
		result, err := h.client.Override(ctx, req.AssertionID, req.Replacement, req.Reason, req.CreatedBy)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// Reproject handles POST /api/v1/reproject
func (h *FactsHandler) Reproject(c *gin.Context) {
	var req dto.ReprojectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	count, err := h.client.Reproject(c.Request.Context(), req.AssertionIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"edges_projected": count})
}
