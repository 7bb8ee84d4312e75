package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edgarlens/factgraph"
	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/retrieval"
	"github.com/edgarlens/factgraph/pkg/types"
)

// SearchHandler handles search and document listing requests
type SearchHandler struct {
	client factgraph.FactGraph
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(client factgraph.FactGraph) *SearchHandler {
	return &SearchHandler{client: client}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req retrieval.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", "query field is required and cannot be empty")
		return
	}

	result, err := h.client.Search(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Timeline handles POST /api/v1/timeline-search
func (h *SearchHandler) Timeline(c *gin.Context) {
	var req retrieval.TimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	entries, err := h.client.Timeline(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

// SearchEntities handles GET /api/v1/entities?q=...&type=...&limit=...
func (h *SearchHandler) SearchEntities(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", "q parameter is required")
		return
	}

	var entityTypes []types.EntityType
	for _, raw := range c.QueryArray("type") {
		entityTypes = append(entityTypes, types.EntityType(raw))
	}

	limit := 20
	if rawLimit := c.Query("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			writeErrorJSON(c, http.StatusBadRequest, "invalid_request", "limit must be a valid integer")
			return
		}
		limit = parsed
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	entities, err := h.client.SearchEntities(c.Request.Context(), query, entityTypes, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities, "total": len(entities)})
}

// ListDocuments handles GET /api/v1/documents
func (h *SearchHandler) ListDocuments(c *gin.Context) {
	filter := &factstore.DocumentFilter{
		Source:     c.Query("source"),
		DocType:    c.Query("doc_type"),
		ExternalID: c.Query("cik"),
	}

	if rawFrom := c.Query("from"); rawFrom != "" {
		from, err := time.Parse("2006-01-02", rawFrom)
		if err != nil {
			writeErrorJSON(c, http.StatusBadRequest, "invalid_request", "from must be a YYYY-MM-DD date")
			return
		}
		filter.From = &from
	}
	if rawTo := c.Query("to"); rawTo != "" {
		to, err := time.Parse("2006-01-02", rawTo)
		if err != nil {
			writeErrorJSON(c, http.StatusBadRequest, "invalid_request", "to must be a YYYY-MM-DD date")
			return
		}
		filter.To = &to
	}
	if rawLimit := c.Query("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil {
			writeErrorJSON(c, http.StatusBadRequest, "invalid_request", "limit must be a valid integer")
			return
		}
		filter.Limit = limit
	}

	docs, err := h.client.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "total": len(docs)})
}
