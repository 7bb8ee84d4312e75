// Package handlers implements the HTTP endpoints.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgarlens/factgraph/pkg/server/dto"
	"github.com/edgarlens/factgraph/pkg/types"
)

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var (
		validation *types.ValidationError
		notFound   *types.NotFoundError
		conflict   *types.ConflictError
		upstream   *types.UpstreamError
	)

	switch {
	case errors.As(err, &validation):
		writeErrorJSON(c, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &notFound):
		writeErrorJSON(c, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &conflict):
		writeErrorJSON(c, http.StatusConflict, "conflict", err.Error())
	case errors.As(err, &upstream):
		writeErrorJSON(c, http.StatusBadGateway, "upstream_failed", err.Error())
	default:
		writeErrorJSON(c, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeErrorJSON(c *gin.Context, code int, kind, message string) {
	c.JSON(code, dto.ErrorResponse{Error: kind, Message: message, Code: code})
}
