// Package dto holds the request and response shapes of the HTTP API.
package dto

import (
	"errors"
	"strings"
	"time"

	"github.com/edgarlens/factgraph/pkg/types"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// FactsQuery selects assertions. At least one selective dimension must be
// set; an empty query returns an empty result.
type FactsQuery struct {
	SubjectEntityID  string  `json:"subject_entity_id,omitempty"`
	Predicate        string  `json:"predicate,omitempty"`
	ObjectEntityID   string  `json:"object_entity_id,omitempty"`
	SourceDocumentID string  `json:"source_document_id,omitempty"`
	Status           string  `json:"status,omitempty"`
	MinConfidence    float64 `json:"min_confidence,omitempty"`
	Limit            int     `json:"limit,omitempty"`
}

// TraverseRequest walks the graph outward from seed entities.
type TraverseRequest struct {
	SeedEntityIDs []string `json:"seed_entity_ids" binding:"required"`
	Depth         int      `json:"depth,omitempty"`
	EdgeTypes     []string `json:"edge_types,omitempty"`
}

// ExplainRequest asks for one shortest path between two entities.
type ExplainRequest struct {
	FromEntityID string   `json:"from_entity_id" binding:"required"`
	ToEntityID   string   `json:"to_entity_id" binding:"required"`
	MaxHops      int      `json:"max_hops,omitempty"`
	EdgeTypes    []string `json:"edge_types,omitempty"`
}

// CorrectionRequest applies one correction to an assertion.
type CorrectionRequest struct {
	AssertionID string                `json:"assertion_id" binding:"required"`
	Action      string                `json:"action" binding:"required"` // retract, supersede, override
	Reason      string                `json:"reason,omitempty"`
	CreatedBy   string                `json:"created_by,omitempty"`
	Replacement *types.AssertionDraft `json:"replacement,omitempty"`
}

// Validate checks action and replacement consistency before dispatch.
func (r *CorrectionRequest) Validate() error {
	switch types.CorrectionAction(strings.ToLower(r.Action)) {
	case types.ActionRetract:
		if r.Replacement != nil {
			return errors.New("retract does not take a replacement")
		}
	case types.ActionSupersede, types.ActionOverride:
		if r.Replacement == nil {
			return errors.New("supersede and override require a replacement")
		}
	default:
		return errors.New("action must be retract, supersede, or override")
	}
	return nil
}

// ReprojectRequest re-applies graph edges for the given assertions.
type ReprojectRequest struct {
	AssertionIDs []string `json:"assertion_ids" binding:"required"`
}

// SignalRequest records one time-series observation.
type SignalRequest struct {
	ExternalID string    `json:"external_id" binding:"required"`
	SignalKey  string    `json:"signal_key" binding:"required"`
	AsOfDate   time.Time `json:"as_of_date" binding:"required"`
	Value      float64   `json:"value"`
	Source     string    `json:"source,omitempty"`
}
