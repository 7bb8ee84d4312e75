// Package correction applies retract, supersede and override operations
// against the fact store and mirrors them into the graph projection.
//
// The state machine per assertion is active → retracted (terminal) or
// active → superseded (terminal, paired with a new active assertion).
// The fact-store writes of one correction commit in a single transaction;
// graph updates run after that commit as a best-effort side effect. A graph
// failure never rolls back the fact write: it is surfaced as a stale-
// projection result so callers know the fact is durably recorded.
package correction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/graph"
	"github.com/edgarlens/factgraph/pkg/types"
)

// Result reports exactly what one correction wrote and whether the graph
// projection is now stale. Ambiguity between "succeeded" and "succeeded
// with residual inconsistency" is always resolvable from this shape.
type Result struct {
	Action            types.CorrectionAction `json:"action"`
	TargetAssertionID string                 `json:"target_assertion_id"`
	NewAssertionID    string                 `json:"new_assertion_id,omitempty"`
	CorrectionID      string                 `json:"correction_id"`
	ValidTo           time.Time              `json:"valid_to"`
	EdgesClosed       int                    `json:"edges_closed"`
	EdgesCreated      int                    `json:"edges_created"`

	// StaleProjection is set when the fact store committed but a graph
	// update failed. The projection can be repaired with Reproject.
	StaleProjection bool   `json:"stale_projection"`
	StaleReason     string `json:"stale_reason,omitempty"`
}

// Engine coordinates corrections across the fact store and the projector.
type Engine struct {
	store     factstore.Store
	projector graph.Projector
	logger    *slog.Logger
}

// NewEngine creates a correction engine. A nil logger falls back to
// slog.Default().
func NewEngine(store factstore.Store, projector graph.Projector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, projector: projector, logger: logger}
}

// Retract closes the target assertion. The target must exist and still be
// active; retracting an already-terminal assertion is rejected with a
// ConflictError rather than silently ignored.
func (e *Engine) Retract(ctx context.Context, targetID, reason, createdBy string) (*Result, error) {
	target, err := e.store.GetAssertion(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Status.Terminal() {
		return nil, &types.ConflictError{AssertionID: targetID, Status: target.Status}
	}

	now := time.Now().UTC()
	corr := &types.Correction{
		ID:                uuid.New().String(),
		TargetAssertionID: targetID,
		Action:            types.ActionRetract,
		Reason:            reason,
		CreatedBy:         createdBy,
		CreatedAt:         now,
	}

	if err := e.store.ApplyCorrection(ctx, targetID, types.StatusRetracted, now, nil, corr); err != nil {
		return nil, err
	}

	result := &Result{
		Action:            types.ActionRetract,
		TargetAssertionID: targetID,
		CorrectionID:      corr.ID,
		ValidTo:           now,
	}
	e.closeEdges(ctx, result, []string{targetID}, types.StatusRetracted, now)
	return result, nil
}

// Supersede closes the target and inserts its replacement in one fact-store
// transaction. The draft must carry a predicate and exactly one of object
// entity id or literal value; subject, source and confidence are inherited
// from the target unless overridden.
func (e *Engine) Supersede(ctx context.Context, targetID string, draft *types.AssertionDraft, reason, createdBy string) (*Result, error) {
	return e.replace(ctx, targetID, draft, reason, createdBy, types.ActionSupersede)
}

// Override is operationally identical to Supersede; the distinct action is
// kept on the correction row for the audit trail.
func (e *Engine) Override(ctx context.Context, targetID string, draft *types.AssertionDraft, reason, createdBy string) (*Result, error) {
	return e.replace(ctx, targetID, draft, reason, createdBy, types.ActionOverride)
}

func (e *Engine) replace(ctx context.Context, targetID string, draft *types.AssertionDraft, reason, createdBy string, action types.CorrectionAction) (*Result, error) {
	if draft == nil {
		return nil, types.NewValidationError("draft", "replacement draft is required")
	}
	if draft.Predicate == "" {
		return nil, types.NewValidationError("predicate", "supersede requires a predicate")
	}
	if !types.PredicateVocabulary[draft.Predicate] {
		return nil, types.NewValidationError("predicate", "unknown predicate "+string(draft.Predicate))
	}

	target, err := e.store.GetAssertion(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Status.Terminal() {
		return nil, &types.ConflictError{AssertionID: targetID, Status: target.Status}
	}

	now := time.Now().UTC()
	replacement := buildReplacement(target, draft, now)
	if err := replacement.Validate(); err != nil {
		return nil, types.NewValidationError("replacement", err.Error())
	}

	corr := &types.Correction{
		ID:                uuid.New().String(),
		TargetAssertionID: targetID,
		Action:            action,
		Reason:            reason,
		CreatedBy:         createdBy,
		NewAssertionID:    &replacement.ID,
		CreatedAt:         now,
	}

	if err := e.store.ApplyCorrection(ctx, targetID, types.StatusSuperseded, now, replacement, corr); err != nil {
		return nil, err
	}

	result := &Result{
		Action:            action,
		TargetAssertionID: targetID,
		NewAssertionID:    replacement.ID,
		CorrectionID:      corr.ID,
		ValidTo:           now,
	}

	e.closeEdges(ctx, result, []string{targetID}, types.StatusSuperseded, now)

	if err := e.projector.UpsertAssertionEdges(ctx, []*graph.AssertionEdge{EdgeFromAssertion(replacement)}); err != nil {
		e.markStale(result, "edge creation failed: "+err.Error())
	} else {
		result.EdgesCreated = 1
	}

	return result, nil
}

// Reproject re-runs the idempotent edge upsert for the given assertions,
// repairing a projection left stale by an earlier partial failure. Safe to
// call repeatedly.
func (e *Engine) Reproject(ctx context.Context, assertionIDs []string) (int, error) {
	edges := make([]*graph.AssertionEdge, 0, len(assertionIDs))
	for _, id := range assertionIDs {
		a, err := e.store.GetAssertion(ctx, id)
		if err != nil {
			return 0, err
		}
		edges = append(edges, EdgeFromAssertion(a))
	}
	if err := e.projector.UpsertAssertionEdges(ctx, edges); err != nil {
		return 0, types.NewUpstreamError("graph", err)
	}
	return len(edges), nil
}

func (e *Engine) closeEdges(ctx context.Context, result *Result, ids []string, status types.AssertionStatus, validTo time.Time) {
	closed, err := e.projector.CloseAssertionEdges(ctx, ids, status, validTo)
	if err != nil {
		e.markStale(result, "edge closure failed: "+err.Error())
		return
	}
	result.EdgesClosed = closed
}

func (e *Engine) markStale(result *Result, reason string) {
	result.StaleProjection = true
	if result.StaleReason != "" {
		result.StaleReason += "; "
	}
	result.StaleReason += reason
	e.logger.Warn("graph projection stale after correction",
		"target", result.TargetAssertionID,
		"action", string(result.Action),
		"reason", reason)
}

// buildReplacement assembles the new assertion from the draft, inheriting
// unset fields from the target. Subject, predicate and object are never
// copied onto the target itself: the target row keeps its original facts.
func buildReplacement(target *types.Assertion, draft *types.AssertionDraft, now time.Time) *types.Assertion {
	replacement := &types.Assertion{
		ID:               uuid.New().String(),
		SubjectEntityID:  draft.SubjectEntityID,
		Predicate:        draft.Predicate,
		ObjectEntityID:   draft.ObjectEntityID,
		LiteralValue:     draft.LiteralValue,
		SourceDocumentID: draft.SourceDocumentID,
		SourceChunkID:    draft.SourceChunkID,
		ExtractionRunID:  draft.ExtractionRunID,
		ValidFrom:        now,
		Status:           types.StatusActive,
		CreatedAt:        now,
	}
	if replacement.SubjectEntityID == "" {
		replacement.SubjectEntityID = target.SubjectEntityID
	}
	if replacement.SourceDocumentID == "" {
		replacement.SourceDocumentID = target.SourceDocumentID
	}
	if replacement.SourceChunkID == nil {
		replacement.SourceChunkID = target.SourceChunkID
	}
	if replacement.ExtractionRunID == nil {
		replacement.ExtractionRunID = target.ExtractionRunID
	}
	if draft.Confidence != nil {
		replacement.Confidence = *draft.Confidence
	} else {
		replacement.Confidence = target.Confidence
	}
	if draft.ValidFrom != nil {
		replacement.ValidFrom = *draft.ValidFrom
	}
	return replacement
}

// EdgeFromAssertion maps an assertion row to its graph projection.
func EdgeFromAssertion(a *types.Assertion) *graph.AssertionEdge {
	edge := &graph.AssertionEdge{
		AssertionID:      a.ID,
		SubjectEntityID:  a.SubjectEntityID,
		Predicate:        a.Predicate,
		Confidence:       a.Confidence,
		SourceDocumentID: a.SourceDocumentID,
		ValidFrom:        a.ValidFrom,
		ValidTo:          a.ValidTo,
		Status:           a.Status,
	}
	if a.ObjectEntityID != nil {
		edge.ObjectEntityID = *a.ObjectEntityID
	}
	if a.LiteralValue != nil {
		edge.LiteralValue = *a.LiteralValue
	}
	if a.SourceChunkID != nil {
		edge.SourceChunkID = *a.SourceChunkID
	}
	return edge
}
