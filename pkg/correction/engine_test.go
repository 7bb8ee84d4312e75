package correction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgarlens/factgraph/pkg/correction"
	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/graph"
	"github.com/edgarlens/factgraph/pkg/types"
)

// correctionStore is a Store double covering the methods the engine calls;
// everything else is inert.
type correctionStore struct {
	assertions map[string]*types.Assertion

	appliedTarget      string
	appliedStatus      types.AssertionStatus
	appliedValidTo     time.Time
	appliedReplacement *types.Assertion
	appliedCorrection  *types.Correction
	applyErr           error
}

func newCorrectionStore(assertions ...*types.Assertion) *correctionStore {
	s := &correctionStore{assertions: map[string]*types.Assertion{}}
	for _, a := range assertions {
		s.assertions[a.ID] = a
	}
	return s
}

func (s *correctionStore) GetAssertion(ctx context.Context, id string) (*types.Assertion, error) {
	if a, ok := s.assertions[id]; ok {
		return a, nil
	}
	return nil, types.NewNotFoundError("assertion", id)
}

func (s *correctionStore) ApplyCorrection(ctx context.Context, targetID string, status types.AssertionStatus, validTo time.Time, replacement *types.Assertion, corr *types.Correction) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.appliedTarget = targetID
	s.appliedStatus = status
	s.appliedValidTo = validTo
	s.appliedReplacement = replacement
	s.appliedCorrection = corr
	return nil
}

func (s *correctionStore) Initialize(ctx context.Context) error { return nil }
func (s *correctionStore) Close() error                         { return nil }

func (s *correctionStore) UpsertEntity(ctx context.Context, entityType types.EntityType, canonicalName string, aliases []string, identifiers map[string]string) (*types.Entity, error) {
	return nil, nil
}

func (s *correctionStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	return nil, nil
}

func (s *correctionStore) GetEntities(ctx context.Context, ids []string) ([]*types.Entity, error) {
	return nil, nil
}

func (s *correctionStore) SearchEntities(ctx context.Context, query string, entityTypes []types.EntityType, limit int) ([]*types.Entity, error) {
	return nil, nil
}

func (s *correctionStore) FindCompanyByExternalID(ctx context.Context, key, normalizedID string) (*types.Entity, error) {
	return nil, nil
}

func (s *correctionStore) UpsertDocument(ctx context.Context, doc *types.Document) (*types.Document, error) {
	return doc, nil
}

func (s *correctionStore) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	return nil, nil
}

func (s *correctionStore) ListDocuments(ctx context.Context, filter *factstore.DocumentFilter) ([]*types.Document, error) {
	return nil, nil
}

func (s *correctionStore) InsertChunks(ctx context.Context, chunks []*types.DocumentChunk) error {
	return nil
}

func (s *correctionStore) GetChunks(ctx context.Context, ids []string) ([]*types.DocumentChunk, error) {
	return nil, nil
}

func (s *correctionStore) InsertExtractionRun(ctx context.Context, run *types.ExtractionRun) error {
	return nil
}

func (s *correctionStore) FinishExtractionRun(ctx context.Context, runID string, finishedAt time.Time) error {
	return nil
}

func (s *correctionStore) InsertAssertion(ctx context.Context, a *types.Assertion) (*types.Assertion, error) {
	return a, nil
}

func (s *correctionStore) FindAssertions(ctx context.Context, filter *factstore.AssertionFilter) ([]*types.Assertion, error) {
	return nil, nil
}

func (s *correctionStore) ActiveAssertionsByPredicates(ctx context.Context, predicates []types.Predicate) ([]*types.Assertion, error) {
	return nil, nil
}

func (s *correctionStore) CorrectionsForAssertion(ctx context.Context, assertionID string) ([]*types.Correction, error) {
	return nil, nil
}

func (s *correctionStore) UpsertSignal(ctx context.Context, sig *types.Signal) (*types.Signal, error) {
	return sig, nil
}

func (s *correctionStore) SignalSeries(ctx context.Context, signalKey string, since time.Time) ([]factstore.SignalPoint, error) {
	return nil, nil
}

func (s *correctionStore) GetStats(ctx context.Context) (*factstore.Stats, error) {
	return &factstore.Stats{}, nil
}

// edgeProjector is a Projector double recording edge closures and upserts.
type edgeProjector struct {
	closedIDs     []string
	closedStatus  types.AssertionStatus
	upsertedEdges []*graph.AssertionEdge

	closeErr  error
	upsertErr error
}

func (p *edgeProjector) CloseAssertionEdges(ctx context.Context, assertionIDs []string, status types.AssertionStatus, validTo time.Time) (int, error) {
	if p.closeErr != nil {
		return 0, p.closeErr
	}
	p.closedIDs = append(p.closedIDs, assertionIDs...)
	p.closedStatus = status
	return len(assertionIDs), nil
}

func (p *edgeProjector) UpsertAssertionEdges(ctx context.Context, rows []*graph.AssertionEdge) error {
	if p.upsertErr != nil {
		return p.upsertErr
	}
	p.upsertedEdges = append(p.upsertedEdges, rows...)
	return nil
}

func (p *edgeProjector) UpsertEntities(ctx context.Context, rows []*graph.EntityNode) error {
	return nil
}

func (p *edgeProjector) UpsertFilingAndChunks(ctx context.Context, filing *graph.FilingNode, chunks []*graph.ChunkNode) error {
	return nil
}

func (p *edgeProjector) UpsertMentions(ctx context.Context, rows []*graph.Mention) error {
	return nil
}

func (p *edgeProjector) Traverse(ctx context.Context, seedEntityIDs []string, depth int, edgeTypes []string) (*graph.TraversalResult, error) {
	return &graph.TraversalResult{}, nil
}

func (p *edgeProjector) ShortestPath(ctx context.Context, fromEntityID, toEntityID string, maxHops int, edgeTypes []string) (*graph.PathResult, error) {
	return &graph.PathResult{}, nil
}

func (p *edgeProjector) CreateIndices(ctx context.Context) error { return nil }

func (p *edgeProjector) GetStats(ctx context.Context) (*graph.Stats, error) {
	return &graph.Stats{}, nil
}

func (p *edgeProjector) Close(ctx context.Context) error { return nil }

func strPtr(s string) *string { return &s }

func activeAssertion(id string) *types.Assertion {
	return &types.Assertion{
		ID:               id,
		SubjectEntityID:  "subject-1",
		Predicate:        types.PredicateHasCEO,
		ObjectEntityID:   strPtr("object-1"),
		Confidence:       0.8,
		SourceDocumentID: "doc-1",
		SourceChunkID:    strPtr("chunk-1"),
		ExtractionRunID:  strPtr("run-1"),
		ValidFrom:        time.Now().UTC().Add(-time.Hour),
		Status:           types.StatusActive,
	}
}

func TestRetract(t *testing.T) {
	store := newCorrectionStore(activeAssertion("a-1"))
	projector := &edgeProjector{}
	engine := correction.NewEngine(store, projector, nil)

	result, err := engine.Retract(context.Background(), "a-1", "extraction error", "analyst@example.com")
	require.NoError(t, err)

	assert.Equal(t, types.ActionRetract, result.Action)
	assert.Equal(t, "a-1", result.TargetAssertionID)
	assert.Empty(t, result.NewAssertionID)
	assert.NotEmpty(t, result.CorrectionID)
	assert.False(t, result.ValidTo.IsZero())
	assert.Equal(t, 1, result.EdgesClosed)
	assert.False(t, result.StaleProjection)

	assert.Equal(t, "a-1", store.appliedTarget)
	assert.Equal(t, types.StatusRetracted, store.appliedStatus)
	assert.Nil(t, store.appliedReplacement)
	require.NotNil(t, store.appliedCorrection)
	assert.Equal(t, types.ActionRetract, store.appliedCorrection.Action)
	assert.Equal(t, "extraction error", store.appliedCorrection.Reason)
	assert.Equal(t, "analyst@example.com", store.appliedCorrection.CreatedBy)
	assert.Nil(t, store.appliedCorrection.NewAssertionID)

	assert.Equal(t, []string{"a-1"}, projector.closedIDs)
	assert.Equal(t, types.StatusRetracted, projector.closedStatus)
}

func TestRetractTerminalTargetRejected(t *testing.T) {
	retracted := activeAssertion("a-1")
	retracted.Status = types.StatusRetracted
	engine := correction.NewEngine(newCorrectionStore(retracted), &edgeProjector{}, nil)

	_, err := engine.Retract(context.Background(), "a-1", "again", "analyst")
	var conflict *types.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "a-1", conflict.AssertionID)
	assert.Equal(t, types.StatusRetracted, conflict.Status)
}

func TestRetractUnknownTarget(t *testing.T) {
	engine := correction.NewEngine(newCorrectionStore(), &edgeProjector{}, nil)

	_, err := engine.Retract(context.Background(), "missing", "", "")
	var notFound *types.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRetractGraphFailureIsStale(t *testing.T) {
	store := newCorrectionStore(activeAssertion("a-1"))
	projector := &edgeProjector{closeErr: errors.New("neo4j down")}
	engine := correction.NewEngine(store, projector, nil)

	result, err := engine.Retract(context.Background(), "a-1", "", "")
	require.NoError(t, err)

	// The fact store committed; only the projection is stale.
	assert.Equal(t, types.StatusRetracted, store.appliedStatus)
	assert.True(t, result.StaleProjection)
	assert.Contains(t, result.StaleReason, "neo4j down")
	assert.Equal(t, 0, result.EdgesClosed)
}

func TestSupersedeInheritsFromTarget(t *testing.T) {
	store := newCorrectionStore(activeAssertion("a-1"))
	projector := &edgeProjector{}
	engine := correction.NewEngine(store, projector, nil)

	draft := &types.AssertionDraft{
		Predicate:      types.PredicateHasCEO,
		ObjectEntityID: strPtr("object-2"),
	}
	result, err := engine.Supersede(context.Background(), "a-1", draft, "new ceo announced", "analyst")
	require.NoError(t, err)

	assert.Equal(t, types.ActionSupersede, result.Action)
	assert.NotEmpty(t, result.NewAssertionID)
	assert.Equal(t, 1, result.EdgesClosed)
	assert.Equal(t, 1, result.EdgesCreated)

	replacement := store.appliedReplacement
	require.NotNil(t, replacement)
	assert.Equal(t, result.NewAssertionID, replacement.ID)
	assert.Equal(t, types.StatusActive, replacement.Status)
	assert.Equal(t, "object-2", *replacement.ObjectEntityID)

	// Unset draft fields are inherited from the target.
	assert.Equal(t, "subject-1", replacement.SubjectEntityID)
	assert.Equal(t, "doc-1", replacement.SourceDocumentID)
	assert.Equal(t, "chunk-1", *replacement.SourceChunkID)
	assert.Equal(t, "run-1", *replacement.ExtractionRunID)
	assert.InDelta(t, 0.8, replacement.Confidence, 1e-9)

	require.NotNil(t, store.appliedCorrection.NewAssertionID)
	assert.Equal(t, replacement.ID, *store.appliedCorrection.NewAssertionID)
	assert.Equal(t, types.StatusSuperseded, store.appliedStatus)

	require.Len(t, projector.upsertedEdges, 1)
	assert.Equal(t, replacement.ID, projector.upsertedEdges[0].AssertionID)
	assert.Equal(t, "object-2", projector.upsertedEdges[0].ObjectEntityID)
}

func TestSupersedeDraftValidation(t *testing.T) {
	engine := correction.NewEngine(newCorrectionStore(activeAssertion("a-1")), &edgeProjector{}, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		draft *types.AssertionDraft
	}{
		{name: "nil draft", draft: nil},
		{name: "missing predicate", draft: &types.AssertionDraft{ObjectEntityID: strPtr("o")}},
		{name: "unknown predicate", draft: &types.AssertionDraft{Predicate: "LIKES", ObjectEntityID: strPtr("o")}},
		{
			name: "object and literal both set",
			draft: &types.AssertionDraft{
				Predicate:      types.PredicateHasCEO,
				ObjectEntityID: strPtr("o"),
				LiteralValue:   strPtr("v"),
			},
		},
		{name: "neither object nor literal", draft: &types.AssertionDraft{Predicate: types.PredicateHasCEO}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Supersede(ctx, "a-1", tt.draft, "", "")
			var validation *types.ValidationError
			require.ErrorAs(t, err, &validation)
		})
	}
}

func TestSupersedeTerminalTargetRejected(t *testing.T) {
	superseded := activeAssertion("a-1")
	superseded.Status = types.StatusSuperseded
	engine := correction.NewEngine(newCorrectionStore(superseded), &edgeProjector{}, nil)

	draft := &types.AssertionDraft{Predicate: types.PredicateHasCEO, ObjectEntityID: strPtr("o")}
	_, err := engine.Supersede(context.Background(), "a-1", draft, "", "")
	var conflict *types.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestSupersedeBothGraphFailures(t *testing.T) {
	store := newCorrectionStore(activeAssertion("a-1"))
	projector := &edgeProjector{
		closeErr:  errors.New("close failed"),
		upsertErr: errors.New("upsert failed"),
	}
	engine := correction.NewEngine(store, projector, nil)

	draft := &types.AssertionDraft{Predicate: types.PredicateHasCEO, ObjectEntityID: strPtr("o")}
	result, err := engine.Supersede(context.Background(), "a-1", draft, "", "")
	require.NoError(t, err)

	assert.True(t, result.StaleProjection)
	assert.Contains(t, result.StaleReason, "close failed")
	assert.Contains(t, result.StaleReason, "upsert failed")
	assert.NotNil(t, store.appliedReplacement)
}

func TestOverrideRecordsDistinctAction(t *testing.T) {
	store := newCorrectionStore(activeAssertion("a-1"))
	engine := correction.NewEngine(store, &edgeProjector{}, nil)

	draft := &types.AssertionDraft{Predicate: types.PredicateHasCEO, LiteralValue: strPtr("Jane Doe")}
	result, err := engine.Override(context.Background(), "a-1", draft, "manual fix", "analyst")
	require.NoError(t, err)

	assert.Equal(t, types.ActionOverride, result.Action)
	assert.Equal(t, types.ActionOverride, store.appliedCorrection.Action)
	// Replacement semantics are the same as supersede.
	assert.Equal(t, types.StatusSuperseded, store.appliedStatus)
}

func TestReproject(t *testing.T) {
	first := activeAssertion("a-1")
	second := activeAssertion("a-2")
	second.ObjectEntityID = nil
	second.LiteralValue = strPtr("AAPL")

	projector := &edgeProjector{}
	engine := correction.NewEngine(newCorrectionStore(first, second), projector, nil)

	count, err := engine.Reproject(context.Background(), []string{"a-1", "a-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, projector.upsertedEdges, 2)
	assert.Equal(t, "object-1", projector.upsertedEdges[0].ObjectEntityID)
	assert.Equal(t, "AAPL", projector.upsertedEdges[1].LiteralValue)
}

func TestReprojectUnknownAssertion(t *testing.T) {
	engine := correction.NewEngine(newCorrectionStore(), &edgeProjector{}, nil)

	_, err := engine.Reproject(context.Background(), []string{"missing"})
	var notFound *types.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestReprojectGraphFailure(t *testing.T) {
	projector := &edgeProjector{upsertErr: errors.New("neo4j down")}
	engine := correction.NewEngine(newCorrectionStore(activeAssertion("a-1")), projector, nil)

	_, err := engine.Reproject(context.Background(), []string{"a-1"})
	var upstream *types.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "graph", upstream.Collaborator)
}
