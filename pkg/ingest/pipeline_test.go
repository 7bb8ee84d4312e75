package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgarlens/factgraph/pkg/extract"
	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/graph"
	"github.com/edgarlens/factgraph/pkg/ingest"
	"github.com/edgarlens/factgraph/pkg/types"
	"github.com/edgarlens/factgraph/pkg/vector"
)

// memStore is an in-memory Store double that records what the pipeline
// wrote. All methods are safe for concurrent use.
type memStore struct {
	mu         sync.Mutex
	documents  map[string]*types.Document
	entities   map[string]*types.Entity
	chunks     []*types.DocumentChunk
	assertions []*types.Assertion
	runs       map[string]*types.ExtractionRun
	finished   map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		documents: map[string]*types.Document{},
		entities:  map[string]*types.Entity{},
		runs:      map[string]*types.ExtractionRun{},
		finished:  map[string]bool{},
	}
}

func (s *memStore) Initialize(ctx context.Context) error { return nil }
func (s *memStore) Close() error                         { return nil }

func (s *memStore) UpsertEntity(ctx context.Context, entityType types.EntityType, canonicalName string, aliases []string, identifiers map[string]string) (*types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := string(entityType) + "|" + canonicalName
	if e, ok := s.entities[key]; ok {
		return e, nil
	}
	e := &types.Entity{
		ID:            uuid.New().String(),
		Type:          entityType,
		CanonicalName: canonicalName,
		Aliases:       aliases,
		Identifiers:   identifiers,
	}
	s.entities[key] = e
	return e, nil
}

func (s *memStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	return nil, types.NewNotFoundError("entity", id)
}

func (s *memStore) GetEntities(ctx context.Context, ids []string) ([]*types.Entity, error) {
	return nil, nil
}

func (s *memStore) SearchEntities(ctx context.Context, query string, entityTypes []types.EntityType, limit int) ([]*types.Entity, error) {
	return nil, nil
}

func (s *memStore) FindCompanyByExternalID(ctx context.Context, key, normalizedID string) (*types.Entity, error) {
	return nil, nil
}

func (s *memStore) UpsertDocument(ctx context.Context, doc *types.Document) (*types.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := doc.Source + "|" + doc.AccessionNo
	if existing, ok := s.documents[key]; ok {
		return existing, nil
	}
	out := *doc
	out.ID = uuid.New().String()
	s.documents[key] = &out
	return &out, nil
}

func (s *memStore) GetDocument(ctx context.Context, id string) (*types.Document, error) {
	return nil, types.NewNotFoundError("document", id)
}

func (s *memStore) ListDocuments(ctx context.Context, filter *factstore.DocumentFilter) ([]*types.Document, error) {
	return nil, nil
}

func (s *memStore) InsertChunks(ctx context.Context, chunks []*types.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *memStore) GetChunks(ctx context.Context, ids []string) ([]*types.DocumentChunk, error) {
	return nil, nil
}

func (s *memStore) InsertExtractionRun(ctx context.Context, run *types.ExtractionRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *memStore) FinishExtractionRun(ctx context.Context, runID string, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished[runID] = true
	return nil
}

func (s *memStore) InsertAssertion(ctx context.Context, a *types.Assertion) (*types.Assertion, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *a
	s.assertions = append(s.assertions, &out)
	return &out, nil
}

func (s *memStore) GetAssertion(ctx context.Context, id string) (*types.Assertion, error) {
	return nil, types.NewNotFoundError("assertion", id)
}

func (s *memStore) FindAssertions(ctx context.Context, filter *factstore.AssertionFilter) ([]*types.Assertion, error) {
	return nil, nil
}

func (s *memStore) ActiveAssertionsByPredicates(ctx context.Context, predicates []types.Predicate) ([]*types.Assertion, error) {
	return nil, nil
}

func (s *memStore) ApplyCorrection(ctx context.Context, targetID string, status types.AssertionStatus, validTo time.Time, replacement *types.Assertion, correction *types.Correction) error {
	return nil
}

func (s *memStore) CorrectionsForAssertion(ctx context.Context, assertionID string) ([]*types.Correction, error) {
	return nil, nil
}

func (s *memStore) UpsertSignal(ctx context.Context, sig *types.Signal) (*types.Signal, error) {
	return sig, nil
}

func (s *memStore) SignalSeries(ctx context.Context, signalKey string, since time.Time) ([]factstore.SignalPoint, error) {
	return nil, nil
}

func (s *memStore) GetStats(ctx context.Context) (*factstore.Stats, error) {
	return &factstore.Stats{}, nil
}

// memProjector is a Projector double; failWrites makes every write fail.
type memProjector struct {
	mu         sync.Mutex
	failWrites bool
	entities   int
	filings    int
	mentions   int
	edges      int
}

func (p *memProjector) writeErr() error {
	if p.failWrites {
		return errors.New("neo4j unavailable")
	}
	return nil
}

func (p *memProjector) UpsertEntities(ctx context.Context, rows []*graph.EntityNode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.writeErr(); err != nil {
		return err
	}
	p.entities += len(rows)
	return nil
}

func (p *memProjector) UpsertFilingAndChunks(ctx context.Context, filing *graph.FilingNode, chunks []*graph.ChunkNode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.writeErr(); err != nil {
		return err
	}
	p.filings++
	return nil
}

func (p *memProjector) UpsertMentions(ctx context.Context, rows []*graph.Mention) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.writeErr(); err != nil {
		return err
	}
	p.mentions += len(rows)
	return nil
}

func (p *memProjector) UpsertAssertionEdges(ctx context.Context, rows []*graph.AssertionEdge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.writeErr(); err != nil {
		return err
	}
	p.edges += len(rows)
	return nil
}

func (p *memProjector) CloseAssertionEdges(ctx context.Context, assertionIDs []string, status types.AssertionStatus, validTo time.Time) (int, error) {
	return 0, nil
}

func (p *memProjector) Traverse(ctx context.Context, seedEntityIDs []string, depth int, edgeTypes []string) (*graph.TraversalResult, error) {
	return &graph.TraversalResult{}, nil
}

func (p *memProjector) ShortestPath(ctx context.Context, fromEntityID, toEntityID string, maxHops int, edgeTypes []string) (*graph.PathResult, error) {
	return &graph.PathResult{}, nil
}

func (p *memProjector) CreateIndices(ctx context.Context) error            { return nil }
func (p *memProjector) GetStats(ctx context.Context) (*graph.Stats, error) { return &graph.Stats{}, nil }
func (p *memProjector) Close(ctx context.Context) error                    { return nil }

// memIndex is an Index double; failUpserts makes Upsert fail.
type memIndex struct {
	mu          sync.Mutex
	failUpserts bool
	points      map[string]*vector.Point
}

func newMemIndex() *memIndex {
	return &memIndex{points: map[string]*vector.Point{}}
}

func (i *memIndex) EnsureSchema(ctx context.Context) error { return nil }

func (i *memIndex) Upsert(ctx context.Context, points []*vector.Point) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.failUpserts {
		return errors.New("weaviate unavailable")
	}
	for _, p := range points {
		i.points[p.ID] = p
	}
	return nil
}

func (i *memIndex) Search(ctx context.Context, vec []float32, filters vector.Filters, topK int) ([]*vector.Hit, error) {
	return nil, nil
}

func (i *memIndex) Close() error { return nil }

// scriptedExtractor returns the same candidate for every chunk, or an error
// when set.
type scriptedExtractor struct {
	candidate *extract.Candidate
	err       error
}

func (e *scriptedExtractor) Extract(ctx context.Context, chunkText string) (*extract.Candidate, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.candidate, nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

// mapFetcher serves text by locator; missing locators fail.
type mapFetcher struct {
	texts map[string]string
}

func (f *mapFetcher) Fetch(ctx context.Context, locator string) (string, error) {
	text, ok := f.texts[locator]
	if !ok {
		return "", types.NewUpstreamError("fetcher", fmt.Errorf("no such filing %s", locator))
	}
	return text, nil
}

func ceoCandidate() *extract.Candidate {
	return &extract.Candidate{
		Entities: []extract.CandidateEntity{
			{Name: "Apple", Type: "company"},
			{Name: "Tim Cook", Type: "person"},
		},
		Relations: []extract.CandidateRelation{
			{Subject: "Apple", Predicate: "HAS_CEO", Object: "Tim Cook", Confidence: 0.9},
		},
	}
}

func testItem(accession, cik, name string) ingest.Item {
	return ingest.Item{
		Locator:     accession,
		Source:      "sec",
		DocType:     "10-K",
		ExternalID:  cik,
		AccessionNo: accession,
		CompanyName: name,
	}
}

func newTestPipeline(store *memStore, projector *memProjector, index *memIndex,
	extractor extract.Extractor, fetcher ingest.Fetcher) *ingest.Pipeline {
	return ingest.NewPipeline(store, projector, index, extractor, fixedEmbedder{}, fetcher,
		ingest.Options{ChunkSize: 10, Model: "test-model"}, nil)
}

func TestPipelineRunCounts(t *testing.T) {
	store := newMemStore()
	projector := &memProjector{}
	index := newMemIndex()
	fetcher := &mapFetcher{texts: map[string]string{
		"acc-1": strings.Repeat("x", 20), // exactly two chunks at size 10
	}}

	p := newTestPipeline(store, projector, index, &scriptedExtractor{candidate: ceoCandidate()}, fetcher)
	result, err := p.Run(context.Background(), []ingest.Item{testItem("acc-1", "320193", "Apple Inc.")})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Documents)
	assert.Equal(t, 2, result.Chunks)
	// The subject company plus Apple and Tim Cook, counted once across chunks.
	assert.Equal(t, 3, result.Entities)
	// One relation per chunk.
	assert.Equal(t, 2, result.Assertions)
	assert.Equal(t, 0, result.StaleProjections)
	assert.Empty(t, result.Failures)
	assert.False(t, result.TruncatedFailures)

	require.Len(t, store.assertions, 2)
	for _, a := range store.assertions {
		assert.Equal(t, types.PredicateHasCEO, a.Predicate)
		assert.Equal(t, types.StatusActive, a.Status)
		require.NotNil(t, a.SourceChunkID)
	}

	// Every chunk landed in the vector index with a deterministic point id.
	assert.Len(t, index.points, 2)
	for _, point := range index.points {
		assert.NotEmpty(t, point.ChunkID)
		assert.Equal(t, "320193", point.Cik)
	}

	// Extraction runs are always closed.
	require.Len(t, store.runs, 1)
	for id := range store.runs {
		assert.True(t, store.finished[id])
	}
}

func TestPipelineReingestOverwritesVectorPoints(t *testing.T) {
	store := newMemStore()
	index := newMemIndex()
	fetcher := &mapFetcher{texts: map[string]string{"acc-1": strings.Repeat("x", 20)}}

	p := newTestPipeline(store, &memProjector{}, index, &scriptedExtractor{candidate: &extract.Candidate{}}, fetcher)
	items := []ingest.Item{testItem("acc-1", "320193", "Apple Inc.")}

	_, err := p.Run(context.Background(), items)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), items)
	require.NoError(t, err)

	// Same document, same chunk indices, same point ids.
	assert.Len(t, index.points, 2)
}

func TestPipelineFetchFailureIsolated(t *testing.T) {
	store := newMemStore()
	fetcher := &mapFetcher{texts: map[string]string{
		"acc-good": strings.Repeat("x", 10),
	}}

	p := newTestPipeline(store, &memProjector{}, newMemIndex(), &scriptedExtractor{candidate: ceoCandidate()}, fetcher)
	result, err := p.Run(context.Background(), []ingest.Item{
		testItem("acc-good", "320193", "Apple Inc."),
		testItem("acc-missing", "789019", "Microsoft Corp."),
	})
	require.NoError(t, err)

	// The good item is fully processed despite its sibling failing.
	assert.Equal(t, 1, result.Documents)
	assert.Equal(t, 1, result.Chunks)

	require.Len(t, result.Failures, 1)
	failure := result.Failures[0]
	assert.Equal(t, "789019", failure.Subject)
	assert.Equal(t, "acc-missing", failure.AccessionNo)
	assert.Equal(t, "fetcher", failure.Stage)
	assert.Contains(t, failure.Error, "acc-missing")
}

func TestPipelineExtractionFailureKeepsDurableWrites(t *testing.T) {
	store := newMemStore()
	fetcher := &mapFetcher{texts: map[string]string{"acc-1": strings.Repeat("x", 10)}}
	extractor := &scriptedExtractor{err: types.NewUpstreamError("extractor", errors.New("rate limited"))}

	p := newTestPipeline(store, &memProjector{}, newMemIndex(), extractor, fetcher)
	result, err := p.Run(context.Background(), []ingest.Item{testItem("acc-1", "320193", "Apple Inc.")})
	require.NoError(t, err)

	// The document and chunks written before extraction failed are kept.
	assert.Equal(t, 1, result.Documents)
	assert.Equal(t, 1, result.Chunks)
	assert.Equal(t, 0, result.Assertions)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "extractor", result.Failures[0].Stage)

	// The run is closed even though the item failed.
	require.Len(t, store.runs, 1)
	for id := range store.runs {
		assert.True(t, store.finished[id])
	}
}

func TestPipelineProjectionFailuresAreStaleNotFatal(t *testing.T) {
	store := newMemStore()
	projector := &memProjector{failWrites: true}
	index := newMemIndex()
	index.failUpserts = true
	fetcher := &mapFetcher{texts: map[string]string{"acc-1": strings.Repeat("x", 10)}}

	p := newTestPipeline(store, projector, index, &scriptedExtractor{candidate: ceoCandidate()}, fetcher)
	result, err := p.Run(context.Background(), []ingest.Item{testItem("acc-1", "320193", "Apple Inc.")})
	require.NoError(t, err)

	// The item itself succeeds; the side stores are marked stale.
	assert.Empty(t, result.Failures)
	assert.Equal(t, 1, result.Documents)
	assert.Equal(t, 1, result.Assertions)
	assert.Greater(t, result.StaleProjections, 0)
	require.Len(t, store.assertions, 1)
}

func TestPipelineStreamEventOrdering(t *testing.T) {
	store := newMemStore()
	fetcher := &mapFetcher{texts: map[string]string{
		"acc-1": strings.Repeat("x", 10),
		"acc-2": strings.Repeat("y", 10),
	}}

	p := newTestPipeline(store, &memProjector{}, newMemIndex(), &scriptedExtractor{candidate: ceoCandidate()}, fetcher)
	resultCh, events := p.RunStream(context.Background(), []ingest.Item{
		testItem("acc-1", "320193", "Apple Inc."),
		testItem("acc-2", "789019", "Microsoft Corp."),
	})

	collected := []ingest.Event{}
	for event := range events {
		collected = append(collected, event)
	}
	result := <-resultCh
	require.NotNil(t, result)

	require.Len(t, collected, 6)
	assert.Equal(t, ingest.EventStart, collected[0].Type)
	assert.Equal(t, ingest.EventDone, collected[len(collected)-1].Type)

	starts, dones := 0, 0
	for _, event := range collected[1 : len(collected)-1] {
		switch event.Type {
		case ingest.EventItemStart:
			starts++
		case ingest.EventItemDone:
			dones++
			assert.Equal(t, 1, event.Chunks)
			assert.Equal(t, 1, event.Assertions)
		default:
			t.Fatalf("unexpected event type %q", event.Type)
		}
	}
	assert.Equal(t, 2, starts)
	assert.Equal(t, 2, dones)
}

func TestPipelineFailureListCapped(t *testing.T) {
	store := newMemStore()
	fetcher := &mapFetcher{texts: map[string]string{}}

	p := ingest.NewPipeline(store, &memProjector{}, newMemIndex(),
		&scriptedExtractor{candidate: ceoCandidate()}, fixedEmbedder{}, fetcher,
		ingest.Options{ChunkSize: 10, MaxFailures: 2}, nil)

	items := []ingest.Item{}
	for i := 0; i < 5; i++ {
		items = append(items, testItem(fmt.Sprintf("acc-%d", i), fmt.Sprintf("%d", i), fmt.Sprintf("Company %d", i)))
	}

	result, err := p.Run(context.Background(), items)
	require.NoError(t, err)
	assert.Len(t, result.Failures, 2)
	assert.True(t, result.TruncatedFailures)
}
