// Package ingest runs the bulk ingestion pipeline: fetch a filing, chunk
// it, embed and index the chunks, extract candidate facts per chunk, and
// write resolved entities and versioned assertions with their graph
// projection.
//
// Independent subjects are processed by a bounded worker pool; all items of
// one subject run on one worker so entity merges for a subject are never
// concurrent. One subject's failure never aborts its siblings.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edgarlens/factgraph/pkg/extract"
	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/graph"
	"github.com/edgarlens/factgraph/pkg/types"
	"github.com/edgarlens/factgraph/pkg/vector"
)

// Item is one filing to ingest for one subject company.
type Item struct {
	Locator     string     `json:"locator"`
	Source      string     `json:"source"`
	DocType     string     `json:"doc_type"`
	ExternalID  string     `json:"external_id"` // cik
	AccessionNo string     `json:"accession_no"`
	FilingDate  *time.Time `json:"filing_date,omitempty"`
	URL         string     `json:"url,omitempty"`
	CompanyName string     `json:"company_name"`
}

// ItemFailure records one failed item without aborting the batch.
type ItemFailure struct {
	Subject     string `json:"subject"`
	AccessionNo string `json:"accession_no"`
	Stage       string `json:"stage"`
	Error       string `json:"error"`
}

// Result reports what a batch wrote and what, if anything, is now stale.
type Result struct {
	Documents        int           `json:"documents"`
	Chunks           int           `json:"chunks"`
	Entities         int           `json:"entities"`
	Assertions       int           `json:"assertions"`
	StaleProjections int           `json:"stale_projections"`
	Failures         []ItemFailure `json:"failures,omitempty"`

	// TruncatedFailures is set when more items failed than the failure
	// list cap allows.
	TruncatedFailures bool `json:"truncated_failures,omitempty"`
}

// Options configures a pipeline.
type Options struct {
	// Concurrency bounds the worker pool. Default 4, clamped to [2, 6].
	Concurrency int

	// ChunkSize and ChunkOverlap control splitting. Defaults 2000/200.
	ChunkSize    int
	ChunkOverlap int

	// MaxFailures caps the failure list in the result. Default 20.
	MaxFailures int

	// Model and PromptVersion are recorded on the extraction run.
	Model         string
	PromptVersion string
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Concurrency == 0 {
		out.Concurrency = 4
	}
	if out.Concurrency < 2 {
		out.Concurrency = 2
	}
	if out.Concurrency > 6 {
		out.Concurrency = 6
	}
	if out.ChunkSize <= 0 {
		out.ChunkSize = 2000
	}
	if out.ChunkOverlap < 0 {
		out.ChunkOverlap = 200
	}
	if out.MaxFailures <= 0 {
		out.MaxFailures = 20
	}
	if out.PromptVersion == "" {
		out.PromptVersion = extract.PromptVersion
	}
	return out
}

// Pipeline wires the collaborators for bulk ingestion.
type Pipeline struct {
	store     factstore.Store
	projector graph.Projector
	index     vector.Index
	extractor extract.Extractor
	embedder  extract.Embedder
	fetcher   Fetcher
	options   Options
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. A nil logger falls back to slog.Default().
func NewPipeline(store factstore.Store, projector graph.Projector, index vector.Index,
	extractor extract.Extractor, embedder extract.Embedder, fetcher Fetcher,
	options Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     store,
		projector: projector,
		index:     index,
		extractor: extractor,
		embedder:  embedder,
		fetcher:   fetcher,
		options:   options.withDefaults(),
		logger:    logger,
	}
}

// Run ingests the batch and blocks until every item finished, draining the
// progress stream internally.
func (p *Pipeline) Run(ctx context.Context, items []Item) (*Result, error) {
	result, events := p.start(ctx, items)
	for range events {
	}
	return <-result, nil
}

// RunStream ingests the batch while emitting one event per sub-step, for
// callers that want progress without polling. The result channel yields
// once, after the event channel closes.
func (p *Pipeline) RunStream(ctx context.Context, items []Item) (<-chan *Result, <-chan Event) {
	return p.start(ctx, items)
}

func (p *Pipeline) start(ctx context.Context, items []Item) (<-chan *Result, <-chan Event) {
	events := make(chan Event, len(items)*2+2)
	resultCh := make(chan *Result, 1)

	go func() {
		defer close(resultCh)
		defer close(events)

		events <- Event{Type: EventStart}

		// One batch per subject: items of a subject run sequentially on
		// one worker so entity merges never race.
		groups := map[string][]Item{}
		order := []string{}
		for _, item := range items {
			key := item.ExternalID
			if key == "" {
				key = item.CompanyName
			}
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], item)
		}

		var (
			mu     sync.Mutex
			result = &Result{Failures: []ItemFailure{}}
			wg     sync.WaitGroup
		)

		groupCh := make(chan string)
		for i := 0; i < p.options.Concurrency; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for key := range groupCh {
					for _, item := range groups[key] {
						p.runItem(ctx, item, result, &mu, events)
					}
				}
			}()
		}

		for _, key := range order {
			groupCh <- key
		}
		close(groupCh)
		wg.Wait()

		events <- Event{Type: EventDone}
		resultCh <- result
	}()

	return resultCh, events
}

func (p *Pipeline) runItem(ctx context.Context, item Item, result *Result, mu *sync.Mutex, events chan<- Event) {
	events <- Event{Type: EventItemStart, Subject: item.ExternalID, AccessionNo: item.AccessionNo}

	stats, err := p.processItem(ctx, item)

	mu.Lock()
	defer mu.Unlock()

	if stats != nil {
		result.Documents += stats.documents
		result.Chunks += stats.chunks
		result.Entities += stats.entities
		result.Assertions += stats.assertions
		result.StaleProjections += stats.stale
	}

	if err != nil {
		stage := "ingest"
		var upstream *types.UpstreamError
		if errors.As(err, &upstream) {
			stage = upstream.Collaborator
		}
		if len(result.Failures) < p.options.MaxFailures {
			result.Failures = append(result.Failures, ItemFailure{
				Subject:     item.ExternalID,
				AccessionNo: item.AccessionNo,
				Stage:       stage,
				Error:       err.Error(),
			})
		} else {
			result.TruncatedFailures = true
		}
		p.logger.Warn("ingestion item failed",
			"subject", item.ExternalID, "accession", item.AccessionNo, "stage", stage, "error", err)
		events <- Event{Type: EventItemError, Subject: item.ExternalID, AccessionNo: item.AccessionNo, Error: err.Error()}
		return
	}

	events <- Event{
		Type:        EventItemDone,
		Subject:     item.ExternalID,
		AccessionNo: item.AccessionNo,
		Chunks:      stats.chunks,
		Assertions:  stats.assertions,
	}
}

type itemStats struct {
	documents  int
	chunks     int
	entities   int
	assertions int
	stale      int
}

func (p *Pipeline) processItem(ctx context.Context, item Item) (*itemStats, error) {
	stats := &itemStats{}

	text, err := p.fetcher.Fetch(ctx, item.Locator)
	if err != nil {
		return stats, types.NewUpstreamError("fetcher", err)
	}

	hash := sha256.Sum256([]byte(text))
	doc, err := p.store.UpsertDocument(ctx, &types.Document{
		Source:      item.Source,
		DocType:     item.DocType,
		ExternalID:  item.ExternalID,
		AccessionNo: item.AccessionNo,
		FilingDate:  item.FilingDate,
		URL:         item.URL,
		ContentHash: hex.EncodeToString(hash[:]),
	})
	if err != nil {
		return stats, err
	}
	stats.documents++

	company, err := p.store.UpsertEntity(ctx, types.EntityCompany, item.CompanyName, nil,
		map[string]string{"cik": factstore.NormalizeExternalID(item.ExternalID)})
	if err != nil {
		return stats, err
	}
	stats.entities++

	pieces := Split(text, p.options.ChunkSize, p.options.ChunkOverlap)
	chunks := make([]*types.DocumentChunk, len(pieces))
	chunkTexts := make([]string, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &types.DocumentChunk{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			ChunkIndex:  piece.Index,
			Text:        piece.Text,
			StartOffset: piece.StartOffset,
			EndOffset:   piece.EndOffset,
		}
		chunkTexts[i] = piece.Text
	}

	vectors, err := p.embedder.Embed(ctx, chunkTexts)
	if err != nil {
		return stats, err
	}

	points := make([]*vector.Point, len(chunks))
	for i, chunk := range chunks {
		pointID := deterministicPointID(chunk.DocumentID, chunk.ChunkIndex)
		chunk.ExternalVectorID = pointID
		points[i] = &vector.Point{
			ID:         pointID,
			Vector:     vectors[i],
			ChunkID:    chunk.ID,
			DocumentID: doc.ID,
			Cik:        factstore.NormalizeExternalID(item.ExternalID),
			DocType:    item.DocType,
			Accession:  item.AccessionNo,
			Text:       chunk.Text,
		}
	}

	if err := p.store.InsertChunks(ctx, chunks); err != nil {
		return stats, err
	}
	stats.chunks = len(chunks)

	// Vector and graph writes are best-effort side effects of the
	// authoritative store writes.
	if err := p.index.Upsert(ctx, points); err != nil {
		stats.stale++
		p.logger.Warn("vector upsert failed, index is stale", "document", doc.ID, "error", err)
	}
	if err := p.projectFilingAndChunks(ctx, item, doc, company, chunks); err != nil {
		stats.stale++
		p.logger.Warn("graph projection failed, projection is stale", "document", doc.ID, "error", err)
	}

	assertions, entities, stale, err := p.extractFacts(ctx, item, doc, company, chunks)
	stats.assertions += assertions
	stats.entities += entities
	stats.stale += stale
	if err != nil {
		return stats, err
	}

	return stats, nil
}

func (p *Pipeline) projectFilingAndChunks(ctx context.Context, item Item, doc *types.Document, company *types.Entity, chunks []*types.DocumentChunk) error {
	if err := p.projector.UpsertEntities(ctx, []*graph.EntityNode{{
		EntityID: company.ID,
		Name:     company.CanonicalName,
		Type:     string(company.Type),
	}}); err != nil {
		return err
	}

	chunkNodes := make([]*graph.ChunkNode, len(chunks))
	for i, chunk := range chunks {
		chunkNodes[i] = &graph.ChunkNode{
			ChunkID:    chunk.ID,
			DocumentID: doc.ID,
			ChunkIndex: chunk.ChunkIndex,
		}
	}
	return p.projector.UpsertFilingAndChunks(ctx, &graph.FilingNode{
		DocumentID:  doc.ID,
		Source:      doc.Source,
		DocType:     doc.DocType,
		AccessionNo: doc.AccessionNo,
		FilingDate:  doc.FilingDate,
	}, chunkNodes)
}

func (p *Pipeline) extractFacts(ctx context.Context, item Item, doc *types.Document, company *types.Entity, chunks []*types.DocumentChunk) (assertions, entities, stale int, err error) {
	run := &types.ExtractionRun{
		ID:            uuid.New().String(),
		Model:         p.options.Model,
		PromptVersion: p.options.PromptVersion,
		StartedAt:     time.Now().UTC(),
	}
	if err := p.store.InsertExtractionRun(ctx, run); err != nil {
		return 0, 0, 0, err
	}

	entityIDs := map[string]*types.Entity{company.CanonicalName: company}
	pendingNodes := []*graph.EntityNode{}
	pendingMentions := []*graph.Mention{}
	pendingEdges := []*graph.AssertionEdge{}

	resolve := func(name string, entityType types.EntityType) (*types.Entity, error) {
		if e, ok := entityIDs[name]; ok {
			return e, nil
		}
		e, err := p.store.UpsertEntity(ctx, entityType, name, nil, nil)
		if err != nil {
			return nil, err
		}
		entityIDs[name] = e
		entities++
		pendingNodes = append(pendingNodes, &graph.EntityNode{
			EntityID: e.ID, Name: e.CanonicalName, Type: string(e.Type),
		})
		return e, nil
	}

	for _, chunk := range chunks {
		candidate, extractErr := p.extractor.Extract(ctx, chunk.Text)
		if extractErr != nil {
			// The item fails; facts already written for earlier chunks
			// stay, the run is closed below.
			err = extractErr
			break
		}

		normEntities, normRelations := extract.Normalize(candidate, p.logger)

		typeByName := map[string]types.EntityType{}
		for _, ne := range normEntities {
			typeByName[ne.Name] = ne.Type
			e, resolveErr := p.store.UpsertEntity(ctx, ne.Type, ne.Name, ne.Aliases, nil)
			if resolveErr != nil {
				err = resolveErr
				break
			}
			if _, known := entityIDs[ne.Name]; !known {
				entities++
				pendingNodes = append(pendingNodes, &graph.EntityNode{
					EntityID: e.ID, Name: e.CanonicalName, Type: string(e.Type),
				})
			}
			entityIDs[ne.Name] = e
			pendingMentions = append(pendingMentions, &graph.Mention{
				ChunkID: chunk.ID, EntityID: e.ID, Confidence: 1,
			})
		}
		if err != nil {
			break
		}

		for _, rel := range normRelations {
			subjectType := typeByName[rel.SubjectName]
			if subjectType == "" {
				subjectType = types.EntityConcept
			}
			subject, resolveErr := resolve(rel.SubjectName, subjectType)
			if resolveErr != nil {
				err = resolveErr
				break
			}

			assertion := &types.Assertion{
				ID:               uuid.New().String(),
				SubjectEntityID:  subject.ID,
				Predicate:        rel.Predicate,
				Confidence:       rel.Confidence,
				SourceDocumentID: doc.ID,
				SourceChunkID:    &chunk.ID,
				ExtractionRunID:  &run.ID,
				ValidFrom:        time.Now().UTC(),
				Status:           types.StatusActive,
			}

			if rel.ObjectName != "" {
				objectType := typeByName[rel.ObjectName]
				if objectType == "" {
					objectType = types.EntityConcept
				}
				object, resolveErr := resolve(rel.ObjectName, objectType)
				if resolveErr != nil {
					err = resolveErr
					break
				}
				assertion.ObjectEntityID = &object.ID
			} else {
				literal := rel.Literal
				assertion.LiteralValue = &literal
			}

			inserted, insertErr := p.store.InsertAssertion(ctx, assertion)
			if insertErr != nil {
				err = insertErr
				break
			}
			assertions++

			edge := &graph.AssertionEdge{
				AssertionID:      inserted.ID,
				SubjectEntityID:  inserted.SubjectEntityID,
				Predicate:        inserted.Predicate,
				Confidence:       inserted.Confidence,
				SourceDocumentID: inserted.SourceDocumentID,
				SourceChunkID:    chunk.ID,
				ValidFrom:        inserted.ValidFrom,
				Status:           inserted.Status,
			}
			if inserted.ObjectEntityID != nil {
				edge.ObjectEntityID = *inserted.ObjectEntityID
			}
			if inserted.LiteralValue != nil {
				edge.LiteralValue = *inserted.LiteralValue
			}
			pendingEdges = append(pendingEdges, edge)
		}
		if err != nil {
			break
		}
	}

	if finishErr := p.store.FinishExtractionRun(ctx, run.ID, time.Now().UTC()); finishErr != nil {
		p.logger.Warn("failed to close extraction run", "run", run.ID, "error", finishErr)
	}

	// Project whatever was durably written, even when the item failed
	// part-way: the projection mirrors the store, not the item outcome.
	if len(pendingNodes) > 0 {
		if projErr := p.projector.UpsertEntities(ctx, pendingNodes); projErr != nil {
			stale++
			p.logger.Warn("entity projection failed", "document", doc.ID, "error", projErr)
		}
	}
	if len(pendingMentions) > 0 {
		if projErr := p.projector.UpsertMentions(ctx, pendingMentions); projErr != nil {
			stale++
			p.logger.Warn("mention projection failed", "document", doc.ID, "error", projErr)
		}
	}
	if len(pendingEdges) > 0 {
		if projErr := p.projector.UpsertAssertionEdges(ctx, pendingEdges); projErr != nil {
			stale++
			p.logger.Warn("assertion edge projection failed", "document", doc.ID, "error", projErr)
		}
	}

	return assertions, entities, stale, err
}

// deterministicPointID derives a stable vector point id from the chunk's
// identity so re-ingestion overwrites instead of duplicating.
func deterministicPointID(documentID string, chunkIndex int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", documentID, chunkIndex)))
	id, _ := uuid.FromBytes(hash[:16])
	return id.String()
}
