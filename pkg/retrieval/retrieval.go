// Package retrieval answers read queries: hybrid chunk search with filter
// broadening, structured fact queries, citation hydration, and per-filing
// timeline search.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/edgarlens/factgraph/pkg/extract"
	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/types"
	"github.com/edgarlens/factgraph/pkg/vector"
)

const (
	// DefaultTopK bounds search results when the caller does not set one.
	DefaultTopK = 10

	// DefaultTimelineTopK bounds per-filing hits in a timeline search.
	DefaultTimelineTopK = 3

	// MaxTimelineDocuments caps the fan-out of one timeline search.
	MaxTimelineDocuments = 40
)

// SearchRequest is one hybrid chunk search.
type SearchRequest struct {
	Query     string `json:"query"`
	Cik       string `json:"cik,omitempty"`
	DocType   string `json:"doc_type,omitempty"`
	Accession string `json:"accession,omitempty"`
	TopK      int    `json:"top_k,omitempty"`
}

// ChunkHit is one search hit hydrated with document provenance.
type ChunkHit struct {
	ChunkID     string     `json:"chunk_id"`
	DocumentID  string     `json:"document_id"`
	Score       float64    `json:"score"`
	Text        string     `json:"text"`
	Source      string     `json:"source,omitempty"`
	DocType     string     `json:"doc_type,omitempty"`
	AccessionNo string     `json:"accession_no,omitempty"`
	FilingDate  *time.Time `json:"filing_date,omitempty"`
}

// SearchResult carries the hits plus which filter level actually matched,
// so callers can tell a precise answer from a broadened one.
type SearchResult struct {
	Hits           []*ChunkHit `json:"hits"`
	MatchedFilters []string    `json:"matched_filters"`
	Attempts       int         `json:"attempts"`
}

// FactView is an assertion hydrated with entity names for display.
type FactView struct {
	Assertion   *types.Assertion `json:"assertion"`
	SubjectName string           `json:"subject_name,omitempty"`
	ObjectName  string           `json:"object_name,omitempty"`
}

// CitationsRequest identifies evidence to hydrate. Chunk ids resolve to
// text plus document metadata; assertion ids resolve through their source
// chunk, or to a document-only citation when the assertion has no chunk.
type CitationsRequest struct {
	ChunkIDs     []string `json:"chunk_ids,omitempty"`
	AssertionIDs []string `json:"assertion_ids,omitempty"`
}

// TimelineRequest searches the same query across a company's filings over
// time, one search per filing.
type TimelineRequest struct {
	Query   string     `json:"query"`
	Cik     string     `json:"cik"`
	DocType string     `json:"doc_type,omitempty"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	TopK    int        `json:"top_k,omitempty"`
}

// TimelineEntry is one filing's best hits, in filing-date order.
type TimelineEntry struct {
	DocumentID  string      `json:"document_id"`
	AccessionNo string      `json:"accession_no"`
	DocType     string      `json:"doc_type"`
	FilingDate  *time.Time  `json:"filing_date,omitempty"`
	Hits        []*ChunkHit `json:"hits"`
}

// Service answers read queries against the fact store and the vector index.
type Service struct {
	store    factstore.Store
	index    vector.Index
	embedder extract.Embedder
	logger   *slog.Logger
}

// NewService creates a retrieval service. A nil logger falls back to
// slog.Default().
func NewService(store factstore.Store, index vector.Index, embedder extract.Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, index: index, embedder: embedder, logger: logger}
}

// SearchEntities matches canonical names and aliases case-insensitively.
func (s *Service) SearchEntities(ctx context.Context, query string, entityTypes []types.EntityType, limit int) ([]*types.Entity, error) {
	if query == "" {
		return []*types.Entity{}, nil
	}
	return s.store.SearchEntities(ctx, query, entityTypes, limit)
}

// Search embeds the query, searches the vector index with progressive
// filter broadening, and hydrates document provenance onto the hits.
func (s *Service) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if req.Query == "" {
		return nil, &types.ValidationError{Field: "query", Reason: "must not be empty"}
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVector, err := s.embedQuery(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	filters := vector.Filters{
		Cik:       factstore.NormalizeExternalID(req.Cik),
		DocType:   req.DocType,
		Accession: req.Accession,
	}

	broadened, err := vector.SearchWithBroadening(ctx, s.index, queryVector, filters, topK)
	if err != nil {
		return nil, err
	}

	hits, err := s.hydrateHits(ctx, broadened.Hits)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Hits:           hits,
		MatchedFilters: broadened.MatchedFilters,
		Attempts:       broadened.Attempts,
	}, nil
}

// Facts returns stored assertions matching the filter, hydrated with entity
// names. An empty filter returns an empty result rather than the whole
// table.
func (s *Service) Facts(ctx context.Context, filter *factstore.AssertionFilter) ([]*FactView, error) {
	if filter == nil || filter.IsEmpty() {
		return []*FactView{}, nil
	}

	assertions, err := s.store.FindAssertions(ctx, filter)
	if err != nil {
		return nil, err
	}

	entityIDs := []string{}
	seen := map[string]bool{}
	collect := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			entityIDs = append(entityIDs, id)
		}
	}
	for _, a := range assertions {
		collect(a.SubjectEntityID)
		if a.ObjectEntityID != nil {
			collect(*a.ObjectEntityID)
		}
	}

	names := map[string]string{}
	if len(entityIDs) > 0 {
		entities, err := s.store.GetEntities(ctx, entityIDs)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			names[e.ID] = e.CanonicalName
		}
	}

	views := make([]*FactView, len(assertions))
	for i, a := range assertions {
		view := &FactView{Assertion: a, SubjectName: names[a.SubjectEntityID]}
		if a.ObjectEntityID != nil {
			view.ObjectName = names[*a.ObjectEntityID]
		}
		views[i] = view
	}
	return views, nil
}

// Citations hydrates evidence references into displayable citations.
// Unknown ids are skipped; an assertion without a source chunk yields a
// document-only citation.
func (s *Service) Citations(ctx context.Context, req *CitationsRequest) ([]*types.Citation, error) {
	citations := []*types.Citation{}

	chunkIDs := append([]string{}, req.ChunkIDs...)
	chunkFor := map[string]*string{} // chunk id -> assertion id, nil for direct requests
	for _, id := range req.ChunkIDs {
		chunkFor[id] = nil
	}

	for _, assertionID := range req.AssertionIDs {
		a, err := s.store.GetAssertion(ctx, assertionID)
		if err != nil {
			return nil, err
		}
		id := assertionID
		if a.SourceChunkID == nil {
			doc, err := s.store.GetDocument(ctx, a.SourceDocumentID)
			if err != nil {
				return nil, err
			}
			citations = append(citations, documentCitation(doc, nil, &id))
			continue
		}
		if _, queued := chunkFor[*a.SourceChunkID]; !queued {
			chunkIDs = append(chunkIDs, *a.SourceChunkID)
		}
		chunkFor[*a.SourceChunkID] = &id
	}

	if len(chunkIDs) == 0 {
		return citations, nil
	}

	chunks, err := s.store.GetChunks(ctx, chunkIDs)
	if err != nil {
		return nil, err
	}

	docs, err := s.documentsFor(ctx, chunks)
	if err != nil {
		return nil, err
	}

	for _, chunk := range chunks {
		doc := docs[chunk.DocumentID]
		if doc == nil {
			continue
		}
		chunkID := chunk.ID
		citation := documentCitation(doc, &chunkID, chunkFor[chunk.ID])
		citation.Text = chunk.Text
		citations = append(citations, citation)
	}
	return citations, nil
}

// Timeline runs the query against each of a company's filings separately,
// returning hits grouped per filing in chronological order.
func (s *Service) Timeline(ctx context.Context, req *TimelineRequest) ([]*TimelineEntry, error) {
	if req.Query == "" {
		return nil, &types.ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if req.Cik == "" {
		return nil, &types.ValidationError{Field: "cik", Reason: "must not be empty"}
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTimelineTopK
	}

	docs, err := s.store.ListDocuments(ctx, &factstore.DocumentFilter{
		ExternalID: req.Cik,
		DocType:    req.DocType,
		From:       req.From,
		To:         req.To,
		Limit:      MaxTimelineDocuments,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []*TimelineEntry{}, nil
	}

	queryVector, err := s.embedQuery(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	entries := []*TimelineEntry{}
	for _, doc := range docs {
		// Exact per-filing scope: broadening here would leak other
		// filings into the wrong timeline slot.
		hits, err := s.index.Search(ctx, queryVector, vector.Filters{
			Cik:       factstore.NormalizeExternalID(req.Cik),
			Accession: doc.AccessionNo,
		}, topK)
		if err != nil {
			return nil, err
		}
		if len(hits) == 0 {
			continue
		}
		entry := &TimelineEntry{
			DocumentID:  doc.ID,
			AccessionNo: doc.AccessionNo,
			DocType:     doc.DocType,
			FilingDate:  doc.FilingDate,
		}
		for _, hit := range hits {
			entry.Hits = append(entry.Hits, &ChunkHit{
				ChunkID:     hit.ChunkID,
				DocumentID:  doc.ID,
				Score:       hit.Score,
				Text:        hit.Text,
				Source:      doc.Source,
				DocType:     doc.DocType,
				AccessionNo: doc.AccessionNo,
				FilingDate:  doc.FilingDate,
			})
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].FilingDate, entries[j].FilingDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return entries, nil
}

// ListDocuments returns documents matching the filter, newest first.
func (s *Service) ListDocuments(ctx context.Context, filter *factstore.DocumentFilter) ([]*types.Document, error) {
	if filter == nil {
		filter = &factstore.DocumentFilter{}
	}
	return s.store.ListDocuments(ctx, filter)
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}
	return vectors[0], nil
}

func (s *Service) hydrateHits(ctx context.Context, hits []*vector.Hit) ([]*ChunkHit, error) {
	docIDs := []string{}
	seen := map[string]bool{}
	for _, hit := range hits {
		if hit.DocumentID != "" && !seen[hit.DocumentID] {
			seen[hit.DocumentID] = true
			docIDs = append(docIDs, hit.DocumentID)
		}
	}

	docs := map[string]*types.Document{}
	for _, id := range docIDs {
		doc, err := s.store.GetDocument(ctx, id)
		if err != nil {
			// The index can reference a document the store no longer
			// has only when the projection is stale; keep the hit.
			s.logger.Warn("hit references unknown document", "document", id, "error", err)
			continue
		}
		docs[id] = doc
	}

	out := make([]*ChunkHit, len(hits))
	for i, hit := range hits {
		ch := &ChunkHit{
			ChunkID:    hit.ChunkID,
			DocumentID: hit.DocumentID,
			Score:      hit.Score,
			Text:       hit.Text,
		}
		if doc := docs[hit.DocumentID]; doc != nil {
			ch.Source = doc.Source
			ch.DocType = doc.DocType
			ch.AccessionNo = doc.AccessionNo
			ch.FilingDate = doc.FilingDate
		}
		out[i] = ch
	}
	return out, nil
}

func documentCitation(doc *types.Document, chunkID, assertionID *string) *types.Citation {
	return &types.Citation{
		ChunkID:     chunkID,
		AssertionID: assertionID,
		DocumentID:  doc.ID,
		Source:      doc.Source,
		DocType:     doc.DocType,
		AccessionNo: doc.AccessionNo,
		FilingDate:  doc.FilingDate,
		URL:         doc.URL,
	}
}

func (s *Service) documentsFor(ctx context.Context, chunks []*types.DocumentChunk) (map[string]*types.Document, error) {
	docs := map[string]*types.Document{}
	for _, chunk := range chunks {
		if _, ok := docs[chunk.DocumentID]; ok {
			continue
		}
		doc, err := s.store.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			return nil, err
		}
		docs[chunk.DocumentID] = doc
	}
	return docs, nil
}
