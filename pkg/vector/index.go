// Package vector wraps the external vector index used for chunk recall and
// implements progressive filter broadening: an over-specified filter set
// that returns nothing is relaxed one dimension at a time, most specific
// first, until hits are found or the search is global.
package vector

import (
	"context"
)

// Point is one chunk vector with its filterable payload.
type Point struct {
	ID         string    `json:"id"`
	Vector     []float32 `json:"vector"`
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Cik        string    `json:"cik"`
	DocType    string    `json:"doc_type"`
	Accession  string    `json:"accession"`
	Text       string    `json:"text"`
}

// Filters narrows a search. Zero-valued dimensions are not applied.
// Specificity order, most to least: Accession, DocType, Cik.
type Filters struct {
	Cik       string `json:"cik,omitempty"`
	DocType   string `json:"doc_type,omitempty"`
	Accession string `json:"accession,omitempty"`
}

// IsEmpty reports whether no dimension is set (a global search).
func (f Filters) IsEmpty() bool {
	return f.Cik == "" && f.DocType == "" && f.Accession == ""
}

// Key canonicalizes the applied dimensions for deduplicating attempts.
func (f Filters) Key() string {
	return f.Cik + "|" + f.DocType + "|" + f.Accession
}

// Hit is one search result with its raw similarity score.
type Hit struct {
	ID         string  `json:"id"`
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
	Text       string  `json:"text,omitempty"`
	Accession  string  `json:"accession,omitempty"`
}

// Index is the external vector index contract.
type Index interface {
	// EnsureSchema creates the chunk class if missing.
	EnsureSchema(ctx context.Context) error

	// Upsert writes points idempotently by id.
	Upsert(ctx context.Context, points []*Point) error

	// Search returns up to topK nearest chunks passing the filters.
	Search(ctx context.Context, vector []float32, filters Filters, topK int) ([]*Hit, error)

	// Close releases client resources.
	Close() error
}

// BroadenPlan returns the ordered filter sets a broadening search attempts:
// the full set, then with the most specific remaining dimension dropped,
// down to the empty (global) set. Identical consecutive sets collapse, so
// the plan never retries a filter combination.
func BroadenPlan(filters Filters) []Filters {
	steps := []Filters{
		filters,
		{Cik: filters.Cik, DocType: filters.DocType},
		{Cik: filters.Cik},
		{},
	}

	plan := []Filters{}
	seen := map[string]bool{}
	for _, step := range steps {
		if seen[step.Key()] {
			continue
		}
		seen[step.Key()] = true
		plan = append(plan, step)
	}
	return plan
}

// Applied names the dimensions a filter set carries, for reporting which
// broadening level finally matched.
func (f Filters) Applied() []string {
	applied := []string{}
	if f.Cik != "" {
		applied = append(applied, "cik")
	}
	if f.DocType != "" {
		applied = append(applied, "doc_type")
	}
	if f.Accession != "" {
		applied = append(applied, "accession")
	}
	return applied
}

// BroadenResult is the outcome of a progressive search: the hits plus the
// filter level that produced them.
type BroadenResult struct {
	Hits           []*Hit   `json:"hits"`
	MatchedFilters []string `json:"matched_filters"`
	Attempts       int      `json:"attempts"`
}

// SearchWithBroadening runs the broadening plan against the index, stopping
// at the first level that returns hits. Relaxing filters only ever adds
// candidates, so the first non-empty level is the most specific answer
// available.
func SearchWithBroadening(ctx context.Context, index Index, vector []float32, filters Filters, topK int) (*BroadenResult, error) {
	result := &BroadenResult{Hits: []*Hit{}, MatchedFilters: []string{}}

	for _, step := range BroadenPlan(filters) {
		result.Attempts++
		hits, err := index.Search(ctx, vector, step, topK)
		if err != nil {
			return nil, err
		}
		if len(hits) > 0 {
			result.Hits = hits
			result.MatchedFilters = step.Applied()
			return result, nil
		}
	}

	return result, nil
}
