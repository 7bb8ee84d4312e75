package factstore

import (
	"context"
	"time"

	"github.com/edgarlens/factgraph/pkg/types"
)

// AssertionFilter selects assertions for FindAssertions. An empty filter is
// rejected by callers that would otherwise scan the whole table.
type AssertionFilter struct {
	SubjectEntityID  string                `json:"subject_entity_id,omitempty"`
	Predicate        types.Predicate       `json:"predicate,omitempty"`
	ObjectEntityID   string                `json:"object_entity_id,omitempty"`
	SourceDocumentID string                `json:"source_document_id,omitempty"`
	Status           types.AssertionStatus `json:"status,omitempty"`
	MinConfidence    float64               `json:"min_confidence,omitempty"`
	Limit            int                   `json:"limit,omitempty"`
}

// IsEmpty reports whether no selective dimension is set. Limit and
// MinConfidence alone do not make a filter selective.
func (f *AssertionFilter) IsEmpty() bool {
	return f.SubjectEntityID == "" &&
		f.Predicate == "" &&
		f.ObjectEntityID == "" &&
		f.SourceDocumentID == "" &&
		f.Status == ""
}

// DocumentFilter selects documents for ListDocuments.
type DocumentFilter struct {
	Source     string     `json:"source,omitempty"`
	DocType    string     `json:"doc_type,omitempty"`
	ExternalID string     `json:"external_id,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// SignalPoint is one observation of a signal series, keyed by the resolved
// subject entity when resolution succeeded and by the raw external id
// otherwise.
type SignalPoint struct {
	SubjectKey string    `json:"subject_key"`
	ExternalID string    `json:"external_id"`
	AsOfDate   time.Time `json:"as_of_date"`
	Value      float64   `json:"value"`
}

// Stats summarizes row counts for health introspection.
type Stats struct {
	EntityCount     int64 `json:"entity_count"`
	DocumentCount   int64 `json:"document_count"`
	ChunkCount      int64 `json:"chunk_count"`
	AssertionCount  int64 `json:"assertion_count"`
	ActiveCount     int64 `json:"active_assertion_count"`
	CorrectionCount int64 `json:"correction_count"`
	SignalCount     int64 `json:"signal_count"`
}

// Store is the authoritative fact store contract. All writes are
// all-or-nothing per logical operation; the graph projection is never
// touched from here.
type Store interface {
	// Initialize ensures the schema exists.
	Initialize(ctx context.Context) error

	// Close releases the connection pool.
	Close() error

	// --- Entities ---

	// UpsertEntity matches by (type, canonicalName) exactly, merging aliases
	// (set union) and identifiers (incoming wins on key collision) into an
	// existing row, or inserts a new one.
	UpsertEntity(ctx context.Context, entityType types.EntityType, canonicalName string, aliases []string, identifiers map[string]string) (*types.Entity, error)

	// GetEntity retrieves an entity by id.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)

	// GetEntities retrieves entities by id, skipping unknown ids.
	GetEntities(ctx context.Context, ids []string) ([]*types.Entity, error)

	// SearchEntities matches canonical names and aliases case-insensitively,
	// optionally narrowed to entity types.
	SearchEntities(ctx context.Context, query string, entityTypes []types.EntityType, limit int) ([]*types.Entity, error)

	// FindCompanyByExternalID resolves a company entity whose identifiers
	// contain the given normalized external id. A miss returns (nil, nil).
	FindCompanyByExternalID(ctx context.Context, key, normalizedID string) (*types.Entity, error)

	// --- Documents and chunks ---

	// UpsertDocument inserts a document or returns the existing row matched
	// by (source, accessionNo). Documents are immutable once written.
	UpsertDocument(ctx context.Context, doc *types.Document) (*types.Document, error)

	// GetDocument retrieves a document by id.
	GetDocument(ctx context.Context, id string) (*types.Document, error)

	// ListDocuments returns documents matching the filter, newest first.
	ListDocuments(ctx context.Context, filter *DocumentFilter) ([]*types.Document, error)

	// InsertChunks writes the chunks of one document, idempotently on
	// (documentID, chunkIndex).
	InsertChunks(ctx context.Context, chunks []*types.DocumentChunk) error

	// GetChunks retrieves chunks by id, skipping unknown ids.
	GetChunks(ctx context.Context, ids []string) ([]*types.DocumentChunk, error)

	// --- Extraction runs ---

	// InsertExtractionRun records the start of an extraction pass.
	InsertExtractionRun(ctx context.Context, run *types.ExtractionRun) error

	// FinishExtractionRun stamps the run's finish time.
	FinishExtractionRun(ctx context.Context, runID string, finishedAt time.Time) error

	// --- Assertions and corrections ---

	// InsertAssertion validates and writes a new active assertion.
	InsertAssertion(ctx context.Context, a *types.Assertion) (*types.Assertion, error)

	// GetAssertion retrieves an assertion by id.
	GetAssertion(ctx context.Context, id string) (*types.Assertion, error)

	// FindAssertions returns assertions matching the filter.
	FindAssertions(ctx context.Context, filter *AssertionFilter) ([]*types.Assertion, error)

	// ActiveAssertionsByPredicates returns currently valid active assertions
	// for the given predicates, the conflict detector's feed.
	ActiveAssertionsByPredicates(ctx context.Context, predicates []types.Predicate) ([]*types.Assertion, error)

	// ApplyCorrection atomically closes the target assertion, inserts the
	// replacement assertion when present, and records the correction row.
	// All three writes commit together or not at all.
	ApplyCorrection(ctx context.Context, targetID string, status types.AssertionStatus, validTo time.Time, replacement *types.Assertion, correction *types.Correction) error

	// CorrectionsForAssertion lists corrections targeting an assertion.
	CorrectionsForAssertion(ctx context.Context, assertionID string) ([]*types.Correction, error)

	// --- Signals ---

	// UpsertSignal resolves the subject entity by external id and writes the
	// observation with upsert semantics on (externalID, signalKey, asOfDate,
	// source). An unresolved subject is stored as-is, not an error.
	UpsertSignal(ctx context.Context, s *types.Signal) (*types.Signal, error)

	// SignalSeries returns all observations of one signal key since the
	// given date, ordered by subject then date.
	SignalSeries(ctx context.Context, signalKey string, since time.Time) ([]SignalPoint, error)

	// --- Introspection ---

	// GetStats returns row counts.
	GetStats(ctx context.Context) (*Stats, error)
}
