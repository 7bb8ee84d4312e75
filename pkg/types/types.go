package types

import (
	"errors"
	"time"
)

// Validation errors
var (
	ErrEmptyCanonicalName = errors.New("canonical name cannot be empty")
	ErrEmptyEntityType    = errors.New("entity type cannot be empty")
	ErrEmptySubject       = errors.New("subject entity id cannot be empty")
	ErrEmptyPredicate     = errors.New("predicate cannot be empty")
	ErrEmptySource        = errors.New("source document id cannot be empty")
	ErrEmptyAccessionNo   = errors.New("accession number cannot be empty")
	ErrEmptySignalKey     = errors.New("signal key cannot be empty")
	ErrObjectAndLiteral   = errors.New("assertion must carry exactly one of object entity id or literal value")
	ErrConfidenceRange    = errors.New("confidence must be in [0, 1]")
)

// EntityType classifies an entity in the identity space.
type EntityType string

const (
	EntityCompany    EntityType = "company"
	EntityInstrument EntityType = "instrument"
	EntitySector     EntityType = "sector"
	EntityCountry    EntityType = "country"
	EntityEvent      EntityType = "event"
	EntityConcept    EntityType = "concept"
	EntityIndicator  EntityType = "indicator"
)

// Entity is a deduplicated real-world subject or object of assertions.
// Identity key is (Type, CanonicalName), exact match. Entities are never
// deleted; ingestion creates stubs, extraction merges aliases/identifiers.
type Entity struct {
	ID            string            `json:"id"`
	Type          EntityType        `json:"type"`
	CanonicalName string            `json:"canonical_name"`
	Aliases       []string          `json:"aliases,omitempty"`
	Identifiers   map[string]string `json:"identifiers,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Validate checks the fields required before an entity row can be written.
func (e *Entity) Validate() error {
	if e.CanonicalName == "" {
		return ErrEmptyCanonicalName
	}
	if e.Type == "" {
		return ErrEmptyEntityType
	}
	return nil
}

// Document is an immutable source record, e.g. one SEC filing.
// Uniqueness key is (Source, AccessionNo).
type Document struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	DocType     string     `json:"doc_type"`
	ExternalID  string     `json:"external_id"` // cik for SEC sources
	AccessionNo string     `json:"accession_no"`
	FilingDate  *time.Time `json:"filing_date,omitempty"`
	URL         string     `json:"url,omitempty"`
	ContentHash string     `json:"content_hash,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate checks the fields required before a document row can be written.
func (d *Document) Validate() error {
	if d.AccessionNo == "" {
		return ErrEmptyAccessionNo
	}
	if d.Source == "" {
		return ErrEmptySource
	}
	return nil
}

// DocumentChunk is an immutable retrievable unit of a document.
// Uniqueness key is (DocumentID, ChunkIndex). Chunks are cascade-deleted
// with their document and never mutated.
type DocumentChunk struct {
	ID               string    `json:"id"`
	DocumentID       string    `json:"document_id"`
	ChunkIndex       int       `json:"chunk_index"`
	Text             string    `json:"text"`
	StartOffset      int       `json:"start_offset"`
	EndOffset        int       `json:"end_offset"`
	ExternalVectorID string    `json:"external_vector_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ExtractionRun is an append-only audit record of one extraction pass.
type ExtractionRun struct {
	ID            string     `json:"id"`
	Model         string     `json:"model"`
	PromptVersion string     `json:"prompt_version"`
	Parameters    string     `json:"parameters,omitempty"` // JSON blob of model parameters
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Signal is one time-series observation joined to the entity identity space
// by external id. Uniqueness key is (ExternalID, SignalKey, AsOfDate, Source)
// with upsert semantics: re-ingesting the same key updates value and
// provenance without versioning.
type Signal struct {
	ID              string    `json:"id"`
	ExternalID      string    `json:"external_id"` // cik
	SubjectEntityID *string   `json:"subject_entity_id,omitempty"`
	SignalKey       string    `json:"signal_key"`
	AsOfDate        time.Time `json:"as_of_date"`
	Value           float64   `json:"value"`
	Unit            string    `json:"unit,omitempty"`
	Source          string    `json:"source"`
	SourceRef       string    `json:"source_ref,omitempty"`
	Confidence      float64   `json:"confidence"`
	Raw             string    `json:"raw,omitempty"` // original payload, JSON
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks the fields required before a signal row can be written.
func (s *Signal) Validate() error {
	if s.ExternalID == "" {
		return ErrEmptySource
	}
	if s.SignalKey == "" {
		return ErrEmptySignalKey
	}
	return nil
}

// Citation resolves a chunk or assertion back to citable source text.
// An assertion with no source chunk yields Text == "" and ChunkID == nil,
// which is a valid answer, not an error.
type Citation struct {
	ChunkID     *string    `json:"chunk_id,omitempty"`
	AssertionID *string    `json:"assertion_id,omitempty"`
	Text        string     `json:"text,omitempty"`
	DocumentID  string     `json:"document_id,omitempty"`
	Source      string     `json:"source,omitempty"`
	DocType     string     `json:"doc_type,omitempty"`
	AccessionNo string     `json:"accession_no,omitempty"`
	FilingDate  *time.Time `json:"filing_date,omitempty"`
	URL         string     `json:"url,omitempty"`
}
