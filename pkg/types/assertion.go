package types

import (
	"time"
)

// AssertionStatus is the lifecycle state of an assertion. Active assertions
// have no ValidTo; retracted and superseded are terminal and carry one.
type AssertionStatus string

const (
	StatusActive     AssertionStatus = "active"
	StatusRetracted  AssertionStatus = "retracted"
	StatusSuperseded AssertionStatus = "superseded"
)

// Terminal reports whether the status admits no further transitions.
func (s AssertionStatus) Terminal() bool {
	return s == StatusRetracted || s == StatusSuperseded
}

// Predicate is a vocabulary-controlled relation name. Predicates arriving
// from extraction are normalized against the vocabulary; unknown predicates
// are dropped before they reach the store.
type Predicate string

const (
	PredicateBenefitsFrom    Predicate = "BENEFITS_FROM"
	PredicateExposedTo       Predicate = "EXPOSED_TO"
	PredicateCompetesWith    Predicate = "COMPETES_WITH"
	PredicateSuppliesTo      Predicate = "SUPPLIES_TO"
	PredicateOperatesIn      Predicate = "OPERATES_IN"
	PredicateHeadquarteredIn Predicate = "HEADQUARTERED_IN"
	PredicateBelongsToSector Predicate = "BELONGS_TO_SECTOR"
	PredicateHasCEO          Predicate = "HAS_CEO"
	PredicateHasTicker       Predicate = "HAS_TICKER"
	PredicateMentionsEvent   Predicate = "MENTIONS_EVENT"
	PredicateIssuedBy        Predicate = "ISSUED_BY"
	PredicateAffectedBy      Predicate = "AFFECTED_BY"
)

// PredicateVocabulary is the closed set of predicates the store accepts.
var PredicateVocabulary = map[Predicate]bool{
	PredicateBenefitsFrom:    true,
	PredicateExposedTo:       true,
	PredicateCompetesWith:    true,
	PredicateSuppliesTo:      true,
	PredicateOperatesIn:      true,
	PredicateHeadquarteredIn: true,
	PredicateBelongsToSector: true,
	PredicateHasCEO:          true,
	PredicateHasTicker:       true,
	PredicateMentionsEvent:   true,
	PredicateIssuedBy:        true,
	PredicateAffectedBy:      true,
}

// SingleValuedPredicates are predicates for which a subject is expected to
// have at most one currently valid value. Violations are conflicts, reported
// by the conflict detector and resolved only by manual correction.
var SingleValuedPredicates = []Predicate{
	PredicateHasCEO,
	PredicateHeadquarteredIn,
	PredicateBelongsToSector,
	PredicateHasTicker,
}

// Assertion is the central versioned fact: subject relates to an object
// entity or a literal value via a predicate, with provenance back to the
// source document/chunk/extraction run. The id is immutable and is the join
// key used by the graph projection. History is never overwritten: a
// correction produces a new row, never a mutation of subject/predicate/object.
type Assertion struct {
	ID               string          `json:"id"`
	SubjectEntityID  string          `json:"subject_entity_id"`
	Predicate        Predicate       `json:"predicate"`
	ObjectEntityID   *string         `json:"object_entity_id,omitempty"`
	LiteralValue     *string         `json:"literal_value,omitempty"`
	Confidence       float64         `json:"confidence"`
	SourceDocumentID string          `json:"source_document_id"`
	SourceChunkID    *string         `json:"source_chunk_id,omitempty"`
	ExtractionRunID  *string         `json:"extraction_run_id,omitempty"`
	ValidFrom        time.Time       `json:"valid_from"`
	ValidTo          *time.Time      `json:"valid_to,omitempty"`
	Status           AssertionStatus `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Validate enforces the object-xor-literal invariant and field ranges
// before any write.
func (a *Assertion) Validate() error {
	if a.SubjectEntityID == "" {
		return ErrEmptySubject
	}
	if a.Predicate == "" {
		return ErrEmptyPredicate
	}
	if a.SourceDocumentID == "" {
		return ErrEmptySource
	}
	hasObject := a.ObjectEntityID != nil && *a.ObjectEntityID != ""
	hasLiteral := a.LiteralValue != nil && *a.LiteralValue != ""
	if hasObject == hasLiteral {
		return ErrObjectAndLiteral
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return ErrConfidenceRange
	}
	return nil
}

// ValueKey returns the comparison key used when grouping assertion values,
// preferring the object entity id and treating an absent literal as a NULL
// sentinel so distinct absences still collapse to one value.
func (a *Assertion) ValueKey() string {
	if a.ObjectEntityID != nil && *a.ObjectEntityID != "" {
		return "entity:" + *a.ObjectEntityID
	}
	if a.LiteralValue != nil {
		return "literal:" + *a.LiteralValue
	}
	return "null"
}

// AssertionDraft is the caller-supplied shape for inserting a new assertion
// or the replacement half of a supersede. Unset fields on a supersede draft
// are inherited from the target assertion.
type AssertionDraft struct {
	SubjectEntityID  string     `json:"subject_entity_id,omitempty"`
	Predicate        Predicate  `json:"predicate,omitempty"`
	ObjectEntityID   *string    `json:"object_entity_id,omitempty"`
	LiteralValue     *string    `json:"literal_value,omitempty"`
	Confidence       *float64   `json:"confidence,omitempty"`
	SourceDocumentID string     `json:"source_document_id,omitempty"`
	SourceChunkID    *string    `json:"source_chunk_id,omitempty"`
	ExtractionRunID  *string    `json:"extraction_run_id,omitempty"`
	ValidFrom        *time.Time `json:"valid_from,omitempty"`
}

// CorrectionAction identifies how a correction changed its target.
// Override is operationally identical to supersede and exists only so the
// audit trail distinguishes analyst overrides from routine supersession.
type CorrectionAction string

const (
	ActionRetract   CorrectionAction = "retract"
	ActionSupersede CorrectionAction = "supersede"
	ActionOverride  CorrectionAction = "override"
)

// Correction is the append-only audit record of one applied correction.
type Correction struct {
	ID                string           `json:"id"`
	TargetAssertionID string           `json:"target_assertion_id"`
	Action            CorrectionAction `json:"action"`
	Reason            string           `json:"reason,omitempty"`
	CreatedBy         string           `json:"created_by,omitempty"`
	NewAssertionID    *string          `json:"new_assertion_id,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}
