// Package extract is the validation and coercion boundary between the
// untrusted LLM collaborator and the typed core.
//
// Candidate output is never trusted: arrays can arrive as JSON-encoded
// strings, predicates and entity types are free text. Everything is parsed,
// coerced, normalized against the fixed vocabulary and synonym table, and
// anything that fails normalization is dropped with a logged reason, never
// stored as-is.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/edgarlens/factgraph/pkg/types"
)

// CandidateEntity is one raw entity proposal from the extractor.
type CandidateEntity struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Aliases     FlexList `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
}

// CandidateRelation is one raw relation proposal from the extractor.
type CandidateRelation struct {
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object,omitempty"`
	Literal    string  `json:"literal,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Candidate is the untyped extraction payload for one chunk.
type Candidate struct {
	Entities  []CandidateEntity   `json:"entities"`
	Relations []CandidateRelation `json:"relations"`
}

// Extractor proposes entities and relations for one chunk of text.
type Extractor interface {
	Extract(ctx context.Context, chunkText string) (*Candidate, error)
}

// FlexList tolerates the two shapes models actually emit for string
// arrays: a JSON array, or the whole array JSON-encoded as a string.
type FlexList []string

func (f *FlexList) UnmarshalJSON(data []byte) error {
	var direct []string
	if err := json.Unmarshal(data, &direct); err == nil {
		*f = direct
		return nil
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		// Unusable shape; drop rather than fail the whole payload.
		*f = nil
		return nil
	}
	var nested []string
	if err := json.Unmarshal([]byte(encoded), &nested); err != nil {
		if encoded != "" {
			*f = []string{encoded}
		}
		return nil
	}
	*f = nested
	return nil
}

// NormalizedEntity is an entity proposal that passed the boundary.
type NormalizedEntity struct {
	Name    string
	Type    types.EntityType
	Aliases []string
}

// NormalizedRelation is a relation proposal that passed the boundary.
// Subject and object reference entities by name within the same candidate.
type NormalizedRelation struct {
	SubjectName string
	Predicate   types.Predicate
	ObjectName  string
	Literal     string
	Confidence  float64
}

// entityTypeSynonyms maps free-text type strings to the vocabulary. Lookup
// is case-insensitive; anything unmatched falls back to concept.
var entityTypeSynonyms = map[string]types.EntityType{
	"company":      types.EntityCompany,
	"corporation":  types.EntityCompany,
	"firm":         types.EntityCompany,
	"organization": types.EntityCompany,
	"issuer":       types.EntityCompany,
	"instrument":   types.EntityInstrument,
	"security":     types.EntityInstrument,
	"stock":        types.EntityInstrument,
	"ticker":       types.EntityInstrument,
	"bond":         types.EntityInstrument,
	"sector":       types.EntitySector,
	"industry":     types.EntitySector,
	"country":      types.EntityCountry,
	"nation":       types.EntityCountry,
	"region":       types.EntityCountry,
	"event":        types.EntityEvent,
	"indicator":    types.EntityIndicator,
	"metric":       types.EntityIndicator,
	"concept":      types.EntityConcept,
	"topic":        types.EntityConcept,
	"theme":        types.EntityConcept,
}

// NormalizeEntityType resolves a free-text type through the synonym table,
// defaulting to concept when unrecognized.
func NormalizeEntityType(raw string) types.EntityType {
	if t, ok := entityTypeSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t
	}
	return types.EntityConcept
}

// NormalizePredicate canonicalizes a free-text predicate (upper snake case)
// and checks it against the vocabulary. Unrecognized predicates return
// ("", false) and are dropped by the caller, never stored.
func NormalizePredicate(raw string) (types.Predicate, bool) {
	canonical := strings.ToUpper(strings.TrimSpace(raw))
	canonical = strings.ReplaceAll(canonical, " ", "_")
	canonical = strings.ReplaceAll(canonical, "-", "_")
	p := types.Predicate(canonical)
	if types.PredicateVocabulary[p] {
		return p, true
	}
	return "", false
}

// Normalize applies the full boundary to a candidate payload: entity types
// through the synonym table, predicates against the vocabulary, and the
// drop rules for unnamed or self-referential relations.
func Normalize(candidate *Candidate, logger *slog.Logger) ([]NormalizedEntity, []NormalizedRelation) {
	if logger == nil {
		logger = slog.Default()
	}

	entities := []NormalizedEntity{}
	entityNames := map[string]bool{}
	for _, e := range candidate.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			logger.Debug("dropping unnamed candidate entity")
			continue
		}
		if entityNames[name] {
			continue
		}
		entityNames[name] = true
		entities = append(entities, NormalizedEntity{
			Name:    name,
			Type:    NormalizeEntityType(e.Type),
			Aliases: []string(e.Aliases),
		})
	}

	relations := []NormalizedRelation{}
	for _, r := range candidate.Relations {
		subject := strings.TrimSpace(r.Subject)
		object := strings.TrimSpace(r.Object)
		literal := strings.TrimSpace(r.Literal)

		if subject == "" || (object == "" && literal == "") {
			logger.Debug("dropping incomplete candidate relation", "predicate", r.Predicate)
			continue
		}
		if subject == object {
			logger.Debug("dropping self-referential candidate relation", "subject", subject)
			continue
		}

		predicate, ok := NormalizePredicate(r.Predicate)
		if !ok {
			logger.Debug("dropping relation with unknown predicate", "predicate", r.Predicate)
			continue
		}

		confidence := r.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 0.5
		}

		relations = append(relations, NormalizedRelation{
			SubjectName: subject,
			Predicate:   predicate,
			ObjectName:  object,
			Literal:     literal,
			Confidence:  confidence,
		})
	}

	return entities, relations
}
