package graph

import (
	"context"
	"time"

	"github.com/edgarlens/factgraph/pkg/types"
)

// EntityNode is the graph mirror of an entity row.
type EntityNode struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

// FilingNode is the graph mirror of a document row.
type FilingNode struct {
	DocumentID  string     `json:"document_id"`
	Source      string     `json:"source"`
	DocType     string     `json:"doc_type"`
	AccessionNo string     `json:"accession_no"`
	FilingDate  *time.Time `json:"filing_date,omitempty"`
}

// ChunkNode is the graph mirror of a document chunk.
type ChunkNode struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
}

// Mention links a chunk to an entity it mentions. Mentions are not
// assertions: re-projection overwrites confidence and provenance in place.
type Mention struct {
	ChunkID    string  `json:"chunk_id"`
	EntityID   string  `json:"entity_id"`
	Confidence float64 `json:"confidence"`
}

// AssertionEdge is the projection of one assertion. The assertion id is the
// join key back to the fact store; no other key is ever stored on the edge.
type AssertionEdge struct {
	AssertionID      string                `json:"assertion_id"`
	SubjectEntityID  string                `json:"subject_entity_id"`
	Predicate        types.Predicate       `json:"predicate"`
	ObjectEntityID   string                `json:"object_entity_id,omitempty"`
	LiteralValue     string                `json:"literal_value,omitempty"`
	Confidence       float64               `json:"confidence"`
	SourceDocumentID string                `json:"source_document_id"`
	SourceChunkID    string                `json:"source_chunk_id,omitempty"`
	ValidFrom        time.Time             `json:"valid_from"`
	ValidTo          *time.Time            `json:"valid_to,omitempty"`
	Status           types.AssertionStatus `json:"status"`
}

// Node is one node returned by traversal or path search.
type Node struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

// Edge is one relationship returned by traversal or path search. The dedup
// key across overlapping paths is (Type, AssertionID, FromID, ToID), so
// parallel relationships between the same pair are all kept.
type Edge struct {
	Type        string     `json:"type"`
	AssertionID string     `json:"assertion_id,omitempty"`
	FromID      string     `json:"from_id"`
	ToID        string     `json:"to_id"`
	Confidence  float64    `json:"confidence,omitempty"`
	Status      string     `json:"status,omitempty"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidTo     *time.Time `json:"valid_to,omitempty"`
}

// DedupKey identifies this edge across overlapping returned paths.
func (e *Edge) DedupKey() string {
	return e.Type + "|" + e.AssertionID + "|" + e.FromID + "|" + e.ToID
}

// TraversalResult holds the deduplicated neighborhood of the seed entities.
type TraversalResult struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// PathResult holds one shortest path, or empty slices when no connection
// exists within the hop bound. An empty path is a valid answer, not an
// error.
type PathResult struct {
	Found bool    `json:"found"`
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Stats summarizes the projection for health introspection.
type Stats struct {
	EntityNodes    int64 `json:"entity_nodes"`
	FilingNodes    int64 `json:"filing_nodes"`
	ChunkNodes     int64 `json:"chunk_nodes"`
	AssertionEdges int64 `json:"assertion_edges"`
}

// Projector is the derived-graph contract consumed by the correction engine
// and the ingestion pipeline. Implementations must make every write
// idempotent under retry.
type Projector interface {
	// UpsertEntities merges entity nodes by entity id, overwriting name and
	// type.
	UpsertEntities(ctx context.Context, rows []*EntityNode) error

	// UpsertFilingAndChunks merges a filing node and its chunk nodes and
	// links them via HAS_CHUNK.
	UpsertFilingAndChunks(ctx context.Context, filing *FilingNode, chunks []*ChunkNode) error

	// UpsertMentions merges one MENTIONS edge per (chunk, entity) pair.
	UpsertMentions(ctx context.Context, rows []*Mention) error

	// UpsertAssertionEdges merges one edge per assertion, keyed by
	// (subject, predicate, object, assertionId).
	UpsertAssertionEdges(ctx context.Context, rows []*AssertionEdge) error

	// CloseAssertionEdges stamps status and validTo on any relationship
	// whose assertionId matches, regardless of its type. Zero updates is
	// valid: the projection may simply not have caught up yet.
	CloseAssertionEdges(ctx context.Context, assertionIDs []string, status types.AssertionStatus, validTo time.Time) (int, error)

	// Traverse expands the bounded neighborhood of the seed entities.
	Traverse(ctx context.Context, seedEntityIDs []string, depth int, edgeTypes []string) (*TraversalResult, error)

	// ShortestPath finds one shortest path between two entities within the
	// hop bound, ties broken arbitrarily.
	ShortestPath(ctx context.Context, fromEntityID, toEntityID string, maxHops int, edgeTypes []string) (*PathResult, error)

	// CreateIndices creates uniqueness constraints and lookup indices.
	CreateIndices(ctx context.Context) error

	// GetStats returns projection counts.
	GetStats(ctx context.Context) (*Stats, error)

	// Close releases driver resources.
	Close(ctx context.Context) error
}

// TraversalEdgeTypes is the full allow-list for traversal and path search:
// every predicate in the vocabulary plus the structural MENTIONS edge.
func TraversalEdgeTypes() []string {
	out := make([]string, 0, len(types.PredicateVocabulary)+1)
	for p := range types.PredicateVocabulary {
		out = append(out, string(p))
	}
	out = append(out, "MENTIONS")
	return out
}

// SanitizeEdgeTypes filters a caller-supplied allow-list down to known edge
// types. Unknown types are ignored; an empty or entirely invalid list falls
// back to the full allow-list. The result is safe to interpolate into a
// relationship pattern.
func SanitizeEdgeTypes(requested []string) []string {
	allowed := make(map[string]bool)
	for _, t := range TraversalEdgeTypes() {
		allowed[t] = true
	}

	out := []string{}
	seen := map[string]bool{}
	for _, t := range requested {
		if allowed[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return TraversalEdgeTypes()
	}
	return out
}
