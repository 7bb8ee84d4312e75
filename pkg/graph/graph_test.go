package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgarlens/factgraph/pkg/graph"
	"github.com/edgarlens/factgraph/pkg/types"
)

func TestTraversalEdgeTypes(t *testing.T) {
	edgeTypes := graph.TraversalEdgeTypes()

	assert.Len(t, edgeTypes, len(types.PredicateVocabulary)+1)
	assert.Contains(t, edgeTypes, "MENTIONS")
	assert.Contains(t, edgeTypes, string(types.PredicateHasCEO))
	assert.Contains(t, edgeTypes, string(types.PredicateCompetesWith))
}

func TestSanitizeEdgeTypes(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{
			name:      "known types pass through in order",
			requested: []string{"HAS_CEO", "COMPETES_WITH"},
			want:      []string{"HAS_CEO", "COMPETES_WITH"},
		},
		{
			name:      "unknown types dropped",
			requested: []string{"HAS_CEO", "DROP TABLE", "SUPPLIES_TO"},
			want:      []string{"HAS_CEO", "SUPPLIES_TO"},
		},
		{
			name:      "duplicates collapse",
			requested: []string{"MENTIONS", "MENTIONS"},
			want:      []string{"MENTIONS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, graph.SanitizeEdgeTypes(tt.requested))
		})
	}
}

func TestSanitizeEdgeTypesFallsBackToFullList(t *testing.T) {
	full := graph.TraversalEdgeTypes()
	assert.ElementsMatch(t, full, graph.SanitizeEdgeTypes(nil))
	assert.ElementsMatch(t, full, graph.SanitizeEdgeTypes([]string{"NOT_A_PREDICATE"}))
}

func TestEdgeDedupKey(t *testing.T) {
	base := &graph.Edge{Type: "HAS_CEO", AssertionID: "a-1", FromID: "e-1", ToID: "e-2"}
	same := &graph.Edge{Type: "HAS_CEO", AssertionID: "a-1", FromID: "e-1", ToID: "e-2", Confidence: 0.9}
	assert.Equal(t, base.DedupKey(), same.DedupKey())

	// Parallel relationships between the same pair stay distinct.
	parallel := &graph.Edge{Type: "HAS_CEO", AssertionID: "a-2", FromID: "e-1", ToID: "e-2"}
	assert.NotEqual(t, base.DedupKey(), parallel.DedupKey())

	reversed := &graph.Edge{Type: "HAS_CEO", AssertionID: "a-1", FromID: "e-2", ToID: "e-1"}
	assert.NotEqual(t, base.DedupKey(), reversed.DedupKey())
}
