package extract_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgarlens/factgraph/pkg/extract"
	"github.com/edgarlens/factgraph/pkg/types"
)

func TestFlexListShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "plain array",
			raw:  `{"aliases": ["Apple", "AAPL"]}`,
			want: []string{"Apple", "AAPL"},
		},
		{
			name: "array encoded as string",
			raw:  `{"aliases": "[\"Apple\", \"AAPL\"]"}`,
			want: []string{"Apple", "AAPL"},
		},
		{
			name: "single string",
			raw:  `{"aliases": "Apple"}`,
			want: []string{"Apple"},
		},
		{
			name: "unusable shape dropped",
			raw:  `{"aliases": 42}`,
			want: nil,
		},
		{
			name: "absent",
			raw:  `{}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e extract.CandidateEntity
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &e))
			assert.Equal(t, tt.want, []string(e.Aliases))
		})
	}
}

func TestNormalizePredicate(t *testing.T) {
	tests := []struct {
		raw  string
		want types.Predicate
		ok   bool
	}{
		{"HAS_CEO", types.PredicateHasCEO, true},
		{"has_ceo", types.PredicateHasCEO, true},
		{"  competes with ", types.PredicateCompetesWith, true},
		{"supplies-to", types.PredicateSuppliesTo, true},
		{"IS_FRIENDS_WITH", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := extract.NormalizePredicate(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestNormalizeEntityType(t *testing.T) {
	assert.Equal(t, types.EntityCompany, extract.NormalizeEntityType("Company"))
	assert.Equal(t, types.EntityCompany, extract.NormalizeEntityType("corporation"))
	assert.Equal(t, types.EntitySector, extract.NormalizeEntityType("industry"))
	assert.Equal(t, types.EntityInstrument, extract.NormalizeEntityType("stock"))

	// Anything unrecognized falls back to concept.
	assert.Equal(t, types.EntityConcept, extract.NormalizeEntityType("spaceship"))
	assert.Equal(t, types.EntityConcept, extract.NormalizeEntityType(""))
}

func TestNormalizeDropRules(t *testing.T) {
	candidate := &extract.Candidate{
		Entities: []extract.CandidateEntity{
			{Name: "Apple", Type: "company"},
			{Name: "", Type: "company"},     // unnamed, dropped
			{Name: "Apple", Type: "issuer"}, // duplicate name, dropped
			{Name: "Tim Cook", Type: "person"},
		},
		Relations: []extract.CandidateRelation{
			{Subject: "Apple", Predicate: "HAS_CEO", Object: "Tim Cook", Confidence: 0.9},
			{Subject: "Apple", Predicate: "COMPETES_WITH", Object: "Apple"},      // self-referential
			{Subject: "", Predicate: "HAS_CEO", Object: "Tim Cook"},              // no subject
			{Subject: "Apple", Predicate: "HAS_CEO"},                             // no object or literal
			{Subject: "Apple", Predicate: "IS_BESTIES_WITH", Object: "Tim Cook"}, // unknown predicate
		},
	}

	entities, relations := extract.Normalize(candidate, nil)

	require.Len(t, entities, 2)
	assert.Equal(t, "Apple", entities[0].Name)
	assert.Equal(t, "Tim Cook", entities[1].Name)

	require.Len(t, relations, 1)
	assert.Equal(t, "Apple", relations[0].SubjectName)
	assert.Equal(t, types.PredicateHasCEO, relations[0].Predicate)
	assert.Equal(t, "Tim Cook", relations[0].ObjectName)
	assert.InDelta(t, 0.9, relations[0].Confidence, 1e-9)
}

func TestNormalizeConfidenceDefault(t *testing.T) {
	candidate := &extract.Candidate{
		Relations: []extract.CandidateRelation{
			{Subject: "Apple", Predicate: "HAS_TICKER", Literal: "AAPL"},                   // zero
			{Subject: "Apple", Predicate: "OPERATES_IN", Object: "China", Confidence: 1.7}, // out of range
		},
	}

	_, relations := extract.Normalize(candidate, nil)
	require.Len(t, relations, 2)
	assert.InDelta(t, 0.5, relations[0].Confidence, 1e-9)
	assert.InDelta(t, 0.5, relations[1].Confidence, 1e-9)
}

func TestNormalizeLiteralRelation(t *testing.T) {
	candidate := &extract.Candidate{
		Relations: []extract.CandidateRelation{
			{Subject: "Apple", Predicate: "has ticker", Literal: "AAPL", Confidence: 0.8},
		},
	}

	_, relations := extract.Normalize(candidate, nil)
	require.Len(t, relations, 1)
	assert.Empty(t, relations[0].ObjectName)
	assert.Equal(t, "AAPL", relations[0].Literal)
}
