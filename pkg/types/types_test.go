package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgarlens/factgraph/pkg/types"
)

func strptr(s string) *string { return &s }

func validAssertion() *types.Assertion {
	return &types.Assertion{
		ID:               "a1",
		SubjectEntityID:  "e1",
		Predicate:        types.PredicateHasCEO,
		ObjectEntityID:   strptr("e2"),
		Confidence:       0.9,
		SourceDocumentID: "d1",
		Status:           types.StatusActive,
	}
}

func TestAssertionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.Assertion)
		wantErr error
	}{
		{
			name:   "valid with object",
			mutate: func(a *types.Assertion) {},
		},
		{
			name: "valid with literal",
			mutate: func(a *types.Assertion) {
				a.ObjectEntityID = nil
				a.LiteralValue = strptr("AAPL")
			},
		},
		{
			name:    "missing subject",
			mutate:  func(a *types.Assertion) { a.SubjectEntityID = "" },
			wantErr: types.ErrEmptySubject,
		},
		{
			name:    "missing predicate",
			mutate:  func(a *types.Assertion) { a.Predicate = "" },
			wantErr: types.ErrEmptyPredicate,
		},
		{
			name:    "missing source document",
			mutate:  func(a *types.Assertion) { a.SourceDocumentID = "" },
			wantErr: types.ErrEmptySource,
		},
		{
			name: "both object and literal",
			mutate: func(a *types.Assertion) {
				a.LiteralValue = strptr("AAPL")
			},
			wantErr: types.ErrObjectAndLiteral,
		},
		{
			name: "neither object nor literal",
			mutate: func(a *types.Assertion) {
				a.ObjectEntityID = nil
			},
			wantErr: types.ErrObjectAndLiteral,
		},
		{
			name: "empty-string object counts as absent",
			mutate: func(a *types.Assertion) {
				a.ObjectEntityID = strptr("")
			},
			wantErr: types.ErrObjectAndLiteral,
		},
		{
			name:    "confidence above range",
			mutate:  func(a *types.Assertion) { a.Confidence = 1.5 },
			wantErr: types.ErrConfidenceRange,
		},
		{
			name:    "confidence below range",
			mutate:  func(a *types.Assertion) { a.Confidence = -0.1 },
			wantErr: types.ErrConfidenceRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAssertion()
			tt.mutate(a)
			err := a.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAssertionValueKey(t *testing.T) {
	withObject := validAssertion()
	assert.Equal(t, "entity:e2", withObject.ValueKey())

	withLiteral := validAssertion()
	withLiteral.ObjectEntityID = nil
	withLiteral.LiteralValue = strptr("AAPL")
	assert.Equal(t, "literal:AAPL", withLiteral.ValueKey())

	valueless := validAssertion()
	valueless.ObjectEntityID = nil
	assert.Equal(t, "null", valueless.ValueKey())

	// Empty literal is still a literal value, distinct from NULL.
	emptyLiteral := validAssertion()
	emptyLiteral.ObjectEntityID = nil
	emptyLiteral.LiteralValue = strptr("")
	assert.Equal(t, "literal:", emptyLiteral.ValueKey())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, types.StatusActive.Terminal())
	assert.True(t, types.StatusRetracted.Terminal())
	assert.True(t, types.StatusSuperseded.Terminal())
}

func TestDocumentValidate(t *testing.T) {
	doc := &types.Document{Source: "sec", DocType: "10-K", AccessionNo: "0000320193-24-000123"}
	assert.NoError(t, doc.Validate())

	missing := &types.Document{Source: "sec", DocType: "10-K"}
	assert.Error(t, missing.Validate())
}

func TestEntityValidate(t *testing.T) {
	e := &types.Entity{Type: types.EntityCompany, CanonicalName: "Apple Inc."}
	assert.NoError(t, e.Validate())

	unnamed := &types.Entity{Type: types.EntityCompany}
	assert.Error(t, unnamed.Validate())
}
