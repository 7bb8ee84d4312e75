// Package conflict scans currently valid assertions for predicates declared
// single-valued and reports subjects carrying more than one distinct value.
// Detection is a read-only diagnostic: resolution is always a manual
// correction.
package conflict

import (
	"context"
	"sort"

	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/types"
)

// Value is one distinct conflicting value with the assertions backing it.
type Value struct {
	ObjectEntityID string   `json:"object_entity_id,omitempty"`
	LiteralValue   string   `json:"literal_value,omitempty"`
	AssertionIDs   []string `json:"assertion_ids"`
}

// Group is one conflicted (subject, predicate) pair with all contributing
// values.
type Group struct {
	SubjectEntityID string          `json:"subject_entity_id"`
	Predicate       types.Predicate `json:"predicate"`
	Values          []Value         `json:"values"`
}

// Detector finds single-valued predicate violations.
type Detector struct {
	store      factstore.Store
	predicates []types.Predicate
}

// NewDetector creates a detector over the given single-valued predicate
// set. A nil set uses the default vocabulary subset.
func NewDetector(store factstore.Store, predicates []types.Predicate) *Detector {
	if len(predicates) == 0 {
		predicates = types.SingleValuedPredicates
	}
	return &Detector{store: store, predicates: predicates}
}

// Detect loads currently valid active assertions for the configured
// predicates (narrowed further when the caller passes a subset) and groups
// the violations.
func (d *Detector) Detect(ctx context.Context, predicates []types.Predicate) ([]Group, error) {
	scope := d.predicates
	if len(predicates) > 0 {
		scope = intersect(d.predicates, predicates)
	}
	if len(scope) == 0 {
		return []Group{}, nil
	}

	assertions, err := d.store.ActiveAssertionsByPredicates(ctx, scope)
	if err != nil {
		return nil, err
	}
	return GroupConflicts(assertions), nil
}

// GroupConflicts groups assertions by (subject, predicate) and keeps only
// groups whose distinct value count exceeds one. An absent object and
// literal collapses to a single NULL sentinel value, so two valueless
// assertions do not conflict with each other.
func GroupConflicts(assertions []*types.Assertion) []Group {
	type groupKey struct {
		subject   string
		predicate types.Predicate
	}

	byGroup := map[groupKey]map[string][]*types.Assertion{}
	for _, a := range assertions {
		key := groupKey{subject: a.SubjectEntityID, predicate: a.Predicate}
		if byGroup[key] == nil {
			byGroup[key] = map[string][]*types.Assertion{}
		}
		vk := a.ValueKey()
		byGroup[key][vk] = append(byGroup[key][vk], a)
	}

	groups := []Group{}
	for key, values := range byGroup {
		if len(values) <= 1 {
			continue
		}

		group := Group{SubjectEntityID: key.subject, Predicate: key.predicate}
		for _, backing := range values {
			value := Value{}
			first := backing[0]
			if first.ObjectEntityID != nil {
				value.ObjectEntityID = *first.ObjectEntityID
			} else if first.LiteralValue != nil {
				value.LiteralValue = *first.LiteralValue
			}
			for _, a := range backing {
				value.AssertionIDs = append(value.AssertionIDs, a.ID)
			}
			sort.Strings(value.AssertionIDs)
			group.Values = append(group.Values, value)
		}
		sort.Slice(group.Values, func(i, j int) bool {
			return group.Values[i].ObjectEntityID+group.Values[i].LiteralValue <
				group.Values[j].ObjectEntityID+group.Values[j].LiteralValue
		})
		groups = append(groups, group)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].SubjectEntityID != groups[j].SubjectEntityID {
			return groups[i].SubjectEntityID < groups[j].SubjectEntityID
		}
		return groups[i].Predicate < groups[j].Predicate
	})
	return groups
}

func intersect(a, b []types.Predicate) []types.Predicate {
	in := map[types.Predicate]bool{}
	for _, p := range a {
		in[p] = true
	}
	out := []types.Predicate{}
	for _, p := range b {
		if in[p] {
			out = append(out, p)
		}
	}
	return out
}
