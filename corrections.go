package factgraph

import (
	"context"

	"github.com/edgarlens/factgraph/pkg/conflict"
	"github.com/edgarlens/factgraph/pkg/correction"
	"github.com/edgarlens/factgraph/pkg/signals"
	"github.com/edgarlens/factgraph/pkg/types"
)

// Conflicts reports single-valued predicates that currently carry more
// than one valid value for the same subject.
func (c *Client) Conflicts(ctx context.Context, predicates []types.Predicate) ([]conflict.Group, error) {
	return c.conflicts.Detect(ctx, predicates)
}

// Retract closes an active assertion without replacement. Retracting a
// non-active assertion is a conflict, not a no-op.
func (c *Client) Retract(ctx context.Context, assertionID, reason, createdBy string) (*correction.Result, error) {
	return c.corrections.Retract(ctx, assertionID, reason, createdBy)
}

// Supersede closes an active assertion and records a replacement carrying
// the newer evidence. The old row stays queryable forever.
func (c *Client) Supersede(ctx context.Context, assertionID string, draft *types.AssertionDraft, reason, createdBy string) (*correction.Result, error) {
	return c.corrections.Supersede(ctx, assertionID, draft, reason, createdBy)
}

// Override closes an active assertion and records a manually supplied
// replacement.
func (c *Client) Override(ctx context.Context, assertionID string, draft *types.AssertionDraft, reason, createdBy string) (*correction.Result, error) {
	return c.corrections.Override(ctx, assertionID, draft, reason, createdBy)
}

// Reproject re-applies the graph edges of the given assertions from their
// authoritative rows, repairing a stale projection. Idempotent.
func (c *Client) Reproject(ctx context.Context, assertionIDs []string) (int, error) {
	return c.corrections.Reproject(ctx, assertionIDs)
}

// Screen returns subjects whose signal series clear both screening
// thresholds, ordered by flow sum descending.
func (c *Client) Screen(ctx context.Context, req *signals.Request) ([]signals.Candidate, error) {
	return c.screener.Screen(ctx, req)
}
