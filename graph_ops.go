package factgraph

import (
	"context"

	"github.com/edgarlens/factgraph/pkg/graph"
)

// Traverse walks the projection outward from the seed entities up to the
// given depth, restricted to the given edge types. Depth is clamped to
// [1, 3]; unknown edge types are dropped and an empty list means all.
func (c *Client) Traverse(ctx context.Context, seedEntityIDs []string, depth int, edgeTypes []string) (*graph.TraversalResult, error) {
	return c.projector.Traverse(ctx, seedEntityIDs, depth, edgeTypes)
}

// Explain finds one shortest path between two entities within the hop
// bound, clamped to [1, 6]. No path is a valid answer, not an error.
func (c *Client) Explain(ctx context.Context, fromEntityID, toEntityID string, maxHops int, edgeTypes []string) (*graph.PathResult, error) {
	return c.projector.ShortestPath(ctx, fromEntityID, toEntityID, maxHops, edgeTypes)
}
