package factgraph

import (
	"context"

	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/retrieval"
	"github.com/edgarlens/factgraph/pkg/types"
)

// Search performs hybrid chunk search with progressive filter broadening:
// the most specific filter set is tried first, and filters are relaxed in
// specificity order until something matches. The result reports which
// level actually matched.
func (c *Client) Search(ctx context.Context, req *retrieval.SearchRequest) (*retrieval.SearchResult, error) {
	return c.retriever.Search(ctx, req)
}

// Timeline runs the same query against each of a company's filings
// separately, returning hits grouped per filing in chronological order.
func (c *Client) Timeline(ctx context.Context, req *retrieval.TimelineRequest) ([]*retrieval.TimelineEntry, error) {
	return c.retriever.Timeline(ctx, req)
}

// SearchEntities matches canonical names and aliases case-insensitively.
func (c *Client) SearchEntities(ctx context.Context, query string, entityTypes []types.EntityType, limit int) ([]*types.Entity, error) {
	return c.retriever.SearchEntities(ctx, query, entityTypes, limit)
}

// Facts returns stored assertions matching the filter, hydrated with
// entity names. An empty filter returns an empty result.
func (c *Client) Facts(ctx context.Context, filter *factstore.AssertionFilter) ([]*retrieval.FactView, error) {
	return c.retriever.Facts(ctx, filter)
}

// Citations hydrates chunk and assertion references into displayable
// citations with document provenance.
func (c *Client) Citations(ctx context.Context, req *retrieval.CitationsRequest) ([]*types.Citation, error) {
	return c.retriever.Citations(ctx, req)
}

// ListDocuments returns ingested documents matching the filter, newest
// first.
func (c *Client) ListDocuments(ctx context.Context, filter *factstore.DocumentFilter) ([]*types.Document, error) {
	return c.retriever.ListDocuments(ctx, filter)
}
