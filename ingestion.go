package factgraph

import (
	"context"

	"github.com/edgarlens/factgraph/pkg/ingest"
	"github.com/edgarlens/factgraph/pkg/types"
)

// Ingest runs the bulk pipeline over a batch of filings and blocks until
// every item finished. Items of one subject run sequentially; independent
// subjects run on the worker pool. One item's failure never aborts the
// batch.
func (c *Client) Ingest(ctx context.Context, items []ingest.Item) (*ingest.Result, error) {
	return c.pipeline.Run(ctx, items)
}

// IngestStream runs the bulk pipeline while emitting one progress event
// per sub-step. The result channel yields once, after the event channel
// closes.
func (c *Client) IngestStream(ctx context.Context, items []ingest.Item) (<-chan *ingest.Result, <-chan ingest.Event) {
	return c.pipeline.RunStream(ctx, items)
}

// UpsertSignal records one time-series observation, resolving the subject
// entity by external id when possible.
func (c *Client) UpsertSignal(ctx context.Context, s *types.Signal) (*types.Signal, error) {
	return c.store.UpsertSignal(ctx, s)
}
