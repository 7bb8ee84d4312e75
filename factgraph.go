package factgraph

import (
	"context"
	"log/slog"

	"github.com/edgarlens/factgraph/pkg/conflict"
	"github.com/edgarlens/factgraph/pkg/correction"
	"github.com/edgarlens/factgraph/pkg/extract"
	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/graph"
	"github.com/edgarlens/factgraph/pkg/ingest"
	"github.com/edgarlens/factgraph/pkg/retrieval"
	"github.com/edgarlens/factgraph/pkg/signals"
	"github.com/edgarlens/factgraph/pkg/types"
	"github.com/edgarlens/factgraph/pkg/vector"
)

// FactGraph is the main interface for building and querying the fact store
// and its graph projection.
type FactGraph interface {
	// Ingest runs the bulk pipeline over a batch of filings and blocks
	// until every item finished.
	Ingest(ctx context.Context, items []ingest.Item) (*ingest.Result, error)

	// IngestStream runs the bulk pipeline while emitting progress events.
	IngestStream(ctx context.Context, items []ingest.Item) (<-chan *ingest.Result, <-chan ingest.Event)

	// Search performs hybrid chunk search with progressive filter
	// broadening.
	Search(ctx context.Context, req *retrieval.SearchRequest) (*retrieval.SearchResult, error)

	// Timeline runs one query against each of a company's filings.
	Timeline(ctx context.Context, req *retrieval.TimelineRequest) ([]*retrieval.TimelineEntry, error)

	// SearchEntities matches entity names and aliases.
	SearchEntities(ctx context.Context, query string, entityTypes []types.EntityType, limit int) ([]*types.Entity, error)

	// Facts returns stored assertions matching the filter.
	Facts(ctx context.Context, filter *factstore.AssertionFilter) ([]*retrieval.FactView, error)

	// Citations hydrates chunk and assertion references into citations.
	Citations(ctx context.Context, req *retrieval.CitationsRequest) ([]*types.Citation, error)

	// ListDocuments returns ingested documents, newest first.
	ListDocuments(ctx context.Context, filter *factstore.DocumentFilter) ([]*types.Document, error)

	// Traverse walks the projection outward from seed entities.
	Traverse(ctx context.Context, seedEntityIDs []string, depth int, edgeTypes []string) (*graph.TraversalResult, error)

	// Explain finds one shortest path between two entities.
	Explain(ctx context.Context, fromEntityID, toEntityID string, maxHops int, edgeTypes []string) (*graph.PathResult, error)

	// Conflicts reports single-valued predicates with more than one
	// currently valid value.
	Conflicts(ctx context.Context, predicates []types.Predicate) ([]conflict.Group, error)

	// Retract closes an active assertion without replacement.
	Retract(ctx context.Context, assertionID, reason, createdBy string) (*correction.Result, error)

	// Supersede closes an active assertion and records a replacement fact.
	Supersede(ctx context.Context, assertionID string, draft *types.AssertionDraft, reason, createdBy string) (*correction.Result, error)

	// Override closes an active assertion and records a manual replacement.
	Override(ctx context.Context, assertionID string, draft *types.AssertionDraft, reason, createdBy string) (*correction.Result, error)

	// Reproject re-applies assertion edges to repair a stale projection.
	Reproject(ctx context.Context, assertionIDs []string) (int, error)

	// UpsertSignal records one time-series observation.
	UpsertSignal(ctx context.Context, s *types.Signal) (*types.Signal, error)

	// Screen returns subjects whose signal deltas clear both thresholds.
	Screen(ctx context.Context, req *signals.Request) ([]signals.Candidate, error)

	// Stats returns row and projection counts.
	Stats(ctx context.Context) (*Stats, error)

	// Initialize ensures schemas, indices and the vector class exist.
	Initialize(ctx context.Context) error

	// Close closes all connections and cleans up resources.
	Close(ctx context.Context) error
}

// Stats combines authoritative row counts with projection counts, making
// drift between the two visible.
type Stats struct {
	Store *factstore.Stats `json:"store"`
	Graph *graph.Stats     `json:"graph"`
}

// Client is the main implementation of the FactGraph interface.
type Client struct {
	store     factstore.Store
	projector graph.Projector
	index     vector.Index
	extractor extract.Extractor
	embedder  extract.Embedder

	pipeline    *ingest.Pipeline
	retriever   *retrieval.Service
	corrections *correction.Engine
	conflicts   *conflict.Detector
	screener    *signals.Screener

	logger *slog.Logger
}

// NewClient wires the stores and model clients into a client. A nil logger
// falls back to slog.Default().
func NewClient(store factstore.Store, projector graph.Projector, index vector.Index,
	extractor extract.Extractor, embedder extract.Embedder, fetcher ingest.Fetcher,
	ingestOptions ingest.Options, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		store:       store,
		projector:   projector,
		index:       index,
		extractor:   extractor,
		embedder:    embedder,
		pipeline:    ingest.NewPipeline(store, projector, index, extractor, embedder, fetcher, ingestOptions, logger),
		retriever:   retrieval.NewService(store, index, embedder, logger),
		corrections: correction.NewEngine(store, projector, logger),
		conflicts:   conflict.NewDetector(store, nil),
		screener:    signals.NewScreener(store),
		logger:      logger,
	}, nil
}

// Store returns the underlying fact store.
func (c *Client) Store() factstore.Store {
	return c.store
}

// Projector returns the underlying graph projector.
func (c *Client) Projector() graph.Projector {
	return c.projector
}

// Initialize ensures the relational schema, the graph constraints and the
// vector class all exist. Safe to call repeatedly.
func (c *Client) Initialize(ctx context.Context) error {
	if err := c.store.Initialize(ctx); err != nil {
		return err
	}
	if err := c.projector.CreateIndices(ctx); err != nil {
		return err
	}
	return c.index.EnsureSchema(ctx)
}

// Stats returns row counts from the store and the projection.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	storeStats, err := c.store.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	graphStats, err := c.projector.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Store: storeStats, Graph: graphStats}, nil
}

// Close closes all connections and cleans up resources.
func (c *Client) Close(ctx context.Context) error {
	var firstErr error
	if err := c.index.Close(); err != nil {
		firstErr = err
	}
	if err := c.projector.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := c.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
