package factgraph

import (
	"fmt"
	"log/slog"

	"github.com/edgarlens/factgraph"
	"github.com/edgarlens/factgraph/pkg/config"
	"github.com/edgarlens/factgraph/pkg/extract"
	"github.com/edgarlens/factgraph/pkg/factstore"
	"github.com/edgarlens/factgraph/pkg/graph"
	"github.com/edgarlens/factgraph/pkg/ingest"
	"github.com/edgarlens/factgraph/pkg/logger"
	"github.com/edgarlens/factgraph/pkg/vector"
)

const fetchUserAgent = "factgraph/1.0 (research; contact ops@edgarlens.io)"

// initializeClient wires the stores and model clients from config.
func initializeClient(cfg *config.Config) (*factgraph.Client, *slog.Logger, error) {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	store, err := factstore.NewPostgresStore(cfg.Postgres.DSN, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	projector, err := graph.NewNeo4jProjector(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	index, err := vector.NewWeaviateIndex(cfg.Weaviate.Scheme, cfg.Weaviate.Host, cfg.Weaviate.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to weaviate: %w", err)
	}

	if cfg.OpenAI.APIKey == "" {
		return nil, nil, fmt.Errorf("openai api key is required (set OPENAI_API_KEY)")
	}

	var extractor extract.Extractor = extract.NewOpenAIExtractor(
		cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.Temperature)
	if cfg.CircuitBreaker.Enabled {
		extractor = extract.NewBreakerExtractor(extractor, extract.BreakerConfig{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.IntervalDuration(),
			Timeout:          cfg.CircuitBreaker.TimeoutDuration(),
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		})
	}

	embedder := extract.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.EmbeddingModel)
	fetcher := ingest.NewHTTPFetcher(fetchUserAgent)

	client, err := factgraph.NewClient(store, projector, index, extractor, embedder, fetcher,
		ingest.Options{
			Concurrency:  cfg.Ingest.Concurrency,
			ChunkSize:    cfg.Ingest.ChunkSize,
			ChunkOverlap: cfg.Ingest.ChunkOverlap,
			MaxFailures:  cfg.Ingest.MaxFailures,
			Model:        cfg.OpenAI.Model,
		}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, log, nil
}
