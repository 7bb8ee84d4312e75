package vector

import (
	"context"
	"fmt"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// ChunkClassName is the Weaviate class holding filing chunk vectors.
const ChunkClassName = "FilingChunk"

// WeaviateIndex implements Index over a Weaviate instance. Vectors are
// supplied by the caller; the class runs with no vectorizer module.
type WeaviateIndex struct {
	client *weaviate.Client
}

// NewWeaviateIndex connects to Weaviate at host, e.g. "localhost:8080".
// An empty apiKey connects anonymously.
func NewWeaviateIndex(scheme, host, apiKey string) (*WeaviateIndex, error) {
	cfg := weaviate.Config{
		Scheme: scheme,
		Host:   host,
	}
	if apiKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: apiKey}
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &WeaviateIndex{client: client}, nil
}

func (w *WeaviateIndex) EnsureSchema(ctx context.Context) error {
	_, err := w.client.Schema().ClassGetter().WithClassName(ChunkClassName).Do(ctx)
	if err == nil {
		return nil
	}

	class := &models.Class{
		Class:      ChunkClassName,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"text"}},
			{Name: "documentId", DataType: []string{"text"}},
			{Name: "cik", DataType: []string{"text"}},
			{Name: "docType", DataType: []string{"text"}},
			{Name: "accession", DataType: []string{"text"}},
			{Name: "text", DataType: []string{"text"}},
		},
	}
	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("failed to create %s class: %w", ChunkClassName, err)
	}
	return nil
}

func (w *WeaviateIndex) Upsert(ctx context.Context, points []*Point) error {
	if len(points) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(points))
	for i, p := range points {
		objects[i] = &models.Object{
			Class:  ChunkClassName,
			ID:     strfmt.UUID(p.ID),
			Vector: p.Vector,
			Properties: map[string]interface{}{
				"chunkId":    p.ChunkID,
				"documentId": p.DocumentID,
				"cik":        p.Cik,
				"docType":    p.DocType,
				"accession":  p.Accession,
				"text":       p.Text,
			},
		}
	}

	batcher := w.client.Batch().ObjectsBatcher()
	if _, err := batcher.WithObjects(objects...).Do(ctx); err != nil {
		return fmt.Errorf("failed to batch upsert chunks: %w", err)
	}
	return nil
}

func (w *WeaviateIndex) Search(ctx context.Context, vector []float32, searchFilters Filters, topK int) ([]*Hit, error) {
	if topK <= 0 {
		topK = 10
	}

	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "documentId"},
		{Name: "accession"},
		{Name: "text"},
		{Name: "_additional { id certainty }"},
	}

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	query := w.client.GraphQL().Get().
		WithClassName(ChunkClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(topK)

	if where := buildWhere(searchFilters); where != nil {
		query = query.WithWhere(where)
	}

	result, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("vector search failed: %s", result.Errors[0].Message)
	}

	return parseHits(result), nil
}

func (w *WeaviateIndex) Close() error {
	// The weaviate client holds no long-lived connections.
	return nil
}

func buildWhere(f Filters) *filters.WhereBuilder {
	operands := []*filters.WhereBuilder{}
	if f.Cik != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"cik"}).
			WithOperator(filters.Equal).
			WithValueText(f.Cik))
	}
	if f.DocType != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"docType"}).
			WithOperator(filters.Equal).
			WithValueText(f.DocType))
	}
	if f.Accession != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"accession"}).
			WithOperator(filters.Equal).
			WithValueText(f.Accession))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(operands)
	}
}

func parseHits(result *models.GraphQLResponse) []*Hit {
	hits := []*Hit{}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return hits
	}
	objects, ok := data[ChunkClassName].([]interface{})
	if !ok {
		return hits
	}

	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		hit := &Hit{
			ChunkID:    getString(m, "chunkId"),
			DocumentID: getString(m, "documentId"),
			Accession:  getString(m, "accession"),
			Text:       getString(m, "text"),
		}
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			hit.ID = getString(additional, "id")
			if certainty, ok := additional["certainty"].(float64); ok {
				hit.Score = certainty
			}
		}
		hits = append(hits, hit)
	}
	return hits
}

func getString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}
