package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/edgarlens/factgraph/pkg/types"
)

// Neo4jProjector implements Projector against a Neo4j database.
type Neo4jProjector struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jProjector creates a projector connected to the given Neo4j
// instance.
func NewNeo4jProjector(uri, username, password, database string) (*Neo4jProjector, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jProjector{
		client:   driver,
		database: database,
	}, nil
}

func (n *Neo4jProjector) Close(ctx context.Context) error {
	return n.client.Close(ctx)
}

func (n *Neo4jProjector) session(ctx context.Context) neo4j.SessionWithContext {
	return n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
}

func (n *Neo4jProjector) UpsertEntities(ctx context.Context, rows []*EntityNode) error {
	if len(rows) == 0 {
		return nil
	}

	params := make([]map[string]any, len(rows))
	for i, row := range rows {
		params[i] = map[string]any{
			"entityId": row.EntityID,
			"name":     row.Name,
			"type":     row.Type,
		}
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			UNWIND $rows AS row
			MERGE (n:Entity {entityId: row.entityId})
			SET n.name = row.name, n.type = row.type
		`
		_, err := tx.Run(ctx, query, map[string]any{"rows": params})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert entity nodes: %w", err)
	}
	return nil
}

func (n *Neo4jProjector) UpsertFilingAndChunks(ctx context.Context, filing *FilingNode, chunks []*ChunkNode) error {
	if filing == nil {
		return fmt.Errorf("cannot upsert nil filing")
	}

	chunkParams := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		chunkParams[i] = map[string]any{
			"chunkId":    c.ChunkID,
			"chunkIndex": c.ChunkIndex,
		}
	}

	filingDate := ""
	if filing.FilingDate != nil {
		filingDate = filing.FilingDate.Format("2006-01-02")
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (f:Filing {documentId: $documentId})
			SET f.source = $source, f.docType = $docType,
				f.accessionNo = $accessionNo, f.filingDate = $filingDate
			WITH f
			UNWIND $chunks AS chunk
			MERGE (c:Chunk {chunkId: chunk.chunkId})
			SET c.chunkIndex = chunk.chunkIndex, c.documentId = $documentId
			MERGE (f)-[:HAS_CHUNK]->(c)
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"documentId":  filing.DocumentID,
			"source":      filing.Source,
			"docType":     filing.DocType,
			"accessionNo": filing.AccessionNo,
			"filingDate":  filingDate,
			"chunks":      chunkParams,
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert filing %s: %w", filing.DocumentID, err)
	}
	return nil
}

func (n *Neo4jProjector) UpsertMentions(ctx context.Context, rows []*Mention) error {
	if len(rows) == 0 {
		return nil
	}

	params := make([]map[string]any, len(rows))
	for i, row := range rows {
		params[i] = map[string]any{
			"chunkId":    row.ChunkID,
			"entityId":   row.EntityID,
			"confidence": row.Confidence,
		}
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Mentions are not versioned: one edge per (chunk, entity) pair,
		// provenance overwritten on re-projection.
		query := `
			UNWIND $rows AS row
			MATCH (c:Chunk {chunkId: row.chunkId})
			MATCH (e:Entity {entityId: row.entityId})
			MERGE (c)-[m:MENTIONS]->(e)
			SET m.confidence = row.confidence
		`
		_, err := tx.Run(ctx, query, map[string]any{"rows": params})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert mentions: %w", err)
	}
	return nil
}

func (n *Neo4jProjector) UpsertAssertionEdges(ctx context.Context, rows []*AssertionEdge) error {
	if len(rows) == 0 {
		return nil
	}

	// Relationship types cannot be parameterized, so rows are grouped by
	// predicate and the type is interpolated only after a vocabulary check.
	byPredicate := make(map[types.Predicate][]*AssertionEdge)
	for _, row := range rows {
		if !types.PredicateVocabulary[row.Predicate] {
			return types.NewValidationError("predicate", fmt.Sprintf("unknown predicate %q", row.Predicate))
		}
		byPredicate[row.Predicate] = append(byPredicate[row.Predicate], row)
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	for predicate, group := range byPredicate {
		entityRows := []map[string]any{}
		literalRows := []map[string]any{}
		for _, row := range group {
			params := map[string]any{
				"assertionId":      row.AssertionID,
				"subjectId":        row.SubjectEntityID,
				"confidence":       row.Confidence,
				"sourceDocumentId": row.SourceDocumentID,
				"sourceChunkId":    row.SourceChunkID,
				"validFrom":        row.ValidFrom.Format(time.RFC3339),
				"validTo":          formatValidTo(row.ValidTo),
				"status":           string(row.Status),
			}
			if row.ObjectEntityID != "" {
				params["objectId"] = row.ObjectEntityID
				entityRows = append(entityRows, params)
			} else {
				params["literal"] = row.LiteralValue
				literalRows = append(literalRows, params)
			}
		}

		if len(entityRows) > 0 {
			query := fmt.Sprintf(`
				UNWIND $rows AS row
				MATCH (s:Entity {entityId: row.subjectId})
				MATCH (o:Entity {entityId: row.objectId})
				MERGE (s)-[r:%s {assertionId: row.assertionId}]->(o)
				SET r.confidence = row.confidence,
					r.sourceDocumentId = row.sourceDocumentId,
					r.sourceChunkId = row.sourceChunkId,
					r.validFrom = row.validFrom,
					r.validTo = row.validTo,
					r.status = row.status
			`, predicate)
			if err := n.writeRows(ctx, session, query, entityRows); err != nil {
				return fmt.Errorf("failed to upsert %s edges: %w", predicate, err)
			}
		}

		if len(literalRows) > 0 {
			query := fmt.Sprintf(`
				UNWIND $rows AS row
				MATCH (s:Entity {entityId: row.subjectId})
				MERGE (v:Literal {value: row.literal})
				MERGE (s)-[r:%s {assertionId: row.assertionId}]->(v)
				SET r.confidence = row.confidence,
					r.sourceDocumentId = row.sourceDocumentId,
					r.sourceChunkId = row.sourceChunkId,
					r.validFrom = row.validFrom,
					r.validTo = row.validTo,
					r.status = row.status
			`, predicate)
			if err := n.writeRows(ctx, session, query, literalRows); err != nil {
				return fmt.Errorf("failed to upsert %s literal edges: %w", predicate, err)
			}
		}
	}

	return nil
}

func (n *Neo4jProjector) writeRows(ctx context.Context, session neo4j.SessionWithContext, query string, rows []map[string]any) error {
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{"rows": rows})
		return nil, err
	})
	return err
}

func (n *Neo4jProjector) CloseAssertionEdges(ctx context.Context, assertionIDs []string, status types.AssertionStatus, validTo time.Time) (int, error) {
	if len(assertionIDs) == 0 {
		return 0, nil
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// The predicate type of each edge is not known structurally, so
		// match any relationship carrying one of the assertion ids.
		query := `
			MATCH ()-[r]->()
			WHERE r.assertionId IN $assertionIds
			SET r.status = $status, r.validTo = $validTo
			RETURN count(r) AS updated
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"assertionIds": assertionIDs,
			"status":       string(status),
			"validTo":      validTo.Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		updated, _ := record.Get("updated")
		return updated, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to close assertion edges: %w", err)
	}

	return int(asInt64(result)), nil
}

func (n *Neo4jProjector) Traverse(ctx context.Context, seedEntityIDs []string, depth int, edgeTypes []string) (*TraversalResult, error) {
	if len(seedEntityIDs) == 0 {
		return &TraversalResult{Nodes: []*Node{}, Edges: []*Edge{}}, nil
	}
	if depth < 1 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}

	typePattern := strings.Join(SanitizeEdgeTypes(edgeTypes), "|")

	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			UNWIND $seeds AS seed
			MATCH p = (s:Entity {entityId: seed})-[:%s*1..%d]-(m)
			UNWIND relationships(p) AS rel
			WITH DISTINCT rel
			RETURN type(rel) AS type,
				coalesce(rel.assertionId, '') AS assertion_id,
				coalesce(rel.confidence, 0.0) AS confidence,
				coalesce(rel.status, '') AS status,
				coalesce(rel.validFrom, '') AS valid_from,
				coalesce(rel.validTo, '') AS valid_to,
				coalesce(startNode(rel).entityId, startNode(rel).chunkId, '') AS from_id,
				coalesce(startNode(rel).name, '') AS from_name,
				coalesce(startNode(rel).type, head(labels(startNode(rel)))) AS from_type,
				coalesce(endNode(rel).entityId, endNode(rel).chunkId, '') AS to_id,
				coalesce(endNode(rel).name, '') AS to_name,
				coalesce(endNode(rel).type, head(labels(endNode(rel)))) AS to_type
		`, typePattern, depth)
		res, err := tx.Run(ctx, query, map[string]any{"seeds": seedEntityIDs})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to traverse graph: %w", err)
	}

	traversal := &TraversalResult{Nodes: []*Node{}, Edges: []*Edge{}}
	seenEdges := map[string]bool{}
	seenNodes := map[string]bool{}

	addNode := func(id, name, nodeType string) {
		if id == "" || seenNodes[id] {
			return
		}
		seenNodes[id] = true
		traversal.Nodes = append(traversal.Nodes, &Node{EntityID: id, Name: name, Type: nodeType})
	}

	for _, record := range collectRecords(result) {
		edge := &Edge{
			Type:        recordString(record, "type"),
			AssertionID: recordString(record, "assertion_id"),
			FromID:      recordString(record, "from_id"),
			ToID:        recordString(record, "to_id"),
			Confidence:  recordFloat(record, "confidence"),
			Status:      recordString(record, "status"),
			ValidFrom:   parseTimePtr(recordString(record, "valid_from")),
			ValidTo:     parseTimePtr(recordString(record, "valid_to")),
		}
		if seenEdges[edge.DedupKey()] {
			continue
		}
		seenEdges[edge.DedupKey()] = true
		traversal.Edges = append(traversal.Edges, edge)

		addNode(edge.FromID, recordString(record, "from_name"), recordString(record, "from_type"))
		addNode(edge.ToID, recordString(record, "to_name"), recordString(record, "to_type"))
	}

	return traversal, nil
}

func (n *Neo4jProjector) ShortestPath(ctx context.Context, fromEntityID, toEntityID string, maxHops int, edgeTypes []string) (*PathResult, error) {
	if maxHops < 1 {
		maxHops = 1
	}
	if maxHops > 6 {
		maxHops = 6
	}

	typePattern := strings.Join(SanitizeEdgeTypes(edgeTypes), "|")

	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			MATCH (a:Entity {entityId: $fromId}), (b:Entity {entityId: $toId}),
				p = shortestPath((a)-[:%s*..%d]-(b))
			RETURN
				[x IN nodes(p) | {
					id: coalesce(x.entityId, x.chunkId, ''),
					name: coalesce(x.name, ''),
					type: coalesce(x.type, head(labels(x)))
				}] AS path_nodes,
				[r IN relationships(p) | {
					type: type(r),
					assertionId: coalesce(r.assertionId, ''),
					fromId: coalesce(startNode(r).entityId, startNode(r).chunkId, ''),
					toId: coalesce(endNode(r).entityId, endNode(r).chunkId, ''),
					confidence: coalesce(r.confidence, 0.0),
					status: coalesce(r.status, ''),
					validFrom: coalesce(r.validFrom, ''),
					validTo: coalesce(r.validTo, '')
				}] AS path_edges
			LIMIT 1
		`, typePattern, maxHops)
		res, err := tx.Run(ctx, query, map[string]any{
			"fromId": fromEntityID,
			"toId":   toEntityID,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find shortest path: %w", err)
	}

	records := collectRecords(result)
	if len(records) == 0 {
		// No explainable connection within the hop bound.
		return &PathResult{Found: false, Nodes: []*Node{}, Edges: []*Edge{}}, nil
	}

	record := records[0]
	path := &PathResult{Found: true, Nodes: []*Node{}, Edges: []*Edge{}}

	for _, raw := range recordList(record, "path_nodes") {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		path.Nodes = append(path.Nodes, &Node{
			EntityID: asString(m["id"]),
			Name:     asString(m["name"]),
			Type:     asString(m["type"]),
		})
	}
	for _, raw := range recordList(record, "path_edges") {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		path.Edges = append(path.Edges, &Edge{
			Type:        asString(m["type"]),
			AssertionID: asString(m["assertionId"]),
			FromID:      asString(m["fromId"]),
			ToID:        asString(m["toId"]),
			Confidence:  asFloat(m["confidence"]),
			Status:      asString(m["status"]),
			ValidFrom:   parseTimePtr(asString(m["validFrom"])),
			ValidTo:     parseTimePtr(asString(m["validTo"])),
		})
	}

	return path, nil
}

func (n *Neo4jProjector) CreateIndices(ctx context.Context) error {
	session := n.session(ctx)
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (n:Entity) REQUIRE n.entityId IS UNIQUE",
		"CREATE CONSTRAINT filing_id IF NOT EXISTS FOR (n:Filing) REQUIRE n.documentId IS UNIQUE",
		"CREATE CONSTRAINT chunk_id IF NOT EXISTS FOR (n:Chunk) REQUIRE n.chunkId IS UNIQUE",
		"CREATE INDEX entity_name IF NOT EXISTS FOR (n:Entity) ON (n.name)",
	}

	for _, constraint := range constraints {
		c := constraint
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, c, nil)
			return nil, err
		})
		if err != nil {
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}

func (n *Neo4jProjector) GetStats(ctx context.Context) (*Stats, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			OPTIONAL MATCH (e:Entity)
			WITH count(e) AS entities
			OPTIONAL MATCH (f:Filing)
			WITH entities, count(f) AS filings
			OPTIONAL MATCH (c:Chunk)
			WITH entities, filings, count(c) AS chunks
			OPTIONAL MATCH ()-[r]->()
			WHERE r.assertionId IS NOT NULL
			RETURN entities, filings, chunks, count(r) AS assertion_edges
		`
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		return res.Single(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load graph stats: %w", err)
	}

	records := collectRecords(result)
	if len(records) == 0 {
		return &Stats{}, nil
	}
	record := records[0]
	return &Stats{
		EntityNodes:    recordInt(record, "entities"),
		FilingNodes:    recordInt(record, "filings"),
		ChunkNodes:     recordInt(record, "chunks"),
		AssertionEdges: recordInt(record, "assertion_edges"),
	}, nil
}

func formatValidTo(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
