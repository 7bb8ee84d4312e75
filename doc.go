// Package factgraph is an auditable fact store over SEC filings with a
// derived graph projection.
//
// Filings are fetched, chunked, embedded and indexed, and mined for
// subject-predicate-object assertions by a language model behind a strict
// normalization boundary. Assertions are versioned rows in Postgres, the
// single source of truth; Neo4j carries a derived projection for traversal
// and path queries, and Weaviate carries the chunk vectors for hybrid
// search. Corrections never mutate history: they close the old assertion
// and, for supersede and override, write a replacement row linked to it.
//
// The Client type wires the stores and model clients together and exposes
// ingestion, retrieval, graph, correction, conflict and screening
// operations. Each subsystem is also usable on its own through the
// packages under pkg.
package factgraph
