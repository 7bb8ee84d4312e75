// Package graph maintains the derived graph projection of the fact store:
// Entity, Filing and Chunk nodes, HAS_CHUNK and MENTIONS edges, and one
// relationship type per assertion predicate.
//
// The projection is not authoritative. Every write is an idempotent MERGE
// keyed by stable identifiers, so re-running extraction or corrections is
// always safe and a reconciliation pass can repeat failed projections
// without side effects.
package graph
