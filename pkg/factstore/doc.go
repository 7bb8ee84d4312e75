// Package factstore implements the authoritative relational store for
// entities, documents, chunks, extraction runs, assertions, corrections and
// signals.
//
// The fact store is the system of record: every correction is applied here
// first, inside a single transaction, before the derived graph projection is
// touched. The store enforces the versioning invariants (active assertions
// have no valid_to, terminal ones do) and the uniqueness keys for documents,
// chunks, entities and signals.
package factstore
