// Package types defines the core domain model for factgraph: entities,
// documents, chunks, versioned assertions, corrections, and signals, along
// with the predicate vocabulary and the error taxonomy shared by every
// component.
package types
