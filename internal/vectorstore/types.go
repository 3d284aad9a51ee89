// Package vectorstore persists chunk embeddings keyed by chunk id and
// answers cosine-nearest-neighbor queries, behind one interface with two
// interchangeable backends (sqlite-vec, chromem-go).
package vectorstore

import "context"

// MaxUpsertBatch bounds how many entries one Upsert call may carry, per
// spec.md §4.4's "atomic per batch of ≤1,000 entries".
const MaxUpsertBatch = 1000

// Vector is one chunk's embedding plus the metadata needed to reconstruct a
// retrieval result without a second lookup.
type Vector struct {
	ID        string
	Embedding []float32
	FilePath  string
	Content   string
	Metadata  map[string]string
}

// Filter narrows a Query to one file's chunks.
type Filter struct {
	FilePath string
}

// Result is one nearest-neighbor hit. Distance is cosine distance in
// [0, 2] — lower is better, per spec.md §4.4.
type Result struct {
	ID       string
	Distance float64
	FilePath string
	Content  string
	Metadata map[string]string
}

// Store is the interface both backends satisfy.
type Store interface {
	// Upsert inserts or replaces entries by id. Must be atomic: either every
	// entry in batch lands or none do. len(batch) must not exceed
	// MaxUpsertBatch.
	Upsert(ctx context.Context, batch []Vector) error
	// DeleteWhere removes every chunk belonging to filePath.
	DeleteWhere(ctx context.Context, filePath string) error
	// Query returns the k nearest neighbors to embedding, optionally
	// restricted to one file.
	Query(ctx context.Context, embedding []float32, k int, filter *Filter) ([]Result, error)
	Close() error
}
