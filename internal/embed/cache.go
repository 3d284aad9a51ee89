package embed

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/maypok86/otter"
)

// QueryCacheTTL is how long a query embedding is reused before recomputation,
// per spec.md §4.3.
const QueryCacheTTL = 24 * time.Hour

// QueryCacheCapacity bounds the number of distinct cached query embeddings.
const QueryCacheCapacity = 10_000

// QueryCache short-circuits repeated query embeddings, keyed by
// (embedding_model_id, sha256(query)), grounded on the weight-based
// otter cache the teacher uses for file content in
// internal/graph/searcher.go, here sized by entry count with a TTL instead
// of a byte weight since the cached values are small fixed-size vectors.
type QueryCache struct {
	modelID string
	cache   otter.Cache[string, []float32]
}

// NewQueryCache builds a query-embedding cache for the given embedding model.
func NewQueryCache(modelID string) (*QueryCache, error) {
	cache, err := otter.MustBuilder[string, []float32](QueryCacheCapacity).
		WithTTL(QueryCacheTTL).
		CollectStats().
		Build()
	if err != nil {
		return nil, err
	}
	return &QueryCache{modelID: modelID, cache: cache}, nil
}

func (c *QueryCache) key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return c.modelID + ":" + hex.EncodeToString(sum[:])
}

// Get returns a cached embedding for query, if present and unexpired.
func (c *QueryCache) Get(query string) ([]float32, bool) {
	return c.cache.Get(c.key(query))
}

// Set stores an embedding for query.
func (c *QueryCache) Set(query string, embedding []float32) {
	c.cache.Set(c.key(query), embedding)
}

// Close releases the underlying cache.
func (c *QueryCache) Close() {
	c.cache.Close()
}
