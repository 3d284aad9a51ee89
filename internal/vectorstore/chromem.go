package vectorstore

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/basalt-dev/sourcelens/internal/corerr"
)

const chromemCollectionName = "sourcelens"

// chromemStore is the cgo-free fallback backend, for builds that can't link
// sqlite-vec. Grounded on mvp-joe-project-cortex/internal/mcp/chromem_searcher.go's
// usage of chromem-go: one collection holding precomputed embeddings (the
// nil embeddingFunc in CreateCollection is never invoked because every
// Document we add already carries its Embedding), WHERE-map filtering, and
// Collection.Delete for removal.
type chromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

func OpenChromem() (Store, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection(chromemCollectionName, nil, nil)
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, "failed to create chromem collection", err)
	}
	return &chromemStore{db: db, collection: collection}, nil
}

func (s *chromemStore) Close() error { return nil }

func (s *chromemStore) Upsert(ctx context.Context, batch []Vector) error {
	if len(batch) == 0 {
		return nil
	}
	if len(batch) > MaxUpsertBatch {
		return corerr.New(corerr.InvalidInput, fmt.Sprintf("upsert batch of %d exceeds max of %d", len(batch), MaxUpsertBatch))
	}

	for _, v := range batch {
		_ = s.collection.Delete(ctx, nil, nil, v.ID)

		metadata := make(map[string]string, len(v.Metadata)+1)
		for k, val := range v.Metadata {
			metadata[k] = val
		}
		metadata["file_path"] = v.FilePath

		doc := chromem.Document{
			ID:        v.ID,
			Content:   v.Content,
			Embedding: v.Embedding,
			Metadata:  metadata,
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return corerr.Wrap(corerr.Internal, "failed to add chromem document", err)
		}
	}
	return nil
}

func (s *chromemStore) DeleteWhere(ctx context.Context, filePath string) error {
	if err := s.collection.Delete(ctx, map[string]string{"file_path": filePath}, nil); err != nil {
		return corerr.Wrap(corerr.Internal, "failed to delete chromem documents", err)
	}
	return nil
}

func (s *chromemStore) Query(ctx context.Context, embedding []float32, k int, filter *Filter) ([]Result, error) {
	var where map[string]string
	if filter != nil && filter.FilePath != "" {
		where = map[string]string{"file_path": filter.FilePath}
	}

	docs, err := s.collection.QueryEmbedding(ctx, embedding, k, where, nil)
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, "failed to query chromem collection", err)
	}

	out := make([]Result, 0, len(docs))
	for _, d := range docs {
		// chromem reports cosine similarity in [-1, 1]; convert to the same
		// cosine-distance space ([0, 2], lower is better) the sqlite backend
		// reports, so callers never branch on which backend is active.
		distance := 1 - float64(d.Similarity)
		metadata := make(map[string]string, len(d.Metadata))
		for mk, mv := range d.Metadata {
			if mk == "file_path" {
				continue
			}
			metadata[mk] = mv
		}
		out = append(out, Result{
			ID:       d.ID,
			Distance: distance,
			FilePath: d.Metadata["file_path"],
			Content:  d.Content,
			Metadata: metadata,
		})
	}
	return out, nil
}
