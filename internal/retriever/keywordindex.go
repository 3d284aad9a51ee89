package retriever

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/basalt-dev/sourcelens/internal/corerr"
)

// keywordDoc is the bleve document shape for one indexed chunk. Field names
// match what CountKeywordHits searches against.
type keywordDoc struct {
	Content    string `json:"content"`
	SymbolName string `json:"symbol_name"`
}

// KeywordIndex is an in-memory bleve inverted index over chunk content and
// symbol names, kept in sync with the Vector Store (Upsert/Delete mirror
// vectorstore.Store.Upsert/DeleteWhere). The hybrid retrieval stage queries
// it to count how many query keywords hit a given chunk, replacing a linear
// substring scan over chunk content with a real index lookup.
type KeywordIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewKeywordIndex builds an empty keyword index.
func NewKeywordIndex() (*KeywordIndex, error) {
	index, err := bleve.NewMemOnly(buildKeywordMapping())
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, "create keyword index", err)
	}
	return &KeywordIndex{index: index}, nil
}

// buildKeywordMapping indexes content and symbol_name with the standard
// analyzer; both fields are searchable but unstored, since CountKeywordHits
// only needs match locations, not reconstructed text.
func buildKeywordMapping() *mapping.IndexMappingImpl {
	field := bleve.NewTextFieldMapping()
	field.Analyzer = "standard"
	field.Store = false
	field.Index = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", field)
	doc.AddFieldMappingsAt("symbol_name", field)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// Upsert indexes or re-indexes one chunk's searchable text under id.
func (k *KeywordIndex) Upsert(id, content, symbolName string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.index.Index(id, keywordDoc{Content: content, SymbolName: symbolName}); err != nil {
		return corerr.Wrap(corerr.Internal, fmt.Sprintf("index chunk %s", id), err)
	}
	return nil
}

// DeleteWhere removes every indexed chunk whose id is in ids.
func (k *KeywordIndex) DeleteWhere(ids []string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	batch := k.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := k.index.Batch(batch); err != nil {
		return corerr.Wrap(corerr.Internal, "delete chunks from keyword index", err)
	}
	return nil
}

// CountKeywordHits reports how many of keywords appear in id's content or
// symbol_name field, via the inverted index rather than re-scanning the
// stored text by hand.
func (k *KeywordIndex) CountKeywordHits(ctx context.Context, id string, keywords []string) (int, error) {
	if len(keywords) == 0 {
		return 0, nil
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	idQuery := bleve.NewDocIDQuery([]string{id})

	// One wildcard lookup per keyword, mirroring the original's per-keyword
	// "kw in content_lower or kw in symbol_lower" loop: a wildcard query
	// (rather than an exact-term match) is needed to catch a keyword that
	// occurs inside a larger token, e.g. "render" inside "renderTemplate".
	hits := 0
	for _, kw := range keywords {
		pattern := "*" + kw + "*"
		content := bleve.NewWildcardQuery(pattern)
		content.SetField("content")
		symbol := bleve.NewWildcardQuery(pattern)
		symbol.SetField("symbol_name")

		query := bleve.NewConjunctionQuery(idQuery, bleve.NewDisjunctionQuery(content, symbol))
		req := bleve.NewSearchRequestOptions(query, 1, 0, false)

		result, err := k.index.SearchInContext(ctx, req)
		if err != nil {
			return 0, corerr.Wrap(corerr.Internal, "search keyword index", err)
		}
		if len(result.Hits) > 0 {
			hits++
		}
	}
	return hits, nil
}

// Close releases the underlying bleve index.
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.index.Close()
}
