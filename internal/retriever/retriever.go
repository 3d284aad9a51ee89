// Package retriever implements the four-stage retrieval algorithm that turns
// a natural-language or code query into a ranked list of chunks: semantic
// (vector similarity), hybrid (keyword-boosted re-scoring of the semantic
// set), graph-expansion (pull in related symbols via the call graph), and a
// final weighted re-rank.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/basalt-dev/sourcelens/internal/corerr"
	"github.com/basalt-dev/sourcelens/internal/embed"
	"github.com/basalt-dev/sourcelens/internal/graph"
	"github.com/basalt-dev/sourcelens/internal/vectorstore"
)

// DefaultTopK is used when Options.TopK is unset.
const DefaultTopK = 10

// graphExpansionFraction caps how many top candidates get their related
// symbols pulled in: only the top k/2, since expansion past that rarely
// surfaces anything the semantic/hybrid stages didn't already find.
const graphExpansionFraction = 2

// maxRelatedPerCandidate bounds how many related nodes one candidate's
// expansion contributes, so one heavily-called helper can't flood the set.
const maxRelatedPerCandidate = 2

// Result is one retrieved chunk, carrying the scores assigned by whichever
// stages ran.
type Result struct {
	ID           string
	FilePath     string
	Language     string
	ChunkType    string
	StartLine    int
	EndLine      int
	SymbolName   string
	ParentSymbol string
	Content      string

	// Distance is cosine distance from the semantic stage, in [0, 2].
	Distance float64
	// HybridScore is Distance after the keyword-hit boost; only set when
	// the hybrid stage ran. Lower is still better.
	HybridScore float64
	// RerankScore is the final composite score; higher is better. This is
	// what results are sorted by.
	RerankScore float64
}

// Options configures one Retrieve call.
type Options struct {
	// TopK is the number of results to return. Defaults to DefaultTopK.
	TopK int
	// FilePath restricts the semantic stage to one file's chunks.
	FilePath string
	// UseHybrid enables the keyword-boosted hybrid stage. Defaults true.
	UseHybrid bool
	// UseGraph enables the graph-expansion stage. Defaults true.
	UseGraph bool
}

// withDefaults fills in zero-valued fields.
func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	return o
}

// Retriever runs the semantic/hybrid/graph-expansion/re-rank pipeline over a
// vector store, an optional keyword index, and an optional graph searcher.
// All three dependencies are interfaces so callers (internal/core, tests)
// can substitute fakes.
type Retriever struct {
	store      vectorstore.Store
	embedder   embed.Provider
	queryCache *embed.QueryCache
	keywordIdx *KeywordIndex  // nil disables the hybrid stage's bleve boost
	searcher   graph.Searcher // nil disables the graph-expansion stage
}

// New builds a Retriever. keywordIdx and searcher may be nil, which disables
// the hybrid keyword boost and the graph-expansion stage respectively (the
// semantic stage and the re-rank always run).
func New(store vectorstore.Store, embedder embed.Provider, queryCache *embed.QueryCache, keywordIdx *KeywordIndex, searcher graph.Searcher) *Retriever {
	return &Retriever{
		store:      store,
		embedder:   embedder,
		queryCache: queryCache,
		keywordIdx: keywordIdx,
		searcher:   searcher,
	}
}

// Retrieve runs the full pipeline for query and returns up to opts.TopK
// results ordered by RerankScore, descending.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]Result, error) {
	opts = opts.withDefaults()

	var results []Result
	var err error
	if opts.UseHybrid {
		results, err = r.hybridRetrieve(ctx, query, opts.TopK, opts.FilePath)
	} else {
		results, err = r.semanticRetrieve(ctx, query, opts.TopK, opts.FilePath)
	}
	if err != nil {
		return nil, err
	}

	if opts.UseGraph && r.searcher != nil {
		results, err = r.expandWithGraph(ctx, query, results, opts.TopK)
		if err != nil {
			return nil, err
		}
	}

	return rerank(query, results, opts.TopK), nil
}

// embedQuery embeds query for search, short-circuiting through queryCache
// when present.
func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.queryCache != nil {
		if cached, ok := r.queryCache.Get(query); ok {
			return cached, nil
		}
	}

	vecs, err := r.embedder.Embed(ctx, []string{query}, embed.EmbedModeQuery)
	if err != nil {
		return nil, corerr.Wrap(corerr.Transient, "embed query", err)
	}
	if len(vecs) == 0 {
		return nil, corerr.New(corerr.Internal, "embedder returned no vector for query")
	}

	if r.queryCache != nil {
		r.queryCache.Set(query, vecs[0])
	}
	return vecs[0], nil
}

// semanticRetrieve embeds query and returns the topK nearest chunks by
// cosine distance, optionally restricted to one file.
func (r *Retriever) semanticRetrieve(ctx context.Context, query string, topK int, filePath string) ([]Result, error) {
	embedding, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var filter *vectorstore.Filter
	if filePath != "" {
		filter = &vectorstore.Filter{FilePath: filePath}
	}

	hits, err := r.store.Query(ctx, embedding, topK, filter)
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, "query vector store", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, resultFromVectorHit(hit))
	}
	return results, nil
}

// hybridRetrieve fetches 2*topK semantic candidates, boosts each by its
// keyword-hit count against the query, and keeps the best 2*topK by the
// boosted score for the graph/re-rank stages to narrow further.
func (r *Retriever) hybridRetrieve(ctx context.Context, query string, topK int, filePath string) ([]Result, error) {
	semantic, err := r.semanticRetrieve(ctx, query, topK*2, filePath)
	if err != nil {
		return nil, err
	}

	keywords := extractKeywords(query)
	if len(keywords) == 0 || r.keywordIdx == nil {
		return semantic, nil
	}

	for i := range semantic {
		hits, err := r.keywordIdx.CountKeywordHits(ctx, semantic[i].ID, keywords)
		if err != nil {
			return nil, err
		}
		score := semantic[i].Distance
		if score == 0 {
			score = 1.0
		}
		if hits > 0 {
			score = score * (1.0 - float64(hits)*0.1)
		}
		semantic[i].HybridScore = score
	}

	sort.SliceStable(semantic, func(i, j int) bool {
		return semantic[i].HybridScore < semantic[j].HybridScore
	})

	if len(semantic) > topK*2 {
		semantic = semantic[:topK*2]
	}
	return semantic, nil
}

// expandWithGraph adds, for each of the top k/2 results with a symbol name,
// up to maxRelatedPerCandidate related symbols found via the call graph's
// caller index, each pulled in via a focused single-result semantic lookup
// scoped to that symbol's file.
func (r *Retriever) expandWithGraph(ctx context.Context, query string, results []Result, topK int) ([]Result, error) {
	candidateCount := topK / graphExpansionFraction
	if candidateCount > len(results) {
		candidateCount = len(results)
	}

	enhanced := append([]Result(nil), results...)
	added := make(map[string]bool)

	for _, candidate := range results[:candidateCount] {
		if candidate.SymbolName == "" {
			continue
		}

		related, err := r.relatedSymbols(ctx, candidate.SymbolName)
		if err != nil {
			return nil, err
		}

		count := 0
		for _, node := range related {
			if count >= maxRelatedPerCandidate {
				break
			}
			key := node.File + "::" + node.ID
			if added[key] {
				continue
			}

			focused, err := r.semanticRetrieve(ctx, symbolQueryText(node), 1, node.File)
			if err != nil {
				return nil, err
			}
			if len(focused) == 0 {
				continue
			}

			enhanced = append(enhanced, focused[0])
			added[key] = true
			count++
		}
	}

	return enhanced, nil
}

// symbolQueryText derives the focused lookup query for a related graph node.
// Node.ID is "relativeFilePath::name"; only the name is useful as a query.
func symbolQueryText(node graph.Node) string {
	if idx := strings.LastIndex(node.ID, "::"); idx >= 0 {
		return node.ID[idx+2:]
	}
	return node.ID
}

// relatedSymbols finds nodes related to symbolName via the call graph.
// The graph only resolves call edges to bare callee names (see
// internal/graph's tree-sitter extractor), so the only reliably addressable
// relationship from a bare name is "who calls this" — a query for "what does
// this call" would need a fully-qualified node id, which the retriever
// doesn't have. This covers the 'calls' half of the original relationship
// set; there is no Go-graph analog of 'inherits' to cover the other half.
func (r *Retriever) relatedSymbols(ctx context.Context, symbolName string) ([]graph.Node, error) {
	resp, err := r.searcher.Query(ctx, &graph.QueryRequest{
		Operation:  graph.OperationCallers,
		Target:     symbolName,
		Depth:      1,
		MaxResults: maxRelatedPerCandidate,
	})
	if err != nil {
		return nil, corerr.Wrap(corerr.Internal, fmt.Sprintf("query callers of %s", symbolName), err)
	}

	nodes := make([]graph.Node, 0, len(resp.Results))
	for _, res := range resp.Results {
		if res.Node != nil {
			nodes = append(nodes, *res.Node)
		}
	}
	return nodes, nil
}

func resultFromVectorHit(hit vectorstore.Result) Result {
	meta := hit.Metadata
	return Result{
		ID:           hit.ID,
		FilePath:     hit.FilePath,
		Content:      hit.Content,
		Distance:     hit.Distance,
		Language:     meta["language"],
		ChunkType:    meta["chunk_type"],
		SymbolName:   meta["symbol_name"],
		ParentSymbol: meta["parent_symbol"],
		StartLine:    atoiSafe(meta["start_line"]),
		EndLine:      atoiSafe(meta["end_line"]),
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
