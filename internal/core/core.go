// Package core wires every indexing and retrieval component into one
// explicit handle, per Design Notes §9: no package-level globals, one
// struct owning the shared Vector Store, Code Graph, and Facts Store
// references plus the three worker pools (indexing, embedding, incremental)
// that operate on them. internal/cli and internal/mcpserver are the only
// callers; both hold a *Core and never reach into its dependencies
// directly.
package core

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/basalt-dev/sourcelens/internal/cache"
	"github.com/basalt-dev/sourcelens/internal/chunk"
	"github.com/basalt-dev/sourcelens/internal/config"
	cxt "github.com/basalt-dev/sourcelens/internal/context"
	"github.com/basalt-dev/sourcelens/internal/embed"
	"github.com/basalt-dev/sourcelens/internal/facts"
	"github.com/basalt-dev/sourcelens/internal/graph"
	"github.com/basalt-dev/sourcelens/internal/indexer"
	"github.com/basalt-dev/sourcelens/internal/llm"
	"github.com/basalt-dev/sourcelens/internal/retriever"
	"github.com/basalt-dev/sourcelens/internal/summarize"
	"github.com/basalt-dev/sourcelens/internal/tokencount"
	"github.com/basalt-dev/sourcelens/internal/vectorstore"
	"github.com/basalt-dev/sourcelens/internal/watch"
)

// indexingPoolSize bounds how many files are chunked concurrently, per
// spec.md §5's "indexing pool bounded at 8".
const indexingPoolSize = 8

// embedSubBatchSize is the chunk count per call to the embedding provider
// within one upsert batch; kept well under the provider's own request size
// limits regardless of how large MaxUpsertBatch is.
const embedSubBatchSize = 64

// Core owns every long-lived dependency the indexing and retrieval paths
// share: the Vector Store, Code Graph, Facts Store, and the embedding/LLM
// providers, plus the file-to-chunk-id bookkeeping the incremental watcher
// needs to delete a file's old chunks before re-indexing it.
type Core struct {
	rootDir string
	cfg     *config.Config

	discovery *indexer.FileDiscovery
	chunker   *chunk.Chunker

	embedder   embed.Provider
	queryCache *embed.QueryCache

	vectors    vectorstore.Store
	keywordIdx *retriever.KeywordIndex

	graphStorage  graph.Storage
	graphBuilder  graph.Builder
	graphSearcher graph.Searcher

	retriever *retriever.Retriever

	factsStore *facts.Store
	llm        llm.Provider // nil when cfg.LLM.Provider is unset
	summarizer *summarize.Summarizer
	tokens     *tokencount.Counter
	assembler  *cxt.Assembler

	watcher *watch.Watcher // nil until WatchForChanges is called

	// fileChunks maps a workspace-relative path to the ids of the chunks
	// currently indexed for it, so a delete-then-reindex can clear exactly
	// the old set instead of scanning the whole store. Rebuilt from scratch
	// by IndexAll; maintained incrementally thereafter by Upsert/Delete.
	mu         sync.Mutex
	fileChunks map[string][]string

	// indexMu serializes IndexAll runs against concurrent watch-triggered
	// upserts so a full reindex and an incremental one never race on the
	// Code Graph's read-modify-write Save.
	indexMu sync.Mutex
}

// New constructs a Core for the workspace at rootDir, opening (or creating)
// its on-disk state under the project's cache location — resolved the same
// branch/worktree-aware way internal/cli's old pipeline did via
// internal/cache, so a Core and the legacy indexer agree on where state
// lives even though they no longer share a schema. The embedding provider is
// initialized eagerly (a local provider downloads and starts its model
// server here) so IndexAll and Retrieve never pay that latency mid-call.
func New(ctx context.Context, rootDir string, cfg *config.Config) (*Core, error) {
	settings, err := cache.LoadOrCreateSettings(rootDir)
	if err != nil {
		return nil, fmt.Errorf("load cache settings: %w", err)
	}

	discovery, err := indexer.NewFileDiscovery(rootDir, cfg.Paths.Code, cfg.Paths.Docs, cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("create file discovery: %w", err)
	}

	chunker := chunk.New(chunk.Options{
		DocTargetTokens: cfg.Chunking.DocChunkSize,
	})

	embedder, err := embed.NewProvider(embed.Config{
		Provider: cfg.Embedding.Provider,
		Endpoint: cfg.Embedding.Endpoint,
		Model:    cfg.Embedding.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding provider: %w", err)
	}
	if err := embedder.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize embedding provider: %w", err)
	}

	queryCache, err := embed.NewQueryCache(cfg.Embedding.Model)
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("create query cache: %w", err)
	}

	vectors, err := vectorstore.Open(vectorstore.Config{
		Backend:    vectorstore.Backend(cfg.VectorStore.Backend),
		SQLitePath: filepath.Join(settings.CacheLocation, "vectors.db"),
		Dimensions: cfg.VectorStore.Dimensions,
	})
	if err != nil {
		embedder.Close()
		queryCache.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	keywordIdx, err := retriever.NewKeywordIndex()
	if err != nil {
		vectors.Close()
		embedder.Close()
		queryCache.Close()
		return nil, fmt.Errorf("create keyword index: %w", err)
	}

	graphDir := filepath.Join(settings.CacheLocation, "graph")
	graphStorage, err := graph.NewStorage(graphDir)
	if err != nil {
		keywordIdx.Close()
		vectors.Close()
		embedder.Close()
		queryCache.Close()
		return nil, fmt.Errorf("open graph storage: %w", err)
	}
	graphBuilder := graph.NewBuilder(rootDir)
	graphSearcher, err := graph.NewSearcher(graphStorage, rootDir)
	if err != nil {
		keywordIdx.Close()
		vectors.Close()
		embedder.Close()
		queryCache.Close()
		return nil, fmt.Errorf("open graph searcher: %w", err)
	}

	factsStore, err := facts.Open(filepath.Join(settings.CacheLocation, "facts.db"), nil)
	if err != nil {
		graphSearcher.Close()
		keywordIdx.Close()
		vectors.Close()
		embedder.Close()
		queryCache.Close()
		return nil, fmt.Errorf("open facts store: %w", err)
	}

	var llmProvider llm.Provider
	if cfg.LLM.Provider != "" {
		llmProvider, err = llm.New(llm.Config{
			ID:      llm.ID(cfg.LLM.Provider),
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
		})
		if err != nil {
			factsStore.Close()
			graphSearcher.Close()
			keywordIdx.Close()
			vectors.Close()
			embedder.Close()
			queryCache.Close()
			return nil, fmt.Errorf("create llm provider: %w", err)
		}
	}

	summarizer := summarize.New(llmProvider, cfg.LLM.Model)
	tokens := tokencount.New()
	assembler := cxt.NewAssembler(cxt.DefaultConfig(), tokens, summarizer, factsStore)

	r := retriever.New(vectors, embedder, queryCache, keywordIdx, graphSearcher)

	return &Core{
		rootDir:       rootDir,
		cfg:           cfg,
		discovery:     discovery,
		chunker:       chunker,
		embedder:      embedder,
		queryCache:    queryCache,
		vectors:       vectors,
		keywordIdx:    keywordIdx,
		graphStorage:  graphStorage,
		graphBuilder:  graphBuilder,
		graphSearcher: graphSearcher,
		retriever:     r,
		factsStore:    factsStore,
		llm:           llmProvider,
		summarizer:    summarizer,
		tokens:        tokens,
		assembler:     assembler,
		fileChunks:    make(map[string][]string),
	}, nil
}

// Assembler exposes the Context Assembler wired to this Core's Facts Store
// and Summarizer, for internal/mcpserver's chat-completion glue.
func (c *Core) Assembler() *cxt.Assembler { return c.assembler }

// RootDir returns the workspace root this Core was constructed for, for
// callers (e.g. internal/mcpserver's apply_diff tool) that need to build
// their own path-scoped helper (diff.Engine, validate.Service) against it.
func (c *Core) RootDir() string { return c.rootDir }

// FactsStore exposes the Facts Store directly for callers (e.g. a
// save_file_change tool) that need more than the Assembler's narrow
// FactsSource view.
func (c *Core) FactsStore() *facts.Store { return c.factsStore }

// Close releases every resource Core opened. The embedding provider is
// initialized by New (it may start a subprocess); Close always attempts
// to stop it.
func (c *Core) Close() error {
	if c.watcher != nil {
		c.watcher.Stop()
	}

	var errs []error
	if err := c.graphSearcher.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.keywordIdx.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.vectors.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.factsStore.Close(); err != nil {
		errs = append(errs, err)
	}
	c.queryCache.Close()
	if err := c.embedder.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("core close: %v", errs)
	}
	return nil
}

// appendChunks records ids as additional chunks belonging to file, on top
// of whatever was already recorded for it during this index run.
func (c *Core) appendChunks(file string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fileChunks[file] = append(c.fileChunks[file], ids...)
}

// forgetChunks returns and clears the chunk ids previously recorded for
// relPath.
func (c *Core) forgetChunks(relPath string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.fileChunks[relPath]
	delete(c.fileChunks, relPath)
	return ids
}
