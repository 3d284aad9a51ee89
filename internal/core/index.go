package core

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/basalt-dev/sourcelens/internal/chunk"
	"github.com/basalt-dev/sourcelens/internal/embed"
	"github.com/basalt-dev/sourcelens/internal/vectorstore"
)

// IndexStats summarizes one IndexAll run.
type IndexStats struct {
	FilesScanned int
	ChunksStored int
	Duration     time.Duration
}

// IndexAll walks the workspace, chunks every discovered file, embeds and
// upserts the results into the Vector Store and keyword index, and rebuilds
// the Code Graph — the indexing pool (spec.md §5) bounded at
// indexingPoolSize concurrent file chunkers feeding a single embedding
// stream that flushes every vectorstore.MaxUpsertBatch chunks. onFile, if
// given, is called once per file after it has been chunked (from whichever
// pool goroutine processed it); a caller reporting progress must not assume
// ordering or a single calling goroutine.
func (c *Core) IndexAll(ctx context.Context, onFile ...func(relPath string)) (*IndexStats, error) {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	var report func(string)
	if len(onFile) > 0 && onFile[0] != nil {
		report = onFile[0]
	}

	start := time.Now()

	codeFiles, docFiles, err := c.discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	allFiles := append(append([]string{}, codeFiles...), docFiles...)

	c.mu.Lock()
	c.fileChunks = make(map[string][]string, len(allFiles))
	c.mu.Unlock()

	chunkCh := make(chan chunk.Chunk, 256)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexingPoolSize)

	for _, absPath := range allFiles {
		absPath := absPath
		g.Go(func() error {
			chunks, err := c.chunkFile(absPath)
			if err != nil {
				log.Printf("core: chunk %s: %v", absPath, err)
				return nil // one bad file doesn't abort the whole run
			}
			if report != nil {
				relPath, relErr := filepath.Rel(c.rootDir, absPath)
				if relErr == nil {
					report(filepath.ToSlash(relPath))
				}
			}
			for _, ch := range chunks {
				select {
				case chunkCh <- ch:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	var chunksStored int64
	embedDone := make(chan error, 1)
	go func() {
		embedDone <- c.drainAndEmbed(ctx, chunkCh, &chunksStored)
	}()

	groupErr := g.Wait()
	close(chunkCh)
	embedErr := <-embedDone
	if groupErr == nil {
		groupErr = embedErr
	}
	if groupErr != nil {
		return nil, groupErr
	}

	if err := c.rebuildGraphFull(ctx, codeFiles); err != nil {
		return nil, err
	}

	return &IndexStats{
		FilesScanned: len(allFiles),
		ChunksStored: int(chunksStored),
		Duration:     time.Since(start),
	}, nil
}

// chunkFile chunks one file and stamps ids on the result.
func (c *Core) chunkFile(absPath string) ([]chunk.Chunk, error) {
	relPath, err := filepath.Rel(c.rootDir, absPath)
	if err != nil {
		return nil, err
	}
	relPath = filepath.ToSlash(relPath)

	chunks, err := c.chunker.ChunkFile(context.Background(), relPath, absPath, nil)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i] = chunks[i].WithID()
	}
	return chunks, nil
}

// drainAndEmbed consumes chunkCh, batching up to vectorstore.MaxUpsertBatch
// entries per embed+upsert call — the embedding stream's back-pressure
// point from spec.md §5.
func (c *Core) drainAndEmbed(ctx context.Context, chunkCh <-chan chunk.Chunk, stored *int64) error {
	batch := make([]chunk.Chunk, 0, vectorstore.MaxUpsertBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.embedAndUpsert(ctx, batch); err != nil {
			return err
		}
		atomic.AddInt64(stored, int64(len(batch)))
		batch = batch[:0]
		return nil
	}

	for ch := range chunkCh {
		batch = append(batch, ch)
		if len(batch) >= vectorstore.MaxUpsertBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// embedAndUpsert embeds a batch of chunks as passages and writes them to
// the Vector Store and keyword index, then records the ids against their
// source files so a later delete-then-reindex knows what to remove.
func (c *Core) embedAndUpsert(ctx context.Context, batch []chunk.Chunk) error {
	texts := make([]string, len(batch))
	for i, ch := range batch {
		texts[i] = ch.FormatForEmbedding()
	}

	embeddings, err := embed.EmbedWithProgress(ctx, c.embedder, texts, embed.EmbedModePassage, embedSubBatchSize, nil)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}

	vectors := make([]vectorstore.Vector, len(batch))
	byFile := make(map[string][]string)
	for i, ch := range batch {
		vectors[i] = vectorstore.Vector{
			ID:        ch.ID,
			Embedding: embeddings[i],
			FilePath:  ch.File,
			Content:   ch.Content,
			Metadata: map[string]string{
				"language":      ch.Language,
				"chunk_type":    string(ch.Type),
				"symbol_name":   ch.SymbolName,
				"parent_symbol": ch.ParentSymbol,
				"start_line":    strconv.Itoa(ch.StartLine),
				"end_line":      strconv.Itoa(ch.EndLine),
			},
		}
		byFile[ch.File] = append(byFile[ch.File], ch.ID)
	}

	if err := c.vectors.Upsert(ctx, vectors); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	for _, ch := range batch {
		if err := c.keywordIdx.Upsert(ch.ID, ch.Content, ch.SymbolName); err != nil {
			return fmt.Errorf("upsert keyword index: %w", err)
		}
	}

	for file, ids := range byFile {
		c.appendChunks(file, ids)
	}

	return nil
}

// rebuildGraphFull rebuilds the Code Graph from scratch over codeFiles and
// reloads the Searcher's in-memory view.
func (c *Core) rebuildGraphFull(ctx context.Context, codeFiles []string) error {
	graphData, err := c.graphBuilder.BuildFull(ctx, codeFiles)
	if err != nil {
		return fmt.Errorf("build code graph: %w", err)
	}
	if err := c.graphStorage.Save(graphData); err != nil {
		return fmt.Errorf("save code graph: %w", err)
	}
	return c.graphSearcher.Reload(ctx)
}
