package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/basalt-dev/sourcelens/internal/watch"
)

// Core implements watch.Handler directly: the incremental worker from
// spec.md §5 is this delete-then-reindex pair, driven by the Watcher's
// per-path debounce rather than a separate queue of its own.
var _ watch.Handler = (*Core)(nil)

// WatchForChanges starts a filesystem watcher rooted at the workspace and
// wires it to this Core's Upsert/Delete methods. Call Close (or StopWatching) to
// shut it down; only one watcher may be active per Core.
func (c *Core) WatchForChanges(ctx context.Context) error {
	w, err := watch.New(c.rootDir, c.cfg.Paths.Ignore, c, watch.Options{})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	c.watcher = w
	w.Start(ctx)
	return nil
}

// StopWatching stops a watcher started by WatchForChanges, if any.
func (c *Core) StopWatching() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Stop()
}

// Upsert re-chunks, re-embeds, and re-graphs path, replacing any chunks
// previously indexed for it. Satisfies watch.Handler.
func (c *Core) Upsert(ctx context.Context, path string) error {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	relPath, err := c.relPath(path)
	if err != nil {
		return err
	}

	if err := c.clearFile(ctx, relPath); err != nil {
		return err
	}

	chunks, err := c.chunkFile(path)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", relPath, err)
	}
	if len(chunks) > 0 {
		if err := c.embedAndUpsert(ctx, chunks); err != nil {
			return err
		}
	}

	return c.rebuildGraphIncremental(ctx, []string{path}, nil)
}

// Delete removes every chunk belonging to path and updates the Code Graph.
// Satisfies watch.Handler.
func (c *Core) Delete(ctx context.Context, path string) error {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	relPath, err := c.relPath(path)
	if err != nil {
		return err
	}
	if err := c.clearFile(ctx, relPath); err != nil {
		return err
	}
	return c.rebuildGraphIncremental(ctx, nil, []string{path})
}

// clearFile removes relPath's chunks from the Vector Store and keyword
// index using the ids recorded by the last index run for it.
func (c *Core) clearFile(ctx context.Context, relPath string) error {
	ids := c.forgetChunks(relPath)
	if err := c.vectors.DeleteWhere(ctx, relPath); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", relPath, err)
	}
	if len(ids) > 0 {
		if err := c.keywordIdx.DeleteWhere(ids); err != nil {
			return fmt.Errorf("delete keyword entries for %s: %w", relPath, err)
		}
	}
	return nil
}

// rebuildGraphIncremental updates the Code Graph for changed/deleted files
// only, via graph.Builder.BuildIncremental, then reloads the Searcher.
func (c *Core) rebuildGraphIncremental(ctx context.Context, changed, deleted []string) error {
	previous, err := c.graphStorage.Load()
	if err != nil {
		return fmt.Errorf("load code graph: %w", err)
	}

	allFiles, _, err := c.discovery.DiscoverFiles()
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}

	updated, err := c.graphBuilder.BuildIncremental(ctx, previous, changed, deleted, allFiles)
	if err != nil {
		return fmt.Errorf("update code graph: %w", err)
	}
	if err := c.graphStorage.Save(updated); err != nil {
		return fmt.Errorf("save code graph: %w", err)
	}
	return c.graphSearcher.Reload(ctx)
}

// relPath converts an absolute, watcher-supplied path to the
// workspace-relative, slash-normalized form every other Core method keys
// its bookkeeping on.
func (c *Core) relPath(absPath string) (string, error) {
	rel, err := filepath.Rel(c.rootDir, absPath)
	if err != nil {
		return "", fmt.Errorf("resolve relative path for %s: %w", absPath, err)
	}
	return filepath.ToSlash(rel), nil
}
