// Package watch is the incremental indexer's filesystem watcher: a
// per-path sliding-debounce map plus a background sweep worker, redesigned
// from the teacher's internal/watcher (which debounces once globally for
// the whole batch of recent events) to debounce each path independently.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DebounceWindow is how long a path's pending action slides forward on each
// new event before the sweep worker is allowed to act on it, per spec.md
// §4.7.
const DebounceWindow = 2 * time.Second

// SweepInterval is how often the background worker checks for due entries.
const SweepInterval = 500 * time.Millisecond

// Action is what a pending filesystem event resolves to once it's due.
type Action int

const (
	// ActionUpsert means delete-then-reindex the file.
	ActionUpsert Action = iota
	// ActionDelete means remove the file's chunks from the Vector Store.
	ActionDelete
)

// Handler reacts to a debounced, coalesced filesystem change. Implementations
// own the delete-then-reindex or delete pipeline; Watcher only decides when
// and for which path to call them.
type Handler interface {
	// Upsert re-extracts and re-embeds path, replacing any existing chunks.
	Upsert(ctx context.Context, path string) error
	// Delete removes every chunk belonging to path.
	Delete(ctx context.Context, path string) error
}

type pendingEntry struct {
	action Action
	dueAt  time.Time
}

// Watcher watches a directory tree and, for every changed path, fires
// Handler.Upsert or Handler.Delete after a 2-second sliding debounce. Events
// for the same path coalesce to the latest action: a create followed by a
// modify followed by a delete within the window results in exactly one
// Delete call.
type Watcher struct {
	rootDir        string
	ignorePatterns []glob.Glob
	handler        Handler
	maxDepth       int
	maxDirectories int
	debounceWindow time.Duration
	sweepInterval  time.Duration

	fsWatcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]pendingEntry
	running map[string]bool // per-file guard: a path already being processed is skipped this sweep

	dirCount int
	dirMu    sync.Mutex

	cancel   context.CancelFunc
	doneCh   chan struct{}
	stopOnce sync.Once
}

// Options configures directory-watch limits and timing. Zero values fall
// back to production defaults; tests override DebounceWindow/SweepInterval
// to avoid waiting on the real 2s/500ms timing.
type Options struct {
	MaxDepth       int
	MaxDirectories int
	DebounceWindow time.Duration
	SweepInterval  time.Duration
}

const (
	defaultMaxDepth       = 20
	defaultMaxDirectories = 5000
)

// New builds a Watcher rooted at rootDir. ignorePatterns are gobwas/glob
// patterns evaluated against root-relative, slash-normalized paths (same
// syntax as internal/indexer's Scanner ignore list).
func New(rootDir string, ignorePatterns []string, handler Handler, opts Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	compiled := make([]glob.Glob, 0, len(ignorePatterns))
	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("compile ignore pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, g)
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	maxDirectories := opts.MaxDirectories
	if maxDirectories <= 0 {
		maxDirectories = defaultMaxDirectories
	}
	debounceWindow := opts.DebounceWindow
	if debounceWindow <= 0 {
		debounceWindow = DebounceWindow
	}
	sweepInterval := opts.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = SweepInterval
	}

	w := &Watcher{
		rootDir:        rootDir,
		ignorePatterns: compiled,
		handler:        handler,
		maxDepth:       maxDepth,
		maxDirectories: maxDirectories,
		debounceWindow: debounceWindow,
		sweepInterval:  sweepInterval,
		fsWatcher:      fsWatcher,
		pending:        make(map[string]pendingEntry),
		running:        make(map[string]bool),
		doneCh:         make(chan struct{}),
	}

	if err := w.addDirRecursive(rootDir, 0); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Start launches the event loop and sweep worker. It returns once both
// goroutines are running; call Stop (or cancel ctx) to shut down.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.eventLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		w.sweepLoop(ctx)
	}()

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()
}

// Stop cancels the watcher's goroutines and closes the underlying fsnotify
// watcher. Safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.fsWatcher.Close()
	})
	return err
}

// eventLoop consumes fsnotify events, filters them, and records the
// coalesced pending action per path.
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Printf("watch: fsnotify error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirRecursive(event.Name, 0); err != nil {
				log.Printf("watch: failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if w.shouldIgnore(event.Name) {
		return
	}

	action := ActionUpsert
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		action = ActionDelete
	}

	w.mu.Lock()
	w.pending[event.Name] = pendingEntry{action: action, dueAt: time.Now().Add(w.debounceWindow)}
	w.mu.Unlock()
}

// sweepLoop wakes every SweepInterval, pulls due entries, and dispatches
// each to the handler under a per-file guard so a slow reindex doesn't
// overlap with a second one for the same path.
func (w *Watcher) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Watcher) sweepOnce(ctx context.Context) {
	now := time.Now()

	w.mu.Lock()
	due := make(map[string]Action)
	for path, entry := range w.pending {
		if entry.dueAt.After(now) {
			continue
		}
		if w.running[path] {
			continue // leave it pending; next sweep will retry
		}
		due[path] = entry.action
		w.running[path] = true
		delete(w.pending, path)
	}
	w.mu.Unlock()

	for path, action := range due {
		go w.process(ctx, path, action)
	}
}

func (w *Watcher) process(ctx context.Context, path string, action Action) {
	defer func() {
		w.mu.Lock()
		delete(w.running, path)
		w.mu.Unlock()
	}()

	var err error
	switch action {
	case ActionDelete:
		err = w.handler.Delete(ctx, path)
	case ActionUpsert:
		err = w.handler.Upsert(ctx, path)
	}
	if err != nil {
		log.Printf("watch: %v failed for %s: %v", actionName(action), path, err)
	}
}

func actionName(a Action) string {
	if a == ActionDelete {
		return "delete"
	}
	return "upsert"
}

// shouldIgnore reports whether path matches any ignore pattern, evaluated
// root-relative and slash-normalized.
func (w *Watcher) shouldIgnore(path string) bool {
	relPath, err := filepath.Rel(w.rootDir, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	if strings.HasPrefix(relPath, ".git/") || relPath == ".git" {
		return true
	}

	for _, pattern := range w.ignorePatterns {
		if pattern.Match(relPath) || pattern.Match(relPath+"/**") {
			return true
		}
	}
	return false
}

// addDirRecursive registers rootPath and every non-ignored subdirectory with
// fsnotify, bounded by maxDepth and maxDirectories.
func (w *Watcher) addDirRecursive(rootPath string, depth int) error {
	if depth > w.maxDepth {
		return nil
	}
	if w.shouldIgnore(rootPath) {
		return nil
	}

	w.dirMu.Lock()
	if w.dirCount >= w.maxDirectories {
		w.dirMu.Unlock()
		return fmt.Errorf("directory limit reached: %d directories already watched", w.maxDirectories)
	}
	w.dirCount++
	w.dirMu.Unlock()

	if err := w.fsWatcher.Add(rootPath); err != nil {
		w.dirMu.Lock()
		w.dirCount--
		w.dirMu.Unlock()
		return fmt.Errorf("watch directory %s: %w", rootPath, err)
	}

	entries, err := os.ReadDir(rootPath)
	if err != nil {
		return nil // directory may have been removed between Stat and ReadDir; not fatal
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		subPath := filepath.Join(rootPath, entry.Name())
		if err := w.addDirRecursive(subPath, depth+1); err != nil {
			log.Printf("watch: %v", err)
		}
	}
	return nil
}
