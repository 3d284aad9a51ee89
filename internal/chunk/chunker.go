package chunk

import (
	"context"
	"os"
)

// Options configures a Chunker.
type Options struct {
	// FallbackWindowLines and FallbackOverlapLines size the line-window
	// chunker used for files with no dedicated parser, or whose parser
	// fails.
	FallbackWindowLines  int
	FallbackOverlapLines int

	// DocTargetTokens sizes documentation sections before they're split
	// into paragraphs, then sentences.
	DocTargetTokens int

	// MaxTokens is the embedding-model per-input token ceiling enforced by
	// oversize splitting.
	MaxTokens int
}

// DefaultOptions returns the option set used when indexing a workspace with
// no explicit chunking configuration.
func DefaultOptions() Options {
	return Options{
		FallbackWindowLines:  100,
		FallbackOverlapLines: 20,
		DocTargetTokens:      500,
		MaxTokens:            DefaultMaxTokens,
	}
}

// Chunker splits a file's content into semantic chunks.
type Chunker struct {
	opts Options
}

// New creates a Chunker with the given options.
func New(opts Options) *Chunker {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.DocTargetTokens <= 0 {
		opts.DocTargetTokens = 500
	}
	if opts.FallbackWindowLines <= 0 {
		opts.FallbackWindowLines = 100
	}
	return &Chunker{opts: opts}
}

// ChunkFile produces chunks for the file at absPath (used for disk reads
// required by tree-sitter parsers), identified to the rest of the pipeline
// by relPath. source is the file's current content; pass nil to have it
// read from absPath.
func (c *Chunker) ChunkFile(ctx context.Context, relPath, absPath string, source []byte) ([]Chunk, error) {
	if source == nil {
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, err
		}
		source = data
	}

	lang := DetectLanguage(relPath)

	var raw []Chunk
	var err error

	switch {
	case IsDocumentation(lang):
		raw = chunkDocument(relPath, lang, source, c.opts.DocTargetTokens)
		return raw, nil // documentation chunks are pre-sized; no symbol-aware oversize splitting needed
	case lang == "go":
		raw, err = chunkGoFile(relPath, source)
	case IsLanguageAware(lang):
		raw, err = chunkWithLangExtract(ctx, relPath, absPath, lang, source)
	}

	if err != nil || raw == nil {
		raw = chunkFallback(relPath, lang, source, c.opts.FallbackWindowLines, c.opts.FallbackOverlapLines)
	}

	var out []Chunk
	for _, chunk := range raw {
		out = append(out, splitOversize(chunk, c.opts.MaxTokens)...)
	}
	return out, nil
}
