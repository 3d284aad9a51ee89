// Package chunk turns source files into the semantic units the rest of the
// pipeline indexes and retrieves: one chunk per top-level symbol for
// language-aware files, one block per section for documentation, and a
// sliding line window for everything else.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Type identifies what kind of unit a Chunk represents.
type Type string

const (
	TypeImports  Type = "imports"
	TypeClass    Type = "class"
	TypeFunction Type = "function"
	TypeMethod   Type = "method"
	TypeBlock    Type = "block"
)

// Chunk is the atomic unit of retrieval.
type Chunk struct {
	ID   string
	File string // workspace-relative path
	Language  string
	Type      Type
	StartLine int // 1-based, inclusive
	EndLine   int // 1-based, inclusive

	SymbolName   string // optional
	ParentSymbol string // optional, e.g. enclosing class

	Content string // verbatim source slice

	// Doc marks chunks produced by the documentation chunker rather than the
	// language-aware or fallback code chunkers.
	Doc bool
}

// ComputeID derives the stable chunk id from (file_path, start_line, end_line, symbol_name).
func ComputeID(file string, startLine, endLine int, symbolName string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d\x00%s", file, startLine, endLine, symbolName)
	return hex.EncodeToString(h.Sum(nil))
}

// WithID returns c with ID populated from its current fields.
func (c Chunk) WithID() Chunk {
	c.ID = ComputeID(c.File, c.StartLine, c.EndLine, c.SymbolName)
	return c
}

// FormatForEmbedding renders the text actually sent to the embedding
// provider: "{chunk_type}: {symbol_name}\nin {parent_symbol}\nfile:
// {file_path}\n{content}", omitting optional lines when absent.
func (c Chunk) FormatForEmbedding() string {
	s := string(c.Type)
	if c.SymbolName != "" {
		s += ": " + c.SymbolName
	}
	if c.ParentSymbol != "" {
		s += "\nin " + c.ParentSymbol
	}
	s += "\nfile: " + c.File
	s += "\n" + c.Content
	return s
}
