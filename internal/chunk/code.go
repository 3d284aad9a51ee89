package chunk

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/basalt-dev/sourcelens/internal/langextract"
	"github.com/basalt-dev/sourcelens/internal/langextract/symbol"
)

// chunkGoFile emits one chunk per top-level type, function, and method plus
// one imports chunk, grounded on the teacher's
// internal/indexer/parser.go::parseGoFile two-pass go/ast walk. Unlike the
// teacher, which stored a signature-only Definition alongside a separate
// SymbolInfo, each chunk here carries the verbatim source slice for its full
// line range directly, since the Chunk contract requires exact source text.
func chunkGoFile(relPath string, source []byte) ([]Chunk, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, relPath, source, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(source), "\n")
	var chunks []Chunk

	if len(file.Imports) > 0 {
		first := fset.Position(file.Imports[0].Pos()).Line
		last := fset.Position(file.Imports[len(file.Imports)-1].End()).Line
		chunks = append(chunks, Chunk{
			File:      relPath,
			Language:  "go",
			Type:      TypeImports,
			StartLine: first,
			EndLine:   last,
			Content:   extractLines(lines, first, last),
		})
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch decl := n.(type) {
		case *ast.GenDecl:
			if decl.Tok != token.TYPE {
				return true
			}
			for _, spec := range decl.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				start := fset.Position(ts.Pos()).Line
				end := fset.Position(ts.End()).Line
				chunks = append(chunks, Chunk{
					File:       relPath,
					Language:   "go",
					Type:       TypeClass,
					StartLine:  start,
					EndLine:    end,
					SymbolName: ts.Name.Name,
					Content:    extractLines(lines, start, end),
				})
			}
		case *ast.FuncDecl:
			start := fset.Position(decl.Pos()).Line
			end := fset.Position(decl.End()).Line
			ctype := TypeFunction
			var parent string
			if decl.Recv != nil && len(decl.Recv.List) > 0 {
				ctype = TypeMethod
				parent = receiverTypeName(decl.Recv.List[0].Type)
			}
			chunks = append(chunks, Chunk{
				File:         relPath,
				Language:     "go",
				Type:         ctype,
				StartLine:    start,
				EndLine:      end,
				SymbolName:   decl.Name.Name,
				ParentSymbol: parent,
				Content:      extractLines(lines, start, end),
			})
		}
		return true
	})

	return chunks, nil
}

// receiverTypeName strips pointer/generic wrapping to find the receiver's bare type name.
func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

// chunkWithLangExtract emits one chunk per top-level/class-nested symbol for
// the eight tree-sitter-backed languages, using internal/langextract for
// symbol discovery and a line-range containment check (rather than
// per-parser bookkeeping) to assign parent_symbol: a function/method whose
// [start,end] falls inside a type's [start,end] is parented to that type.
func chunkWithLangExtract(ctx context.Context, relPath, absPath, lang string, source []byte) ([]Chunk, error) {
	ext, err := langextract.Parse(ctx, lang, absPath)
	if err != nil || ext == nil {
		return nil, err
	}

	lines := strings.Split(string(source), "\n")
	var chunks []Chunk

	if start, end, ok := importSpan(lang, lines); ok {
		chunks = append(chunks, Chunk{
			File:      relPath,
			Language:  lang,
			Type:      TypeImports,
			StartLine: start,
			EndLine:   end,
			Content:   extractLines(lines, start, end),
		})
	}

	for _, t := range ext.Symbols.Types {
		chunks = append(chunks, Chunk{
			File:       relPath,
			Language:   lang,
			Type:       TypeClass,
			StartLine:  t.StartLine,
			EndLine:    t.EndLine,
			SymbolName: t.Name,
			Content:    extractLines(lines, t.StartLine, t.EndLine),
		})
	}

	for _, f := range ext.Symbols.Functions {
		ctype := TypeFunction
		parent := enclosingType(ext.Symbols.Types, f)
		if parent != "" {
			ctype = TypeMethod
		}
		chunks = append(chunks, Chunk{
			File:         relPath,
			Language:     lang,
			Type:         ctype,
			StartLine:    f.StartLine,
			EndLine:      f.EndLine,
			SymbolName:   f.Name,
			ParentSymbol: parent,
			Content:      extractLines(lines, f.StartLine, f.EndLine),
		})
	}

	return chunks, nil
}

// enclosingType returns the name of the first type whose line range strictly
// contains fn's range, or "" if fn is not nested in any extracted type.
func enclosingType(types []symbol.Info, fn symbol.Info) string {
	for _, t := range types {
		if t.StartLine <= fn.StartLine && fn.EndLine <= t.EndLine && t.StartLine != fn.StartLine {
			return t.Name
		}
	}
	return ""
}

// extractLines returns the 1-based inclusive [start,end] slice of lines
// joined back into source text.
func extractLines(lines []string, start, end int) string {
	if start < 1 || end < 1 || start > len(lines) {
		return ""
	}
	s := start - 1
	e := end
	if e > len(lines) {
		e = len(lines)
	}
	return strings.Join(lines[s:e], "\n")
}
