package langextract

import (
	"context"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// languageParser is the common interface every per-language parser in this
// package satisfies.
type languageParser interface {
	ParseFile(ctx context.Context, filePath string) (*Extraction, error)
}

// Parse dispatches to the tree-sitter parser for lang and parses the file at
// absPath. Returns (nil, nil) for a language with no registered parser (the
// caller falls back to line-window chunking).
func Parse(ctx context.Context, lang, absPath string) (*Extraction, error) {
	var p languageParser
	switch lang {
	case "python":
		p = NewPythonParser()
	case "typescript":
		p = NewTypeScriptParser()
	case "javascript":
		p = NewJavaScriptParser()
	case "rust":
		p = NewRustParser()
	case "c", "cpp":
		p = NewCParser()
	case "java":
		p = NewJavaParser()
	case "php":
		p = NewPhpParser()
	case "ruby":
		p = NewRubyParser()
	default:
		return nil, nil
	}
	return p.ParseFile(ctx, absPath)
}

// LanguageFor returns the tree-sitter grammar backing lang, or nil if lang
// has no registered grammar. Exported for callers outside this package that
// need to walk a raw parse tree themselves, such as the code graph's
// call-site extraction.
func LanguageFor(lang string) *sitter.Language {
	return languageOf(lang)
}

// languageOf returns the tree-sitter grammar backing lang, or nil if lang
// has no registered grammar.
func languageOf(lang string) *sitter.Language {
	switch lang {
	case "python":
		return NewPythonParser().language
	case "typescript", "javascript":
		return NewTypeScriptParser().language
	case "rust":
		return NewRustParser().language
	case "c", "cpp":
		return NewCParser().language
	case "java":
		return NewJavaParser().language
	case "php":
		return NewPhpParser().language
	case "ruby":
		return NewRubyParser().language
	default:
		return nil
	}
}

// HasSyntaxError reports whether source fails to parse cleanly under lang's
// tree-sitter grammar, per tree-sitter's own ERROR-node convention: a
// successful parse of invalid input still yields a tree, with the broken
// region marked by an ERROR node rather than surfacing a Go error. Returns
// (false, nil) for a language with no registered grammar — syntax checking
// is skipped, not failed, the same way the Validator treats an unavailable
// external tool.
func HasSyntaxError(lang string, source []byte) (bool, error) {
	language := languageOf(lang)
	if language == nil {
		return false, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return true, nil
	}
	defer tree.Close()

	return tree.RootNode().HasError(), nil
}
