package chunk

import (
	"path/filepath"
	"strings"
)

// DetectLanguage maps a file extension to a language tag, grounded on the
// teacher's internal/indexer/parser.go::detectLanguage, extended with the
// documentation extensions routed to the doc chunker.
func DetectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".php":
		return "php"
	case ".rb":
		return "ruby"
	case ".java":
		return "java"
	case ".md", ".markdown":
		return "markdown"
	case ".rst":
		return "rst"
	default:
		return "unknown"
	}
}

// IsLanguageAware reports whether path has a dedicated symbol-level chunker
// (AST for Go, tree-sitter for the rest), as opposed to the fallback
// line-window path.
func IsLanguageAware(lang string) bool {
	switch lang {
	case "go", "typescript", "javascript", "python", "rust", "c", "cpp", "java", "php", "ruby":
		return true
	default:
		return false
	}
}

// IsDocumentation reports whether path routes to the documentation chunker.
func IsDocumentation(lang string) bool {
	return lang == "markdown" || lang == "rst"
}
