package validate

import (
	"go/parser"
	"go/scanner"
	"go/token"

	"github.com/basalt-dev/sourcelens/internal/chunk"
	"github.com/basalt-dev/sourcelens/internal/langextract"
)

// checkSyntax parses content with the language-appropriate parser and
// reports (valid, issues). Go uses go/parser directly, as the teacher's own
// packages do throughout internal/indexer; every other language routes
// through the same tree-sitter grammars the Chunker and Code Graph use,
// per SPEC_FULL §6.13. An extension with no registered grammar is assumed
// valid — syntax checking is skipped, not failed.
func checkSyntax(relPath, content string) (bool, []Issue) {
	lang := chunk.DetectLanguage(relPath)

	if lang == "go" {
		return checkGoSyntax(content)
	}

	if !chunk.IsLanguageAware(lang) {
		return true, nil
	}

	hasError, err := langextract.HasSyntaxError(lang, []byte(content))
	if err != nil || !hasError {
		return err == nil, nil
	}
	return false, []Issue{{
		Severity: SeverityError,
		Line:     1,
		Message:  "syntax error",
		Rule:     "syntax",
	}}
}

func checkGoSyntax(content string) (bool, []Issue) {
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "", content, parser.AllErrors)
	if err == nil {
		return true, nil
	}

	var issues []Issue
	if list, ok := err.(scanner.ErrorList); ok {
		for _, e := range list {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Line:     e.Pos.Line,
				Column:   e.Pos.Column,
				Message:  e.Msg,
				Rule:     "syntax",
			})
		}
	} else {
		issues = append(issues, Issue{Severity: SeverityError, Line: 1, Message: err.Error(), Rule: "syntax"})
	}
	return false, issues
}
