package validate

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/basalt-dev/sourcelens/internal/chunk"
)

// Service validates proposed file content before it is written to disk,
// grounded on original_source/tools/validation_service.py::ValidationService.
type Service struct {
	workspaceRoot string
	tools         *toolCache
}

// NewService creates a Service rooted at workspaceRoot.
func NewService(workspaceRoot string) *Service {
	return &Service{workspaceRoot: workspaceRoot, tools: newToolCache()}
}

// Validate runs the syntax check, then the type checker and linter
// appropriate to relPath's language when one is installed. Any
// error-severity issue makes the result invalid; warnings do not.
func (s *Service) Validate(ctx context.Context, relPath, content string) *Result {
	lang := chunk.DetectLanguage(relPath)
	ext := strings.ToLower(filepath.Ext(relPath))

	syntaxValid, issues := checkSyntax(relPath, content)

	var typeCheckPassed, linterPassed *bool
	if syntaxValid {
		if tc, tIssues := s.tools.typeCheck(ctx, lang, content); tc != nil {
			typeCheckPassed = tc
			issues = append(issues, tIssues...)
		}
		if lp, lIssues := s.tools.lint(ctx, lang, content, ext); lp != nil {
			linterPassed = lp
			issues = append(issues, lIssues...)
		}
	}

	hasError := false
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			hasError = true
			break
		}
	}

	return &Result{
		Valid:           syntaxValid && !hasError,
		SyntaxValid:     syntaxValid,
		TypeCheckPassed: typeCheckPassed,
		LinterPassed:    linterPassed,
		Issues:          issues,
	}
}

// ValidateFile adapts Validate to internal/diff.ContentValidator's simpler
// (valid, error-message-list) shape, so the Diff Engine's optional deep
// validation step can take a *Service directly.
func (s *Service) ValidateFile(relPath, content string) (bool, []string, error) {
	result := s.Validate(context.Background(), relPath, content)
	if result.Valid {
		return true, nil, nil
	}

	var messages []string
	for _, issue := range result.Issues {
		if issue.Severity == SeverityError {
			messages = append(messages, issue.Message)
		}
	}
	return false, messages, nil
}
