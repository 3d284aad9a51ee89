package diff

import (
	"os"

	"github.com/basalt-dev/sourcelens/internal/corerr"
)

// ContentValidator is implemented by internal/validate.Service. It is kept
// as a local interface here, rather than importing that package directly,
// so the diff engine has no hard dependency on the (optional) deep
// validation step — callers that want it pass a concrete Service in.
type ContentValidator interface {
	ValidateFile(relPath, content string) (valid bool, errorIssues []string, err error)
}

// ValidateResult is the outcome of Validate.
type ValidateResult struct {
	Valid  bool
	Reason string
}

// Validate checks that a parsed diff can be applied safely: every non-create
// file diff's target must exist, and every hunk's start lines must be
// within range. If deep is non-nil, the diff is additionally dry-applied
// and the resulting content is run through deep.ValidateFile; any
// error-severity issue invalidates the diff (warnings do not block).
func (e *Engine) Validate(files []FileDiff, deep ContentValidator) ValidateResult {
	if len(files) == 0 {
		return ValidateResult{Valid: false, Reason: "no valid diff found"}
	}

	for _, f := range files {
		path := e.resolve(f.TargetPath())

		var lineCount int
		if !f.Creates() {
			data, err := os.ReadFile(path)
			if err != nil {
				return ValidateResult{Valid: false, Reason: "file does not exist: " + path}
			}
			lineCount = len(splitLines(string(data)))
		}

		for _, h := range f.Hunks {
			oldStartOK := h.OldStart >= 1 || (h.OldStart == 0 && h.OldCount == 0)
			if !oldStartOK || h.NewStart < 1 {
				return ValidateResult{Valid: false, Reason: "invalid hunk start line"}
			}
			if !f.Creates() && h.OldStart > lineCount+1 {
				return ValidateResult{Valid: false, Reason: "hunk start line exceeds file length"}
			}
		}

		if deep != nil {
			content, err := e.contentAfter(f)
			if err != nil {
				continue // deep validation is best-effort; a dry-apply failure here is reported by Apply itself
			}
			valid, issues, err := deep.ValidateFile(f.TargetPath(), content)
			if err != nil {
				continue
			}
			if !valid && len(issues) > 0 {
				return ValidateResult{Valid: false, Reason: issues[0]}
			}
		}
	}

	return ValidateResult{Valid: true}
}

// contentAfter dry-applies a single file's hunks and returns the resulting
// content without touching disk, for deep validation.
func (e *Engine) contentAfter(f FileDiff) (string, error) {
	path := e.resolve(f.TargetPath())

	var original []string
	if !f.Creates() {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", corerr.Wrap(corerr.NotFound, "target file not found", err)
		}
		original = splitLines(string(data))
	}

	newLines, err := applyHunks(original, f.Hunks)
	if err != nil {
		return "", err
	}

	content := ""
	for _, l := range newLines {
		content += l
	}
	return content, nil
}
