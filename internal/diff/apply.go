package diff

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/basalt-dev/sourcelens/internal/corerr"
)

// Engine applies diffs to files under a workspace root.
type Engine struct {
	workspaceRoot string
}

// New creates an Engine rooted at workspaceRoot. A relative TargetPath is
// resolved against this root; an absolute one is used as-is.
func New(workspaceRoot string) *Engine {
	return &Engine{workspaceRoot: workspaceRoot}
}

func (e *Engine) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.workspaceRoot, path)
}

// BuildPreview reports per-file addition/deletion/contextual counts without
// touching disk.
func BuildPreview(files []FileDiff) Preview {
	p := Preview{FilesAffected: len(files)}
	for _, f := range files {
		fp := FilePreview{File: f.TargetPath(), Hunks: len(f.Hunks)}
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				switch l.Op {
				case Add:
					fp.Changes.Additions++
				case Remove:
					fp.Changes.Deletions++
				case Keep:
					if strings.TrimSpace(l.Content) != "" {
						fp.Changes.Contextual++
					}
				}
			}
		}
		p.Files = append(p.Files, fp)
	}
	return p
}

// Apply applies a parsed diff to the workspace. It is atomic across every
// hunk of every file: each file's hunks are dry-applied in memory first,
// and nothing is written to disk unless every hunk in every file
// dry-applies cleanly.
func (e *Engine) Apply(files []FileDiff, dryRun bool) ApplyResult {
	result := ApplyResult{Success: true, DryRun: dryRun}

	type plan struct {
		path  string
		lines []string
	}
	plans := make([]plan, 0, len(files))

	for _, f := range files {
		path := e.resolve(f.TargetPath())

		var original []string
		if f.Creates() {
			if _, err := os.Stat(filepath.Dir(path)); err != nil {
				result.Success = false
				result.Files = append(result.Files, FileResult{
					File: path, Success: false,
					Error: corerr.New(corerr.InvalidInput, "parent directory does not exist: "+filepath.Dir(path)).Error(),
				})
				continue
			}
		} else {
			data, err := os.ReadFile(path)
			if err != nil {
				result.Success = false
				result.Files = append(result.Files, FileResult{
					File: path, Success: false,
					Error: corerr.Wrap(corerr.NotFound, "target file not found", err).Error(),
				})
				continue
			}
			original = splitLines(string(data))
		}

		newLines, err := applyHunks(original, f.Hunks)
		if err != nil {
			result.Success = false
			result.Files = append(result.Files, FileResult{File: path, Success: false, Error: err.Error()})
			continue
		}

		plans = append(plans, plan{path: path, lines: newLines})
		result.Files = append(result.Files, FileResult{File: path, Success: true, HunksApplied: len(f.Hunks)})
	}

	if !result.Success || dryRun {
		return result
	}

	for _, p := range plans {
		if err := os.WriteFile(p.path, []byte(strings.Join(p.lines, "")), 0o644); err != nil {
			result.Success = false
		}
	}
	return result
}

// applyHunks applies every hunk of a single file's diff to lines, using a
// running cumulative offset so each hunk's OldStart — always expressed
// against the original file's line numbers, per the unified diff format —
// is correctly relocated within the already-mutated buffer. This is the
// corrected behavior; the offset is never reset mid-file and accounts for
// every prior hunk's actual (not header-declared) length delta.
func applyHunks(lines []string, hunks []Hunk) ([]string, error) {
	result := append([]string(nil), lines...)
	offset := 0

	for _, h := range hunks {
		if h.OldStart < 1 && !(h.OldStart == 0 && h.OldCount == 0) {
			return nil, corerr.New(corerr.InvalidInput, "invalid hunk start line")
		}
		startIdx := h.OldStart - 1 + offset
		if startIdx < 0 {
			startIdx = 0
		}
		if startIdx > len(result) {
			return nil, corerr.New(corerr.Conflict, "hunk no longer applies: start line exceeds file length")
		}

		endIdx := startIdx + h.OldCount
		if endIdx > len(result) {
			endIdx = len(result)
		}

		var insert []string
		for _, l := range h.Lines {
			switch l.Op {
			case Add, Keep:
				insert = append(insert, ensureNewline(l.Content))
			}
		}

		merged := make([]string, 0, len(result)-(endIdx-startIdx)+len(insert))
		merged = append(merged, result[:startIdx]...)
		merged = append(merged, insert...)
		merged = append(merged, result[endIdx:]...)

		offset += len(insert) - (endIdx - startIdx)
		result = merged
	}

	return result, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	for {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:idx+1])
		s = s[idx+1:]
	}
	return lines
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
