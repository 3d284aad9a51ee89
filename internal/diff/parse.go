package diff

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/basalt-dev/sourcelens/internal/corerr"
)

var hunkHeaderPattern = regexp.MustCompile(`^@@\s+-(\d+)(?:,(\d+))?\s+\+(\d+)(?:,(\d+))?\s+@@`)

// Parse parses a unified diff, possibly spanning multiple files, into a
// slice of FileDiff. Missing hunk counts default to 1, per the `@@
// -os,oc +ns,nc @@` grammar.
func Parse(text string) ([]FileDiff, error) {
	var files []FileDiff
	var current *FileDiff
	var currentHunk *Hunk

	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		switch {
		case strings.HasPrefix(line, "---"):
			if current != nil {
				files = append(files, *current)
			}
			oldPath := extractPath(line)
			newPath := ""
			if i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++") {
				newPath = extractPath(lines[i+1])
				i++
			}
			current = &FileDiff{OldPath: oldPath, NewPath: newPath}
			currentHunk = nil

		case strings.HasPrefix(line, "@@"):
			if current == nil {
				return nil, corerr.New(corerr.InvalidInput, "hunk header before any file header")
			}
			h, ok := parseHunkHeader(line)
			if !ok {
				return nil, corerr.New(corerr.InvalidInput, "malformed hunk header: "+line)
			}
			current.Hunks = append(current.Hunks, h)
			currentHunk = &current.Hunks[len(current.Hunks)-1]

		case currentHunk != nil && len(line) > 0 && (line[0] == '+' || line[0] == '-' || line[0] == ' '):
			op := Keep
			switch line[0] {
			case '+':
				op = Add
			case '-':
				op = Remove
			}
			currentHunk.Lines = append(currentHunk.Lines, Line{Op: op, Content: line[1:]})
		}
	}

	if current != nil {
		files = append(files, *current)
	}

	if len(files) == 0 {
		return nil, corerr.New(corerr.InvalidInput, "no valid diff found")
	}
	return files, nil
}

func parseHunkHeader(header string) (Hunk, bool) {
	m := hunkHeaderPattern.FindStringSubmatch(header)
	if m == nil {
		return Hunk{}, false
	}
	return Hunk{
		OldStart: mustAtoi(m[1]),
		OldCount: atoiOrDefault(m[2], 1),
		NewStart: mustAtoi(m[3]),
		NewCount: atoiOrDefault(m[4], 1),
	}, true
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoiOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	return mustAtoi(s)
}

// extractPath strips the "--- " / "+++ " marker and the leading a/ or b/
// path component unified diffs conventionally add.
func extractPath(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	path := fields[1]
	if path == "/dev/null" {
		return ""
	}
	if idx := strings.Index(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
