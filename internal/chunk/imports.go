package chunk

import "regexp"

// importPatterns maps a language to the regex that recognizes one of its
// import/include/use statement lines. Used only to compute the line span of
// the synthetic "imports" chunk; the per-language extractors already count
// imports for internal/langextract.symbol.Table.ImportsCount.
var importPatterns = map[string]*regexp.Regexp{
	"go":         regexp.MustCompile(`^\s*(import\s|\t?"[^"]+"\s*$|\t?\w+\s+"[^"]+"\s*$)`),
	"python":     regexp.MustCompile(`^\s*(import\s|from\s+\S+\s+import\s)`),
	"typescript": regexp.MustCompile(`^\s*(import\s|export\s+\*\s+from\s)`),
	"javascript": regexp.MustCompile(`^\s*(import\s|const\s+\S+\s*=\s*require\()`),
	"rust":       regexp.MustCompile(`^\s*use\s`),
	"c":          regexp.MustCompile(`^\s*#include\s`),
	"cpp":        regexp.MustCompile(`^\s*#include\s`),
	"java":       regexp.MustCompile(`^\s*import\s`),
	"php":        regexp.MustCompile(`^\s*(use\s|require|include)`),
	"ruby":       regexp.MustCompile(`^\s*require(_relative)?\s`),
}

// importSpan scans lines for the language's import-statement pattern and
// returns the 1-based [start, end] line range covering every match, or
// ok=false if none are found.
func importSpan(lang string, lines []string) (start, end int, ok bool) {
	pattern := importPatterns[lang]
	if pattern == nil {
		return 0, 0, false
	}
	for i, line := range lines {
		if pattern.MatchString(line) {
			if !ok {
				start = i + 1
				ok = true
			}
			end = i + 1
		}
	}
	return start, end, ok
}
