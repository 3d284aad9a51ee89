package retriever

import (
	"regexp"
	"strings"
)

// wordPattern extracts "words" the same way the query-parsing step does
// keyword extraction: any run of word characters, case-folded by the caller.
var wordPattern = regexp.MustCompile(`\b\w+\b`)

// stopWords are dropped from extracted query keywords before hybrid scoring.
// This exact 34-word set (not a stemmed or locale-aware list) is what the
// keyword-hit boost in the hybrid stage is computed against.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "have": true, "has": true, "had": true, "do": true,
	"does": true, "did": true, "will": true, "would": true, "should": true,
	"could": true, "may": true, "might": true, "must": true, "can": true,
}

// extractKeywords lower-cases query, splits it into words, and drops stop
// words, returning the deduplicated set used to score keyword hits.
func extractKeywords(query string) []string {
	words := extractWords(query)
	seen := make(map[string]bool, len(words))
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}

// extractWords lower-cases query and splits it into a deduplicated word set,
// keeping stop words — used by the re-ranker's word-overlap scoring, which
// (unlike keyword extraction) never filters them.
func extractWords(query string) []string {
	matches := wordPattern.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]bool, len(matches))
	words := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		words = append(words, m)
	}
	return words
}
