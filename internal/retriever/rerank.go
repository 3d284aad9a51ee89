package retriever

import (
	"sort"
	"strings"
)

// Re-rank weights for the four composite-score signals. Grounded on
// _rerank_results in the original retrieval module: semantic similarity
// dominates, symbol-name overlap matters more than raw content overlap, and
// file-path relevance is a small tie-breaking nudge.
const (
	weightSemantic   = 0.4
	weightSymbolName = 0.3
	weightContent    = 0.2
	weightFilePath   = 0.1
)

// rerank scores every result against query using the weighted composite and
// returns the top topK, sorted descending by RerankScore. Ties keep their
// relative input order (sort.SliceStable), matching a stable Python sort by
// score.
func rerank(query string, results []Result, topK int) []Result {
	queryWords := toWordSet(extractWords(query))

	for i := range results {
		results[i].RerankScore = rerankScore(&results[i], queryWords)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RerankScore > results[j].RerankScore
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func rerankScore(r *Result, queryWords map[string]bool) float64 {
	score := 0.0

	distance := r.Distance
	if distance == 0 {
		distance = 1.0
	}
	score += (1.0 - clamp01(distance)) * weightSemantic

	if r.SymbolName != "" {
		symbolWords := toWordSet(extractWords(r.SymbolName))
		score += wordOverlapRatio(queryWords, symbolWords) * weightSymbolName
	}

	contentWords := toWordSet(extractWords(r.Content))
	score += wordOverlapRatio(queryWords, contentWords) * weightContent

	filePathLower := strings.ToLower(r.FilePath)
	for word := range queryWords {
		if word != "" && strings.Contains(filePathLower, word) {
			score += weightFilePath
			break
		}
	}

	return score
}

// clamp01 matches min(distance, 1.0) from the original formula: distance is
// cosine distance in [0, 2], clamped to [0, 1] before inverting to similarity.
func clamp01(distance float64) float64 {
	if distance > 1.0 {
		return 1.0
	}
	if distance < 0 {
		return 0
	}
	return distance
}

func toWordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// wordOverlapRatio is |a ∩ b| / max(|a|, 1), matching the original's
// division by the query word count (never the candidate word count).
func wordOverlapRatio(queryWords, candidateWords map[string]bool) float64 {
	if len(queryWords) == 0 {
		return 0
	}
	overlap := 0
	for w := range queryWords {
		if candidateWords[w] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryWords))
}
