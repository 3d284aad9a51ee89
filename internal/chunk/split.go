package chunk

import "strings"

// DefaultMaxTokens is the conservative per-input embedding budget (spec:
// 8,000 tokens against an 8,192-token model).
const DefaultMaxTokens = 8000

// charsPerToken is the rough estimator used throughout this package: 1
// token ≈ 4 characters.
const charsPerToken = 4

// splitOversize post-processes chunks so that every chunk's formatted
// embedding input estimates at or under maxTokens. Oversize chunks are cut
// into contiguous sub-chunks by line count, preserving
// (file_path, language, chunk_type, parent_symbol); only the first
// sub-chunk keeps symbol_name, matching spec's oversize-splitting rule.
func splitOversize(c Chunk, maxTokens int) []Chunk {
	if estimateTokens(c.FormatForEmbedding()) <= maxTokens {
		return []Chunk{c.WithID()}
	}

	lines := strings.Split(c.Content, "\n")
	if len(lines) <= 1 {
		return []Chunk{c.WithID()}
	}

	overhead := estimateTokens(c.FormatForEmbedding()) - estimateTokens(c.Content)
	budgetChars := (maxTokens - overhead) * charsPerToken
	if budgetChars <= 0 {
		budgetChars = maxTokens * charsPerToken
	}

	var out []Chunk
	var batch []string
	batchChars := 0
	batchStart := c.StartLine
	first := true

	flush := func(endLine int) {
		if len(batch) == 0 {
			return
		}
		sub := Chunk{
			File:         c.File,
			Language:     c.Language,
			Type:         c.Type,
			StartLine:    batchStart,
			EndLine:      endLine,
			ParentSymbol: c.ParentSymbol,
			Content:      strings.Join(batch, "\n"),
			Doc:          c.Doc,
		}
		if first {
			sub.SymbolName = c.SymbolName
			first = false
		}
		out = append(out, sub.WithID())
		batch = nil
		batchChars = 0
	}

	for i, line := range lines {
		lineNum := c.StartLine + i
		if batchChars > 0 && batchChars+len(line)+1 > budgetChars {
			flush(lineNum - 1)
			batchStart = lineNum
		}
		batch = append(batch, line)
		batchChars += len(line) + 1
	}
	flush(c.StartLine + len(lines) - 1)

	return out
}
