package chunk

import "strings"

// chunkFallback slides a chunkSize-line window with overlap lines of overlap
// over source, used whenever a file's language has no dedicated parser or
// that parser fails. Empty windows are dropped.
func chunkFallback(relPath, lang string, source []byte, chunkSize, overlap int) []Chunk {
	lines := strings.Split(string(source), "\n")
	if len(lines) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 100
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var chunks []Chunk
	step := chunkSize - overlap
	for start := 0; start < len(lines); start += step {
		end := start + chunkSize
		if end > len(lines) {
			end = len(lines)
		}
		window := lines[start:end]
		text := strings.TrimRight(strings.Join(window, "\n"), "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, Chunk{
				File:      relPath,
				Language:  lang,
				Type:      TypeBlock,
				StartLine: start + 1,
				EndLine:   end,
				Content:   text,
			})
		}
		if end == len(lines) {
			break
		}
	}
	return chunks
}
