package chunk

import (
	"regexp"
	"strings"
)

// docHeaderPattern and docCodeFence ground the documentation chunker on the
// teacher's internal/indexer/chunker.go: split by level-2 headers, never
// split inside a fenced code block, fall back to paragraph- then
// sentence-level splitting for oversize sections.
var (
	docHeaderPattern = regexp.MustCompile(`^##\s+`)
	docCodeFence     = regexp.MustCompile("^```")
	docSentenceSplit = regexp.MustCompile(`[.!?]+\s+`)
)

// docSection is a contiguous run of lines starting at a level-2 header (or
// the start of the file).
type docSection struct {
	startLine int
	lines     []string
}

// docParagraph is a blank-line- or code-fence-delimited unit within a section.
type docParagraph struct {
	text      string
	startLine int
	endLine   int
}

// chunkDocument splits a markdown or reStructuredText file into Doc-tagged
// block chunks, each within targetTokens (estimated at ~4 chars/token).
func chunkDocument(relPath, lang string, source []byte, targetTokens int) []Chunk {
	content := string(source)
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	var chunks []Chunk
	for _, sec := range splitByHeaders(lines) {
		chunks = append(chunks, chunkSection(relPath, lang, sec, targetTokens)...)
	}
	return chunks
}

func splitByHeaders(lines []string) []docSection {
	var sections []docSection
	cur := docSection{startLine: 1}

	for i, line := range lines {
		if docHeaderPattern.MatchString(line) && i > 0 {
			if len(cur.lines) > 0 {
				sections = append(sections, cur)
			}
			cur = docSection{startLine: i + 1, lines: []string{line}}
		} else {
			cur.lines = append(cur.lines, line)
		}
	}
	if len(cur.lines) > 0 {
		sections = append(sections, cur)
	}
	return sections
}

func chunkSection(relPath, lang string, sec docSection, targetTokens int) []Chunk {
	text := strings.Join(sec.lines, "\n")
	if estimateTokens(text) <= targetTokens {
		return []Chunk{{
			File:      relPath,
			Language:  lang,
			Type:      TypeBlock,
			StartLine: sec.startLine,
			EndLine:   sec.startLine + len(sec.lines) - 1,
			Content:   strings.TrimSpace(text),
			Doc:       true,
		}}
	}
	return chunkParagraphs(relPath, lang, extractParagraphs(sec.lines, sec.startLine), targetTokens)
}

// extractParagraphs splits lines into blank-line-delimited paragraphs,
// keeping fenced code blocks intact as a single paragraph.
func extractParagraphs(lines []string, startLine int) []docParagraph {
	var paras []docParagraph
	var cur []string
	curStart := startLine
	inFence := false

	flush := func(endLine int) {
		if len(cur) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(cur, "\n"))
		if text != "" {
			paras = append(paras, docParagraph{text: text, startLine: curStart, endLine: endLine})
		}
		cur = nil
	}

	for i, line := range lines {
		lineNum := startLine + i
		if docCodeFence.MatchString(line) {
			if !inFence {
				flush(lineNum - 1)
				inFence = true
				curStart = lineNum
				cur = append(cur, line)
			} else {
				cur = append(cur, line)
				flush(lineNum)
				inFence = false
				curStart = lineNum + 1
			}
			continue
		}
		if inFence {
			cur = append(cur, line)
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush(lineNum - 1)
			curStart = lineNum + 1
		} else {
			cur = append(cur, line)
		}
	}
	flush(startLine + len(lines) - 1)
	return paras
}

func chunkParagraphs(relPath, lang string, paras []docParagraph, targetTokens int) []Chunk {
	var chunks []Chunk
	var batch []docParagraph
	size := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}
		chunks = append(chunks, Chunk{
			File:      relPath,
			Language:  lang,
			Type:      TypeBlock,
			StartLine: batch[0].startLine,
			EndLine:   batch[len(batch)-1].endLine,
			Content:   strings.Join(texts, "\n\n"),
			Doc:       true,
		})
		batch = nil
		size = 0
	}

	for _, p := range paras {
		pSize := estimateTokens(p.text)
		if size > 0 && size+pSize > targetTokens {
			flush()
		}
		if pSize > targetTokens {
			chunks = append(chunks, chunkSentences(relPath, lang, p, targetTokens)...)
			continue
		}
		batch = append(batch, p)
		size += pSize
	}
	flush()
	return chunks
}

func chunkSentences(relPath, lang string, p docParagraph, targetTokens int) []Chunk {
	sentences := docSentenceSplit.Split(p.text, -1)
	var chunks []Chunk
	var batch []string
	size := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			File:      relPath,
			Language:  lang,
			Type:      TypeBlock,
			StartLine: p.startLine,
			EndLine:   p.endLine,
			Content:   strings.Join(batch, " "),
			Doc:       true,
		})
		batch = nil
		size = 0
	}

	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		sSize := estimateTokens(s)
		if size > 0 && size+sSize > targetTokens {
			flush()
		}
		batch = append(batch, s)
		size += sSize
	}
	flush()
	return chunks
}

func estimateTokens(text string) int {
	return len(text) / 4
}
