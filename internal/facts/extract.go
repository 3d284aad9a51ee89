package facts

import "regexp"

// Extractor pulls Facts out of assistant messages via the same regex
// vocabulary as the conversation-summarizer's sibling tool: file creations,
// function/class additions, error fixes, and a loose "decided/chose/using"
// decision heuristic. Deliberately dumb pattern matching, not NLP — false
// negatives are fine, the Context Assembler treats facts as a bonus, not a
// source of truth.
type Extractor struct {
	filePattern     *regexp.Regexp
	functionPattern *regexp.Regexp
	classPattern    *regexp.Regexp
	errorPattern    *regexp.Regexp
	decisionHint    *regexp.Regexp
	decisionPattern *regexp.Regexp
}

func NewExtractor() *Extractor {
	return &Extractor{
		filePattern:     regexp.MustCompile(`(?i)(?:created|added|modified|wrote)\s+(?:files?)?\s*:?\s*([^\s,]+\.\w+)`),
		functionPattern: regexp.MustCompile(`(?i)(?:added|created|implemented)\s+(?:function|method)\s+(\w+)`),
		classPattern:    regexp.MustCompile(`(?i)(?:added|created|implemented)\s+class\s+(\w+)`),
		errorPattern:    regexp.MustCompile(`(?i)(?:fixed|resolved|solved)\s+(?:error|bug|issue)\s*:?\s*(.+)`),
		decisionHint:    regexp.MustCompile(`(?i)(?:decided|chose|selected|using)\s+`),
		decisionPattern: regexp.MustCompile(`(?i)(?:decided|chose|selected|using)\s+(.+)`),
	}
}

// Message is the minimal shape Extract needs — deliberately not llm.Message,
// so this package has no dependency on internal/llm.
type Message struct {
	Role    string
	Content string
}

// Extract scans assistant messages (actions are reported by the assistant,
// not the user) for facts.
func (e *Extractor) Extract(messages []Message) []Fact {
	var out []Fact
	for _, m := range messages {
		if m.Role != "assistant" {
			continue
		}
		out = append(out, e.extractFromMessage(m.Content)...)
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (e *Extractor) extractFromMessage(content string) []Fact {
	var facts []Fact

	for _, m := range e.filePattern.FindAllStringSubmatch(content, -1) {
		facts = append(facts, Fact{
			Type:     TypeFileCreated,
			Content:  "File created: " + m[1],
			Metadata: map[string]string{"file_path": m[1]},
		})
	}

	for _, m := range e.functionPattern.FindAllStringSubmatch(content, -1) {
		facts = append(facts, Fact{
			Type:     TypeFunctionAdded,
			Content:  "Function added: " + m[1],
			Metadata: map[string]string{"function_name": m[1]},
		})
	}

	for _, m := range e.classPattern.FindAllStringSubmatch(content, -1) {
		facts = append(facts, Fact{
			Type:     TypeClassAdded,
			Content:  "Class added: " + m[1],
			Metadata: map[string]string{"class_name": m[1]},
		})
	}

	for _, m := range e.errorPattern.FindAllStringSubmatch(content, -1) {
		desc := truncateRunes(m[1], 100)
		facts = append(facts, Fact{
			Type:     TypeErrorFixed,
			Content:  "Error fixed: " + desc,
			Metadata: map[string]string{"error_description": truncateRunes(m[1], 200)},
		})
	}

	if e.decisionHint.MatchString(content) {
		if m := e.decisionPattern.FindStringSubmatch(content); m != nil {
			decision := truncateRunes(m[1], 200)
			facts = append(facts, Fact{
				Type:     TypeDecisionMade,
				Content:  "Decision: " + decision,
				Metadata: map[string]string{"decision": decision},
			})
		}
	}

	return facts
}

// Dedup drops facts from fresh whose Content already exists in seen,
// mutating nothing — returns the filtered slice plus the updated seen set.
func Dedup(seen map[string]struct{}, fresh []Fact) ([]Fact, map[string]struct{}) {
	if seen == nil {
		seen = make(map[string]struct{})
	}
	var out []Fact
	for _, f := range fresh {
		if _, ok := seen[f.Content]; ok {
			continue
		}
		seen[f.Content] = struct{}{}
		out = append(out, f)
	}
	return out, seen
}
