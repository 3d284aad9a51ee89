// Package context assembles the message list sent to an LLM call: system
// prompt, retrieved codebase context, recalled facts, summarized-or-raw
// conversation history, and the new user message — trimmed to fit the
// model's context window.
package context

import (
	"context"
	"fmt"
	"strings"

	"github.com/basalt-dev/sourcelens/internal/facts"
	"github.com/basalt-dev/sourcelens/internal/llm"
	"github.com/basalt-dev/sourcelens/internal/summarize"
	"github.com/basalt-dev/sourcelens/internal/tokencount"
)

// Config mirrors ContextManager.__init__'s defaults: a small window for
// non-Claude models (sized for DeepSeek's 16K limit) and a large one for
// Claude (sized for its 200K limit), a summarization trigger at 75% of
// whichever window applies, and 8 verbatim-preserved recent turns.
type Config struct {
	MaxContextTokens       int
	MaxContextTokensClaude int
	SummarizationThreshold float64
	PreserveRecent         int
}

// DefaultConfig matches the Python original's constructor defaults.
func DefaultConfig() Config {
	return Config{
		MaxContextTokens:       10000,
		MaxContextTokensClaude: 150000,
		SummarizationThreshold: 0.75,
		PreserveRecent:         8,
	}
}

// responseHeadroomTokens is reserved out of the budget for the model's own
// reply during aggressive truncation, per _truncate_aggressively's "- 500".
const responseHeadroomTokens = 500

// summaryMarker matches the prefix SummarizeMessages stamps onto its
// summary message, used here only to report whether a summary was used.
const summaryMarker = "[Previous conversation summary]"

// maxRelevantFacts caps how many recalled facts are injected into context,
// per _format_facts_for_context's facts[:10].
const maxRelevantFacts = 10

// FactsSource is the subset of facts.Store the Assembler needs, so it can be
// driven by fakes in tests without standing up SQLite.
type FactsSource interface {
	GetRelevantFacts(ctx context.Context, sessionID, query string) ([]facts.Fact, error)
	SaveFacts(ctx context.Context, sessionID string, items []facts.Fact) error
}

// Assembler is the pure-computation counterpart to assemble_context: given
// its dependencies (token counter, summarizer, facts store) it has no other
// state and is safe for concurrent use.
type Assembler struct {
	cfg        Config
	counter    *tokencount.Counter
	summarizer *summarize.Summarizer
	facts      FactsSource
	extractor  *facts.Extractor
}

func NewAssembler(cfg Config, counter *tokencount.Counter, summarizer *summarize.Summarizer, factsSource FactsSource) *Assembler {
	return &Assembler{cfg: cfg, counter: counter, summarizer: summarizer, facts: factsSource, extractor: facts.NewExtractor()}
}

// countMessages adapts llm.Message to tokencount.Message and folds a
// tokenizer failure (unavailable only if the bundled cl100k_base vocabulary
// itself can't load) into a zero count rather than threading an error
// through every call site in this file.
func (a *Assembler) countMessages(messages []llm.Message, model string) int {
	converted := make([]tokencount.Message, len(messages))
	for i, m := range messages {
		converted[i] = tokencount.Message{Role: string(m.Role), Content: m.Content}
	}
	n, err := a.counter.CountMessages(converted, model)
	if err != nil {
		return 0
	}
	return n
}

// Result is assemble_context's return dict, typed.
type Result struct {
	Messages    []llm.Message
	TokenCount  int
	FactsCount  int
	SummaryUsed bool
}

// Assemble builds the message list for one LLM call.
func (a *Assembler) Assemble(ctx context.Context, userMessage string, history []llm.Message, ragContext, systemPrompt, model, sessionID string) Result {
	maxTokens := a.cfg.MaxContextTokens
	if strings.Contains(strings.ToLower(model), "claude") {
		maxTokens = a.cfg.MaxContextTokensClaude
	}
	threshold := int(float64(maxTokens) * a.cfg.SummarizationThreshold)

	var relevant []facts.Fact
	if sessionID != "" && a.facts != nil {
		relevant, _ = a.facts.GetRelevantFacts(ctx, sessionID, userMessage)
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}

	if ragContext != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: fmt.Sprintf("<codebase_context>\n%s\n</codebase_context>", ragContext),
		})
	}

	if len(relevant) > 0 {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: formatFacts(relevant)})
	}

	messages = append(messages, a.processHistory(ctx, history, model, threshold, sessionID)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})

	tokenCount := a.countMessages(messages, model)
	if tokenCount > maxTokens {
		messages = a.truncateAggressively(messages, maxTokens, model)
		tokenCount = a.countMessages(messages, model)
	}

	return Result{
		Messages:    messages,
		TokenCount:  tokenCount,
		FactsCount:  len(relevant),
		SummaryUsed: containsSummary(messages),
	}
}

func (a *Assembler) processHistory(ctx context.Context, history []llm.Message, model string, threshold int, sessionID string) []llm.Message {
	if len(history) == 0 {
		return nil
	}

	historyTokens := a.countMessages(history, model)
	if historyTokens < threshold {
		return history
	}

	summaryResult := a.summarizer.SummarizeMessages(ctx, history, summarize.DefaultMaxSummaryTokens, a.cfg.PreserveRecent)

	var result []llm.Message
	if summaryResult.SummaryMessage != nil {
		result = append(result, *summaryResult.SummaryMessage)
	}
	result = append(result, summaryResult.RecentMessages...)

	if sessionID != "" && a.facts != nil {
		newFacts := a.extractor.Extract(toFactsMessages(history))
		if len(newFacts) > 0 {
			_ = a.facts.SaveFacts(ctx, sessionID, newFacts)
		}
	}

	return result
}

// truncateAggressively keeps every system message, fills the remaining
// budget from the most recent non-system message backward (stopping at the
// first one that doesn't fit, even if an older/smaller one would), and
// always keeps the final message. Ported from _truncate_aggressively.
func (a *Assembler) truncateAggressively(messages []llm.Message, maxTokens int, model string) []llm.Message {
	var systemMessages, otherMessages []llm.Message
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			systemMessages = append(systemMessages, m)
		} else {
			otherMessages = append(otherMessages, m)
		}
	}

	var lastMessage *llm.Message
	if len(otherMessages) > 0 {
		last := otherMessages[len(otherMessages)-1]
		lastMessage = &last
		otherMessages = otherMessages[:len(otherMessages)-1]
	}

	systemTokens := a.countMessages(systemMessages, model)
	remaining := maxTokens - systemTokens - responseHeadroomTokens

	var kept []llm.Message
	current := 0
	for i := len(otherMessages) - 1; i >= 0; i-- {
		msg := otherMessages[i]
		msgTokens := a.countMessages([]llm.Message{msg}, model)
		if current+msgTokens > remaining {
			break
		}
		kept = append([]llm.Message{msg}, kept...)
		current += msgTokens
	}

	result := append(append([]llm.Message{}, systemMessages...), kept...)
	if lastMessage != nil {
		result = append(result, *lastMessage)
	}
	return result
}

func formatFacts(items []facts.Fact) string {
	var b strings.Builder
	b.WriteString("[Key Facts from Previous Conversations]:")
	n := len(items)
	if n > maxRelevantFacts {
		n = maxRelevantFacts
	}
	for _, f := range items[:n] {
		b.WriteString("\n- ")
		b.WriteString(f.Content)
	}
	return b.String()
}

func containsSummary(messages []llm.Message) bool {
	for _, m := range messages {
		if strings.Contains(m.Content, summaryMarker) {
			return true
		}
	}
	return false
}

func toFactsMessages(messages []llm.Message) []facts.Message {
	out := make([]facts.Message, len(messages))
	for i, m := range messages {
		out[i] = facts.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
