package context

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basalt-dev/sourcelens/internal/facts"
	"github.com/basalt-dev/sourcelens/internal/llm"
	"github.com/basalt-dev/sourcelens/internal/summarize"
	"github.com/basalt-dev/sourcelens/internal/tokencount"
)

// Test Plan:
// - Assemble builds system/rag/facts/history/user ordering with no summarization needed
// - History over the summarization threshold triggers a summary message and saves new facts
// - Assemble falls back to aggressive truncation when still over budget, keeping the last message
// - formatFacts caps at 10 entries

type fakeProvider struct {
	content string
}

func (f *fakeProvider) ChatCompletion(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	return llm.ChatResponse{Content: f.content}, nil
}

type fakeFactsSource struct {
	relevant []facts.Fact
	saved    []facts.Fact
}

func (f *fakeFactsSource) GetRelevantFacts(ctx context.Context, sessionID, query string) ([]facts.Fact, error) {
	return f.relevant, nil
}

func (f *fakeFactsSource) SaveFacts(ctx context.Context, sessionID string, items []facts.Fact) error {
	f.saved = append(f.saved, items...)
	return nil
}

func newAssembler(fs FactsSource) *Assembler {
	cfg := DefaultConfig()
	counter := tokencount.NewCounter()
	summarizer := summarize.New(&fakeProvider{content: "summary text"}, "model")
	return NewAssembler(cfg, counter, summarizer, fs)
}

func history(n int) []llm.Message {
	out := make([]llm.Message, n)
	for i := range out {
		out[i] = llm.Message{Role: llm.RoleUser, Content: "a short message"}
	}
	return out
}

func TestAssemble_OrdersSystemRagFactsHistoryUser(t *testing.T) {
	t.Parallel()
	fs := &fakeFactsSource{relevant: []facts.Fact{{Content: "fact one"}}}
	a := newAssembler(fs)

	result := a.Assemble(context.Background(), "hello", history(2), "some code", "system prompt", "gpt-4", "session-1")

	require.True(t, len(result.Messages) >= 5)
	assert.Equal(t, "system prompt", result.Messages[0].Content)
	assert.Contains(t, result.Messages[1].Content, "<codebase_context>")
	assert.Contains(t, result.Messages[2].Content, "fact one")
	assert.Equal(t, llm.RoleUser, result.Messages[len(result.Messages)-1].Role)
	assert.Equal(t, "hello", result.Messages[len(result.Messages)-1].Content)
	assert.False(t, result.SummaryUsed)
	assert.Equal(t, 1, result.FactsCount)
}

func TestAssemble_LongHistoryTriggersSummaryAndSavesFacts(t *testing.T) {
	t.Parallel()
	fs := &fakeFactsSource{}
	a := newAssembler(fs)
	a.cfg.MaxContextTokens = 50
	a.cfg.SummarizationThreshold = 0.5

	longHistory := append(history(50), llm.Message{Role: llm.RoleAssistant, Content: "Created file: widget.go"})
	result := a.Assemble(context.Background(), "continue", longHistory, "", "sys", "gpt-4", "session-1")

	assert.True(t, result.SummaryUsed)
	foundSummary := false
	for _, m := range result.Messages {
		if strings.Contains(m.Content, "summary text") {
			foundSummary = true
		}
	}
	assert.True(t, foundSummary)
	assert.NotEmpty(t, fs.saved)
}

func TestAssemble_AggressiveTruncationKeepsLastMessage(t *testing.T) {
	t.Parallel()
	a := newAssembler(nil)
	a.cfg.MaxContextTokens = 10
	a.cfg.SummarizationThreshold = 100 // never trigger summarization; force truncation instead

	result := a.Assemble(context.Background(), "final question", history(20), "", "sys", "gpt-4", "")

	require.NotEmpty(t, result.Messages)
	last := result.Messages[len(result.Messages)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Equal(t, "final question", last.Content)
}

func TestFormatFacts_CapsAtTen(t *testing.T) {
	t.Parallel()
	items := make([]facts.Fact, 15)
	for i := range items {
		items[i] = facts.Fact{Content: "fact"}
	}
	out := formatFacts(items)
	assert.Equal(t, 10, strings.Count(out, "\n- "))
}
