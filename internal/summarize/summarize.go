// Package summarize compresses old conversation messages into a single
// system-role summary message to save context tokens, keeping a fixed
// number of recent messages verbatim.
package summarize

import (
	"context"
	"strconv"
	"strings"

	"github.com/basalt-dev/sourcelens/internal/corerr"
	"github.com/basalt-dev/sourcelens/internal/llm"
)

// DefaultMaxSummaryTokens and DefaultPreserveRecent match
// conversation_summarizer.py::summarize_messages's own defaults.
const (
	DefaultMaxSummaryTokens = 500
	DefaultPreserveRecent   = 5
)

// Status tags the outcome of a summarization attempt, per spec.md §9's
// Design Notes: "Model as tagged result variants Ok(...), Unavailable,
// Transient(retry-after), Fatal(err); the assembler's degradation logic
// reads the tag" — replacing the source's catch-all exception handling.
type Status string

const (
	// StatusOk: a summary was produced, or none was needed (message count
	// at or below the preserve-recent threshold).
	StatusOk Status = "ok"
	// StatusUnavailable: no LLM provider is configured. Not an error.
	StatusUnavailable Status = "unavailable"
	// StatusTransient: the provider call failed with a retryable error;
	// the full original message list is preserved for the caller to retry.
	StatusTransient Status = "transient"
	// StatusFatal: the provider call failed non-retryably; recent messages
	// are preserved but the older ones are dropped, matching the source's
	// "summarization failed, just keep recent messages" degradation.
	StatusFatal Status = "fatal"
)

// Result is the outcome of SummarizeMessages.
type Result struct {
	Status         Status
	SummaryMessage *llm.Message
	RecentMessages []llm.Message
	OriginalCount  int
	SummaryCount   int
	Err            error
}

// Summarizer generates conversation summaries via an llm.Provider. A nil
// Provider degrades gracefully: every call returns StatusUnavailable with
// the input untouched, rather than failing.
type Summarizer struct {
	provider llm.Provider
	model    string
}

// New creates a Summarizer. provider may be nil.
func New(provider llm.Provider, model string) *Summarizer {
	return &Summarizer{provider: provider, model: model}
}

const summarizerSystemPrompt = "You are a conversation summarizer. Create concise summaries that preserve key information: files created, functions added, decisions made, errors fixed, and important context."

// SummarizeMessages summarizes messages[:-preserveRecent] into one system
// message, keeping the last preserveRecent messages verbatim.
func (s *Summarizer) SummarizeMessages(ctx context.Context, messages []llm.Message, maxSummaryTokens, preserveRecent int) Result {
	if s.provider == nil {
		return Result{Status: StatusUnavailable, RecentMessages: messages, OriginalCount: len(messages)}
	}
	if len(messages) <= preserveRecent {
		return Result{Status: StatusOk, RecentMessages: messages, OriginalCount: len(messages)}
	}

	old := messages[:len(messages)-preserveRecent]
	recent := messages[len(messages)-preserveRecent:]

	resp, err := s.provider.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: summarizerSystemPrompt},
			{Role: llm.RoleUser, Content: buildSummaryPrompt(old, maxSummaryTokens)},
		},
		MaxTokens:   maxSummaryTokens,
		Temperature: 0.3,
	})
	if err != nil {
		if corerr.IsTransient(err) {
			return Result{Status: StatusTransient, RecentMessages: messages, OriginalCount: len(old), Err: err}
		}
		return Result{Status: StatusFatal, RecentMessages: recent, OriginalCount: len(old), Err: err}
	}

	summary := llm.Message{Role: llm.RoleSystem, Content: "[Previous conversation summary]: " + resp.Content}
	return Result{
		Status:         StatusOk,
		SummaryMessage: &summary,
		RecentMessages: recent,
		OriginalCount:  len(old),
		SummaryCount:   1,
	}
}

// MergeSummary folds newMessages into an existing summary, or creates one
// from scratch (with the package defaults) if existingSummary is empty.
func (s *Summarizer) MergeSummary(ctx context.Context, existingSummary string, newMessages []llm.Message) (string, Status, error) {
	if existingSummary == "" {
		result := s.SummarizeMessages(ctx, newMessages, DefaultMaxSummaryTokens, DefaultPreserveRecent)
		if result.SummaryMessage != nil {
			return result.SummaryMessage.Content, result.Status, result.Err
		}
		return "", result.Status, result.Err
	}

	if s.provider == nil {
		return existingSummary, StatusUnavailable, nil
	}

	resp, err := s.provider.ChatCompletion(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You merge conversation summaries, preserving all important information."},
			{Role: llm.RoleUser, Content: buildMergePrompt(existingSummary, newMessages)},
		},
		MaxTokens:   DefaultMaxSummaryTokens,
		Temperature: 0.3,
	})
	if err != nil {
		if corerr.IsTransient(err) {
			return existingSummary, StatusTransient, err
		}
		return existingSummary, StatusFatal, err
	}
	return resp.Content, StatusOk, nil
}

func buildSummaryPrompt(messages []llm.Message, maxTokens int) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(strings.ToUpper(string(m.Role)))
		b.WriteString(": ")
		b.WriteString(truncate(m.Content, 500))
		b.WriteString("\n")
	}

	return "Summarize this conversation history, preserving:\n" +
		"- Files created or modified\n" +
		"- Functions/classes added\n" +
		"- Important decisions made\n" +
		"- Errors fixed and solutions\n" +
		"- Key context for future reference\n\n" +
		"Keep the summary under " + strconv.Itoa(maxTokens) + " tokens and focus on actionable information.\n\n" +
		"Conversation:\n" + b.String() + "\nSummary:"
}

func buildMergePrompt(existingSummary string, newMessages []llm.Message) string {
	var b strings.Builder
	for _, m := range newMessages {
		b.WriteString(strings.ToUpper(string(m.Role)))
		b.WriteString(": ")
		b.WriteString(truncate(m.Content, 300))
		b.WriteString("\n")
	}

	return "Update this conversation summary with new information:\n\n" +
		"Existing Summary:\n" + existingSummary + "\n\n" +
		"New Messages:\n" + b.String() + "\n" +
		"Create an updated summary that combines both, preserving all important information."
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

