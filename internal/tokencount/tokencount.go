// Package tokencount estimates token counts for conversation messages and
// arbitrary text, per model family.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// MessageOverhead is the fixed per-message token cost added on top of the
// role and content token counts, grounded on
// original_source/tools/token_counter.py::count_messages.
const MessageOverhead = 4

// encodingMap mirrors token_counter.py::ENCODING_MAP: every model this
// system talks to encodes closely enough to cl100k_base for budgeting
// purposes, so every entry maps there.
var encodingMap = map[string]string{
	"gpt-3.5-turbo":               "cl100k_base",
	"gpt-4":                       "cl100k_base",
	"gpt-4-turbo":                 "cl100k_base",
	"deepseek-coder":              "cl100k_base",
	"claude-3-5-sonnet-20241022":  "cl100k_base",
	"claude-3-opus":               "cl100k_base",
	"claude-3-sonnet":             "cl100k_base",
}

const fallbackEncoding = "cl100k_base"

// Message is the minimal shape counted by Counter.
type Message struct {
	Role    string
	Content string
}

// Counter counts tokens for one or more model families, caching the
// tiktoken encoding per encoding name the first time it's needed.
type Counter struct {
	mu         sync.Mutex
	encodings  map[string]*tiktoken.Tiktoken
}

// New creates a Counter with no encodings loaded yet.
func New() *Counter {
	return &Counter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	name, ok := encodingMap[model]
	if !ok {
		name = fallbackEncoding
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encodings[name]; ok {
		return enc, nil
	}

	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
		name = fallbackEncoding
	}
	c.encodings[name] = enc
	return enc, nil
}

// CountTokens counts the tokens in text for the given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountMessages counts the total tokens across messages, adding
// MessageOverhead per message for role/content structure, per
// token_counter.py::count_messages.
func (c *Counter) CountMessages(messages []Message, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, m := range messages {
		total += len(enc.Encode(m.Role, nil, nil))
		total += len(enc.Encode(m.Content, nil, nil))
		total += MessageOverhead
	}
	return total, nil
}

// ContextBreakdown is the per-role token split returned by EstimateContextSize.
type ContextBreakdown struct {
	Total      int
	System     int
	User       int
	Assistant  int
}

// EstimateContextSize breaks down token usage by role, per
// token_counter.py::estimate_context_size.
func (c *Counter) EstimateContextSize(messages []Message, model string) (ContextBreakdown, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return ContextBreakdown{}, err
	}

	var b ContextBreakdown
	for _, m := range messages {
		tokens := len(enc.Encode(m.Content, nil, nil)) + MessageOverhead
		switch m.Role {
		case "system":
			b.System += tokens
		case "user":
			b.User += tokens
		case "assistant":
			b.Assistant += tokens
		}
	}
	b.Total = b.System + b.User + b.Assistant
	return b, nil
}
