package llm

import (
	"context"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/basalt-dev/sourcelens/internal/corerr"
)

// anthropicProvider implements Provider via the Anthropic Messages API.
// Grounded on ChamsBouzaiene-dodo/internal/providers/anthropic.go's client
// construction and system/user/assistant message mapping, trimmed to the
// single-turn, no-tool-calling shape this system's Summarizer needs.
type anthropicProvider struct {
	client *anthropic.Client
	model  string
}

func newAnthropicProvider(cfg Config) Provider {
	return &anthropicProvider{client: anthropic.NewClient(cfg.APIKey), model: cfg.Model}
}

func (p *anthropicProvider) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var systemParts []anthropic.MessageSystemPart
	var messages []anthropic.Message

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			systemParts = append(systemParts, anthropic.MessageSystemPart{Type: "text", Text: m.Content})
		case RoleUser:
			messages = append(messages, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		case RoleAssistant:
			messages = append(messages, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
			})
		}
	}

	maxTokens := 4096
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	temperature := req.Temperature

	apiReq := anthropic.MessagesRequest{
		Model:       anthropic.Model(p.model),
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
	if len(systemParts) > 0 {
		apiReq.MultiSystem = systemParts
	}

	resp, err := p.client.CreateMessages(ctx, apiReq)
	if err != nil {
		return ChatResponse{}, classifyAnthropicError(err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			content += *block.Text
		}
	}

	finishReason := "stop"
	if resp.StopReason == "max_tokens" {
		finishReason = "length"
	}

	return ChatResponse{
		Content:      content,
		FinishReason: finishReason,
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// classifyAnthropicError maps the SDK's error into the Transient category
// on rate-limit/server-overloaded errors, Internal otherwise — the
// categories the Summarizer's degradation logic (internal/summarize)
// branches on. Grounded on ChamsBouzaiene-dodo/internal/providers/
// openai.go::extractErrorMetadata's string-matched status codes, since
// neither SDK's error type reliably carries a typed status across every
// transport path it can fail on.
func classifyAnthropicError(err error) error {
	if isTransientErrorText(err.Error()) {
		return corerr.Wrap(corerr.Transient, "anthropic request failed", err)
	}
	return corerr.Wrap(corerr.Internal, "anthropic request failed", err)
}

func isTransientErrorText(s string) bool {
	for _, marker := range []string{"429", "500", "502", "503", "504", "overloaded", "rate limit"} {
		if strings.Contains(strings.ToLower(s), marker) {
			return true
		}
	}
	return false
}
