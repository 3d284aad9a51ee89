package llm

import (
	"context"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/basalt-dev/sourcelens/internal/corerr"
)

// openaiProvider implements Provider (and EmbeddingCapable) via the
// Chat Completions and Embeddings APIs. Grounded on
// ChamsBouzaiene-dodo/internal/providers/openai.go's client construction
// (DefaultConfig + optional BaseURL override, for OpenAI-compatible
// endpoints) and message mapping, trimmed to the single-turn,
// no-tool-calling shape this system's Summarizer needs.
type openaiProvider struct {
	client *openai.Client
	model  string
}

func newOpenAIProvider(cfg Config) Provider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &openaiProvider{client: openai.NewClientWithConfig(config), model: cfg.Model}
}

func (p *openaiProvider) ChatCompletion(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	resp, err := p.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return ChatResponse{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, corerr.New(corerr.Internal, "openai returned no choices")
	}

	return ChatResponse{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// CreateEmbedding implements EmbeddingCapable. OpenAI-compatible providers
// are used as an embedding backend (see internal/embed's provider table);
// Anthropic has no equivalent, per Design Notes §9's optional half of the
// capability interface.
func (p *openaiProvider) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.AdaEmbeddingV2,
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

func classifyOpenAIError(err error) error {
	if isTransientErrorText(err.Error()) {
		return corerr.Wrap(corerr.Transient, "openai request failed", err)
	}
	return corerr.Wrap(corerr.Internal, "openai request failed", err)
}
