package llm

import "fmt"

// New resolves cfg.ID to a concrete Provider via a plain table lookup — no
// global registry, per Design Notes §9. Grounded on ChamsBouzaiene-dodo/
// internal/providers/factory.go's provider-id switch, reduced to the two
// providers this system wires (Anthropic and an OpenAI-compatible table
// entry; additional OpenAI-compatible backends are reached by pointing
// Config.BaseURL elsewhere, the same trick factory.go uses for Kimi/Groq/
// DeepSeek/etc. without a dedicated case per vendor).
func New(cfg Config) (Provider, error) {
	switch cfg.ID {
	case Anthropic:
		return newAnthropicProvider(cfg), nil
	case OpenAI:
		return newOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.ID)
	}
}
