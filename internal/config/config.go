package config

import (
	"fmt"

	"github.com/basalt-dev/sourcelens/internal/embed"
)

// Config represents the complete sourcelens configuration.
// It can be loaded from .sourcelens/config.yml with environment variable overrides.
type Config struct {
	Embedding   EmbeddingConfig   `yaml:"embedding" mapstructure:"embedding"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	Chunking    ChunkingConfig    `yaml:"chunking" mapstructure:"chunking"`
	Storage     StorageConfig     `yaml:"storage" mapstructure:"storage"`
	VectorStore VectorStoreConfig `yaml:"vectorstore" mapstructure:"vectorstore"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
}

// LLMConfig selects and connects the chat-completion backend the
// Summarizer and internal/mcpserver's assistant loop use. Provider is
// empty by default — Summarizer treats a nil llm.Provider as
// unavailable and degrades to verbatim history rather than failing,
// so an unconfigured deployment still indexes and retrieves.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "anthropic" or "openai"; empty disables summarization
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	Model    string `yaml:"model" mapstructure:"model"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"` // OpenAI-compatible providers only
}

// StorageConfig configures the on-disk SQLite cache (chunks, graph, facts)
// per SPEC_FULL §8's storage contract.
type StorageConfig struct {
	Backend            string  `yaml:"backend" mapstructure:"backend"` // "sqlite" is the only supported value
	CacheLocation      string  `yaml:"cache_location" mapstructure:"cache_location"`
	BranchCacheEnabled bool    `yaml:"branch_cache_enabled" mapstructure:"branch_cache_enabled"`
	CacheMaxAgeDays    int     `yaml:"cache_max_age_days" mapstructure:"cache_max_age_days"`
	CacheMaxSizeMB     float64 `yaml:"cache_max_size_mb" mapstructure:"cache_max_size_mb"`
}

// VectorStoreConfig selects and sizes the Vector Store backend, per
// SPEC_FULL §6.4.
type VectorStoreConfig struct {
	Backend    string `yaml:"backend" mapstructure:"backend"` // "sqlite" or "chromem"
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`     // "local" or "openai"
	Model      string `yaml:"model" mapstructure:"model"`           // e.g., "BAAI/bge-small-en-v1.5"
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"` // embedding vector dimensions
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`     // e.g., "http://localhost:8121/embed"
}

// PathsConfig defines which files to index and which to ignore.
type PathsConfig struct {
	Code   []string `yaml:"code" mapstructure:"code"`     // glob patterns for code files
	Docs   []string `yaml:"docs" mapstructure:"docs"`     // glob patterns for documentation
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to ignore
}

// ChunkingConfig defines how content is chunked for indexing.
type ChunkingConfig struct {
	Strategies    []string `yaml:"strategies" mapstructure:"strategies"`           // e.g., ["symbols", "definitions", "data"]
	DocChunkSize  int      `yaml:"doc_chunk_size" mapstructure:"doc_chunk_size"`   // max tokens per doc chunk
	CodeChunkSize int      `yaml:"code_chunk_size" mapstructure:"code_chunk_size"` // max characters per code chunk
	Overlap       int      `yaml:"overlap" mapstructure:"overlap"`                 // token overlap between chunks
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Model:      "BAAI/bge-small-en-v1.5",
			Dimensions: 384,
			Endpoint:   fmt.Sprintf("http://%s:%d/embed", embed.DefaultEmbedServerHost, embed.DefaultEmbedServerPort),
		},
		Paths: PathsConfig{
			Code: []string{
				"**/*.go",
				"**/*.ts",
				"**/*.tsx",
				"**/*.js",
				"**/*.jsx",
				"**/*.py",
				"**/*.rs",
				"**/*.c",
				"**/*.cpp",
				"**/*.cc",
				"**/*.h",
				"**/*.hpp",
				"**/*.php",
				"**/*.rb",
				"**/*.java",
			},
			Docs: []string{
				"**/*.md",
				"**/*.rst",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				"*.test",
				"*.pyc",
			},
		},
		Chunking: ChunkingConfig{
			Strategies:    []string{"symbols", "definitions", "data"},
			DocChunkSize:  800,
			CodeChunkSize: 2000,
			Overlap:       100,
		},
		Storage: StorageConfig{
			Backend:            "sqlite",
			CacheLocation:      "",
			BranchCacheEnabled: true,
			CacheMaxAgeDays:    30,
			CacheMaxSizeMB:     500,
		},
		VectorStore: VectorStoreConfig{
			Backend:    "sqlite",
			Dimensions: 384,
		},
		LLM: LLMConfig{
			Provider: "",
			Model:    "claude-3-5-haiku-20241022",
		},
	}
}
