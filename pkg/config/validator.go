package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xhad/ragchat/pkg/llm"
	"github.com/xhad/ragchat/pkg/source"
	"github.com/xhad/ragchat/pkg/store"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	add := func(field, message string) {
		errors = append(errors, ValidationError{Field: field, Message: message})
	}

	// LLM
	switch c.LLM.Provider {
	case llm.ProviderOllama:
		if c.LLM.BaseURL == "" {
			add("llm.base_url", "Ollama base URL is required")
		} else if !validURL(c.LLM.BaseURL) {
			add("llm.base_url", "invalid Ollama base URL")
		}
	case llm.ProviderOpenAI:
		if c.LLM.APIKey == "" {
			add("llm.api_key", "api_key or OPENAI_API_KEY is required for the openai provider")
		}
	default:
		add("llm.provider", fmt.Sprintf("unknown provider: %s", c.LLM.Provider))
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		add("llm.max_tokens", "max_tokens must be between 1 and 4096")
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		add("llm.temperature", "temperature must be between 0 and 2")
	}

	// Embedding
	switch c.Embedding.Provider {
	case llm.ProviderOllama:
		if !validURL(c.Embedding.BaseURL) {
			add("embedding.base_url", "invalid Ollama base URL")
		}
	case llm.ProviderOpenAI:
		if c.Embedding.APIKey == "" {
			add("embedding.api_key", "api_key or OPENAI_API_KEY is required for the openai provider")
		}
	case llm.ProviderHash:
	default:
		add("embedding.provider", fmt.Sprintf("unknown provider: %s", c.Embedding.Provider))
	}

	if c.Embedding.Dimension < 0 {
		add("embedding.dimension", "dimension must not be negative")
	}

	if c.Embedding.BatchSize < 1 {
		add("embedding.batch_size", "batch_size must be positive")
	}

	// Store
	switch c.Store.Backend {
	case store.BackendPGVector:
		if c.Store.URL == "" {
			add("store.url", "database URL is required for the pgvector backend")
		} else if _, err := url.Parse(c.Store.URL); err != nil {
			add("store.url", "invalid database URL")
		}
		if c.Store.VectorDim < 1 {
			add("store.vector_dim", "vector_dim must be positive")
		} else if c.Embedding.Dimension > 0 && c.Embedding.Dimension != c.Store.VectorDim {
			add("store.vector_dim", "vector_dim must match embedding.dimension")
		}
	case store.BackendSQLite:
		if c.Store.Path == "" {
			add("store.path", "path is required for the sqlite backend")
		}
	case store.BackendMemory:
	default:
		add("store.backend", fmt.Sprintf("unknown backend: %s", c.Store.Backend))
	}

	if c.Store.BatchSize < 1 {
		add("store.batch_size", "batch_size must be positive")
	}

	// Source
	switch c.Source.Kind {
	case source.KindWikipedia:
		if c.Source.WikipediaURL != "" && !validURL(c.Source.WikipediaURL) {
			add("source.wikipedia_url", "invalid Wikipedia API URL")
		}
	case source.KindWebsite:
		if !validURL(c.Source.BaseURL) {
			add("source.base_url", "a valid base_url is required for the website source")
		}
		if c.Source.MaxDepth < 1 {
			add("source.max_depth", "max_depth must be positive")
		}
	case source.KindDirectory:
		if c.Source.Dir == "" {
			add("source.dir", "dir is required for the directory source")
		}
	default:
		add("source.kind", fmt.Sprintf("unknown source: %s", c.Source.Kind))
	}

	if c.Source.RateLimit <= 0 {
		add("source.rate_limit", "rate_limit must be positive")
	}

	for _, ext := range c.Source.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") && ext != "" && ext != "/" {
			add("source.allowed_extensions", fmt.Sprintf("invalid extension format: %s", ext))
		}
	}

	// Processor
	if c.Processor.ChunkSize < 1 {
		add("processor.chunk_size", "chunk_size must be positive")
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		add("processor.chunk_overlap", "chunk_overlap must be non-negative and less than chunk_size")
	}

	// Retrieval
	if c.Retrieval.TopK < 1 {
		add("retrieval.top_k", "top_k must be positive")
	}

	if c.Retrieval.MaxContextChars < 0 {
		add("retrieval.max_context_chars", "max_context_chars must not be negative")
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "port must be between 1 and 65535")
	}

	// Timeouts
	if c.Timeouts.Embed < 0 || c.Timeouts.Store < 0 || c.Timeouts.Generate < 0 || c.Timeouts.Backoff < 0 {
		add("timeouts", "timeouts must not be negative")
	}

	if c.Timeouts.Attempts < 1 {
		add("timeouts.attempts", "attempts must be positive")
	}

	return errors
}
