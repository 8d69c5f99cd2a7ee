package llm

import (
	"fmt"

	"github.com/xhad/ragchat/internal/types"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// NewEmbedder builds the embedding client for config.Provider.
func NewEmbedder(config EmbedderConfig) (types.Embedder, error) {
	switch config.Provider {
	case ProviderOllama, "":
		embedder, err := NewOllamaEmbedder(config)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case ProviderOpenAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf("openai embedding provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIEmbedder(config), nil
	case ProviderHash:
		return NewHashEmbedder(config.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", config.Provider)
	}
}

// NewGenerator builds the generation client for config.Provider.
func NewGenerator(config ChatConfig) (types.Generator, error) {
	switch config.Provider {
	case ProviderOllama, "":
		engine, err := NewWithConfig(config)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case ProviderOpenAI:
		if config.APIKey == "" {
			return nil, fmt.Errorf("openai llm provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIChat(config), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", config.Provider)
	}
}
