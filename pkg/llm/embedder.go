package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/ragchat/internal/types"
)

const (
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultEmbeddingModel = "nomic-embed-text:latest"
)

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider  string // ollama, openai or hash
	Model     string
	BaseURL   string // Ollama server URL or OpenAI-compatible base URL
	APIKey    string
	Dimension int // expected vector size, 0 disables the check
	BatchSize int
}

// OllamaEmbedder turns text into vectors with an Ollama embedding model.
type OllamaEmbedder struct {
	Config EmbedderConfig
	embed  *embeddings.EmbedderImpl
}

var _ types.Embedder = (*OllamaEmbedder)(nil)

func NewOllamaEmbedder(config EmbedderConfig) (*OllamaEmbedder, error) {
	if config.Model == "" {
		config.Model = DefaultEmbeddingModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultOllamaURL
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 512
	}

	client, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
	}

	emb, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(config.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &OllamaEmbedder{
		Config: config,
		embed:  emb,
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.embed.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}

	return checkVectors(vectors, len(texts), e.Config.Dimension)
}

func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embed.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama query embedding: %w", err)
	}
	if _, err := checkVectors([][]float32{vector}, 1, e.Config.Dimension); err != nil {
		return nil, err
	}
	return vector, nil
}

func checkVectors(vectors [][]float32, want, dimension int) ([][]float32, error) {
	if len(vectors) != want {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", want, len(vectors))
	}
	if dimension > 0 {
		for i, v := range vectors {
			if len(v) != dimension {
				return nil, fmt.Errorf("embedding %d dimension mismatch: expected %d, got %d", i, dimension, len(v))
			}
		}
	}
	return vectors, nil
}
