package llm

import (
	"context"
	"fmt"
	"sort"

	openai "github.com/sashabaranov/go-openai"
	"github.com/xhad/ragchat/internal/types"
)

const (
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultOpenAIChatModel      = "gpt-4o-mini"
)

type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
}

var _ types.Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(config EmbedderConfig) *OpenAIEmbedder {
	if config.Model == "" {
		config.Model = DefaultOpenAIEmbeddingModel
	}

	return &OpenAIEmbedder{
		client:    newOpenAIClient(config.APIKey, config.BaseURL),
		model:     config.Model,
		dimension: config.Dimension,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai embeddings: %w", err)
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	results := make([][]float32, len(data))
	for i, datum := range data {
		results[i] = datum.Embedding
	}

	return checkVectors(results, len(texts), e.dimension)
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type OpenAIChat struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

var (
	_ types.Generator = (*OpenAIChat)(nil)
	_ types.Pinger    = (*OpenAIChat)(nil)
)

func NewOpenAIChat(config ChatConfig) *OpenAIChat {
	if config.Model == "" {
		config.Model = DefaultOpenAIChatModel
	}

	return &OpenAIChat{
		client:      newOpenAIClient(config.APIKey, config.BaseURL),
		model:       config.Model,
		temperature: float32(config.Temperature),
		maxTokens:   config.MaxTokens,
	}
}

func (c *OpenAIChat) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIChat) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list openai models: %w", err)
	}
	return nil
}

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
