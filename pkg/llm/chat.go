package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/ragchat/internal/types"
)

const DefaultChatModel = "llama3"

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string // ollama or openai
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // Ollama server URL or OpenAI-compatible base URL
	APIKey      string
}

// ChatEngine generates completions with an Ollama model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
	client *http.Client
}

var (
	_ types.Generator = (*ChatEngine)(nil)
	_ types.Pinger    = (*ChatEngine)(nil)
)

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = DefaultChatModel
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultOllamaURL
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
		client: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

// Generate sends prompt as a single non-streaming completion request.
func (ce *ChatEngine) Generate(ctx context.Context, prompt string) (string, error) {
	opts := []llms.CallOption{llms.WithMaxTokens(ce.config.MaxTokens)}
	if ce.config.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(ce.config.Temperature))
	}

	completion, err := llms.GenerateFromSinglePrompt(ctx, ce.llm, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}

	return completion, nil
}

// Ping checks that the Ollama server answers its model listing endpoint.
func (ce *ChatEngine) Ping(ctx context.Context) error {
	url := strings.TrimRight(ce.config.BaseURL, "/") + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create ollama request: %w", err)
	}

	resp, err := ce.client.Do(req)
	if err != nil {
		return fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %s", resp.Status)
	}
	return nil
}
