package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/ragchat/pkg/llm"
	"github.com/xhad/ragchat/pkg/processor"
	"github.com/xhad/ragchat/pkg/rag"
	"github.com/xhad/ragchat/pkg/source"
	"github.com/xhad/ragchat/pkg/store"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider    string  `yaml:"provider"`
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedding struct {
		Provider  string `yaml:"provider"`
		BaseURL   string `yaml:"base_url"`
		Model     string `yaml:"model"`
		APIKey    string `yaml:"api_key"`
		Dimension int    `yaml:"dimension"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"embedding"`

	Store struct {
		Backend   string `yaml:"backend"`
		URL       string `yaml:"url"`
		Path      string `yaml:"path"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"store"`

	Source struct {
		Kind              string   `yaml:"kind"`
		Topics            []string `yaml:"topics"`
		WikipediaURL      string   `yaml:"wikipedia_url"`
		BaseURL           string   `yaml:"base_url"`
		MaxDepth          int      `yaml:"max_depth"`
		RateLimit         float64  `yaml:"rate_limit"`
		IgnorePatterns    []string `yaml:"ignore_patterns"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
		Dir               string   `yaml:"dir"`
	} `yaml:"source"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	Retrieval struct {
		TopK             int  `yaml:"top_k"`
		MaxContextChars  int  `yaml:"max_context_chars"`
		StrictGeneration bool `yaml:"strict_generation"`
	} `yaml:"retrieval"`

	Server struct {
		Host           string   `yaml:"host"`
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Timeouts struct {
		Embed    time.Duration `yaml:"embed"`
		Store    time.Duration `yaml:"store"`
		Generate time.Duration `yaml:"generate"`
		Attempts int           `yaml:"attempts"`
		Backoff  time.Duration `yaml:"backoff"`
	} `yaml:"timeouts"`
}

// LoadConfig reads path, or the first config file found in the default
// locations, then applies environment overrides and defaults. With no
// file at all the defaults are used.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ragchat/config.yaml"),
			"/etc/ragchat/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	var config Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := mergeWithEnv(&config); err != nil {
		return nil, err
	}
	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = llm.ProviderOllama
	}
	if config.LLM.Model == "" && config.LLM.Provider == llm.ProviderOllama {
		config.LLM.Model = llm.DefaultChatModel
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == llm.ProviderOllama {
		config.LLM.BaseURL = llm.DefaultOllamaURL
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = llm.ProviderOllama
	}
	if config.Embedding.Provider == llm.ProviderOllama {
		if config.Embedding.Model == "" {
			config.Embedding.Model = llm.DefaultEmbeddingModel
		}
		if config.Embedding.BaseURL == "" && config.LLM.Provider == llm.ProviderOllama {
			config.Embedding.BaseURL = config.LLM.BaseURL
		}
		if config.Embedding.BaseURL == "" {
			config.Embedding.BaseURL = llm.DefaultOllamaURL
		}
	}
	if config.Embedding.Dimension == 0 {
		config.Embedding.Dimension = defaultDimension(config.Embedding.Provider, config.Embedding.Model)
	}
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 512
	}

	if config.Store.Backend == "" {
		if config.Store.URL != "" {
			config.Store.Backend = store.BackendPGVector
		} else {
			config.Store.Backend = store.BackendSQLite
		}
	}
	if config.Store.Path == "" {
		config.Store.Path = store.DefaultSQLitePath
	}
	if config.Store.TableName == "" {
		config.Store.TableName = "documents"
	}
	if config.Store.VectorDim == 0 {
		config.Store.VectorDim = config.Embedding.Dimension
	}
	if config.Store.VectorDim == 0 {
		config.Store.VectorDim = 768
	}
	if config.Store.BatchSize == 0 {
		config.Store.BatchSize = 100
	}

	if config.Source.Kind == "" {
		config.Source.Kind = source.KindWikipedia
	}
	if config.Source.MaxDepth == 0 {
		config.Source.MaxDepth = 3
	}
	if config.Source.RateLimit == 0 {
		config.Source.RateLimit = 2.0
	}
	if len(config.Source.AllowedExtensions) == 0 {
		config.Source.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = processor.DefaultChunkSize
		if config.Processor.ChunkOverlap == 0 {
			config.Processor.ChunkOverlap = processor.DefaultChunkOverlap
		}
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = rag.DefaultTopK
	}

	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}

	defaults := rag.DefaultPolicies()
	if config.Timeouts.Embed == 0 {
		config.Timeouts.Embed = defaults.Embed.Timeout
	}
	if config.Timeouts.Store == 0 {
		config.Timeouts.Store = defaults.Store.Timeout
	}
	if config.Timeouts.Generate == 0 {
		config.Timeouts.Generate = defaults.Generate.Timeout
	}
	if config.Timeouts.Attempts == 0 {
		config.Timeouts.Attempts = defaults.Embed.Attempts
	}
	if config.Timeouts.Backoff == 0 {
		config.Timeouts.Backoff = defaults.Embed.Backoff
	}
}

// defaultDimension is the vector size of a known embedding model, or 0 when
// the model is not recognised.
func defaultDimension(provider, model string) int {
	switch provider {
	case llm.ProviderOllama:
		switch strings.TrimSuffix(model, ":latest") {
		case "nomic-embed-text":
			return 768
		case "mxbai-embed-large":
			return 1024
		case "all-minilm":
			return 384
		}
	case llm.ProviderOpenAI:
		switch model {
		case "", "text-embedding-3-small", "text-embedding-ada-002":
			return 1536
		case "text-embedding-3-large":
			return 3072
		}
	case llm.ProviderHash:
		return llm.DefaultHashDimension
	}
	return 0
}

// usesOllama reports whether a provider resolves to Ollama; an empty
// provider defaults to it.
func usesOllama(provider string) bool {
	return provider == "" || provider == llm.ProviderOllama
}

func mergeWithEnv(config *Config) error {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		if usesOllama(config.LLM.Provider) {
			config.LLM.BaseURL = baseURL
		}
		if usesOllama(config.Embedding.Provider) {
			config.Embedding.BaseURL = baseURL
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.LLM.APIKey == "" {
			config.LLM.APIKey = apiKey
		}
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
	}
	if backend := os.Getenv("RAGCHAT_STORE"); backend != "" {
		config.Store.Backend = backend
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		config.Server.Port = p
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) EmbedderConfig() llm.EmbedderConfig {
	return llm.EmbedderConfig{
		Provider:  c.Embedding.Provider,
		Model:     c.Embedding.Model,
		BaseURL:   c.Embedding.BaseURL,
		APIKey:    c.Embedding.APIKey,
		Dimension: c.Embedding.Dimension,
		BatchSize: c.Embedding.BatchSize,
	}
}

func (c *Config) ChatConfig() llm.ChatConfig {
	return llm.ChatConfig{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
		BaseURL:     c.LLM.BaseURL,
		APIKey:      c.LLM.APIKey,
	}
}

func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Backend:    c.Store.Backend,
		ConnString: c.Store.URL,
		Path:       c.Store.Path,
		TableName:  c.Store.TableName,
		VectorDim:  c.Store.VectorDim,
		BatchSize:  c.Store.BatchSize,
	}
}

func (c *Config) SourceConfig() source.Config {
	return source.Config{
		Kind:              c.Source.Kind,
		Topics:            c.Source.Topics,
		WikipediaURL:      c.Source.WikipediaURL,
		BaseURL:           c.Source.BaseURL,
		MaxDepth:          c.Source.MaxDepth,
		IgnorePatterns:    c.Source.IgnorePatterns,
		AllowedExtensions: c.Source.AllowedExtensions,
		Dir:               c.Source.Dir,
		RateLimit:         c.Source.RateLimit,
	}
}

// RAGConfig returns the service settings; callers add a logger and a
// progress callback as needed.
func (c *Config) RAGConfig() rag.Config {
	retry := func(timeout time.Duration) rag.CallPolicy {
		return rag.CallPolicy{Timeout: timeout, Attempts: c.Timeouts.Attempts, Backoff: c.Timeouts.Backoff}
	}
	return rag.Config{
		ChunkSize:        c.Processor.ChunkSize,
		ChunkOverlap:     c.Processor.ChunkOverlap,
		MaxContextChars:  c.Retrieval.MaxContextChars,
		StrictGeneration: c.Retrieval.StrictGeneration,
		Policies: rag.Policies{
			Embed:    retry(c.Timeouts.Embed),
			Store:    retry(c.Timeouts.Store),
			Generate: rag.CallPolicy{Timeout: c.Timeouts.Generate, Attempts: 1},
		},
	}
}
