package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xhad/ragchat/internal/types"
	"github.com/xhad/ragchat/pkg/config"
	"github.com/xhad/ragchat/pkg/llm"
	"github.com/xhad/ragchat/pkg/rag"
	"github.com/xhad/ragchat/pkg/store"
)

var (
	configPath string
	ollamaURL  string
	dbURL      string
	modelName  string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "Question answering over your documents",
	Long: `ragchat ingests documents into a vector store and answers questions
from the most relevant chunks using a local or hosted language model.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&ollamaURL, "ollama-url", "", "Ollama server URL")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection string (selects the pgvector store)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "generation model to use")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress log output")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if ollamaURL != "" {
		if cfg.LLM.Provider == llm.ProviderOllama {
			cfg.LLM.BaseURL = ollamaURL
		}
		if cfg.Embedding.Provider == llm.ProviderOllama {
			cfg.Embedding.BaseURL = ollamaURL
		}
	}
	if dbURL != "" {
		cfg.Store.URL = dbURL
		cfg.Store.Backend = store.BackendPGVector
	}
	if modelName != "" {
		cfg.LLM.Model = modelName
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		lines := make([]string, len(errs))
		for i, e := range errs {
			lines[i] = "  - " + e.Error()
		}
		return nil, fmt.Errorf("invalid configuration:\n%s", strings.Join(lines, "\n"))
	}
	return cfg, nil
}

// app holds the clients shared by every command.
type app struct {
	cfg     *config.Config
	service *rag.Service
	store   types.VectorStore
	logger  *log.Logger
}

func newApp(ctx context.Context, cmd *cobra.Command, onProgress func(stage string, items int)) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var logOut io.Writer = cmd.ErrOrStderr()
	if quiet {
		logOut = io.Discard
	}
	logger := log.New(logOut, "", log.LstdFlags)

	embedder, err := llm.NewEmbedder(cfg.EmbedderConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	generator, err := llm.NewGenerator(cfg.ChatConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	vectorStore, err := store.New(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	ragConfig := cfg.RAGConfig()
	ragConfig.Logger = logger
	ragConfig.OnProgress = onProgress

	service, err := rag.NewService(embedder, vectorStore, generator, ragConfig)
	if err != nil {
		vectorStore.Close()
		return nil, err
	}

	return &app{cfg: cfg, service: service, store: vectorStore, logger: logger}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
