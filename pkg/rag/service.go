package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
)

type Config struct {
	ChunkSize       int
	ChunkOverlap    int
	MaxContextChars int
	// StrictGeneration makes Ask return the generation error alongside the
	// degraded answer instead of reporting success.
	StrictGeneration bool
	Policies         Policies
	Logger           *log.Logger
	OnProgress       func(stage string, items int)
}

// Service wires ingestion, retrieval and synthesis over one set of clients.
type Service struct {
	pipeline    *Pipeline
	retriever   *Retriever
	synthesizer *Synthesizer
	store       types.VectorStore
	generator   types.Generator
	policies    Policies
	strict      bool
	logger      *log.Logger
}

// Health is the /health payload. OllamaAvailable mirrors GeneratorAvailable
// for clients of the older field name.
type Health struct {
	Status             string `json:"status"`
	DocumentCount      int    `json:"database_documents"`
	GeneratorAvailable bool   `json:"generator_available"`
	OllamaAvailable    bool   `json:"ollama_available"`
}

func NewService(embedder types.Embedder, store types.VectorStore, generator types.Generator, config Config) (*Service, error) {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	policies := config.Policies.withDefaults()

	pipeline, err := NewPipeline(embedder, store, PipelineConfig{
		ChunkSize:    config.ChunkSize,
		ChunkOverlap: config.ChunkOverlap,
		Policies:     policies,
		Logger:       logger,
		OnProgress:   config.OnProgress,
	})
	if err != nil {
		return nil, err
	}

	retriever, err := NewRetriever(embedder, store, policies)
	if err != nil {
		return nil, err
	}

	synthesizer, err := NewSynthesizer(generator, SynthesizerConfig{
		Policy:          policies.Generate,
		MaxContextChars: config.MaxContextChars,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		pipeline:    pipeline,
		retriever:   retriever,
		synthesizer: synthesizer,
		store:       store,
		generator:   generator,
		policies:    policies,
		strict:      config.StrictGeneration,
		logger:      logger,
	}, nil
}

// Ask answers question from the topK nearest chunks. No matching chunks is
// reported as types.ErrEmptyRetrieval and the generator is not called.
func (s *Service) Ask(ctx context.Context, question string, topK int) (models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return models.Answer{}, types.Configf("ask", "question must not be empty")
	}

	retrieved, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return models.Answer{}, err
	}
	if len(retrieved) == 0 {
		return models.Answer{}, &types.Error{Kind: types.ErrEmptyRetrieval, Op: "retrieve"}
	}

	answer := s.synthesizer.Synthesize(ctx, question, retrieved)
	if answer.Degraded() {
		s.logger.Printf("Generation failed, returning degraded answer: %v", answer.GenerationErr)
		if s.strict {
			return answer, answer.GenerationErr
		}
	}
	return answer, nil
}

// Retrieve exposes the retrieval step on its own.
func (s *Service) Retrieve(ctx context.Context, question string, topK int) ([]models.RetrievedChunk, error) {
	return s.retriever.Retrieve(ctx, question, topK)
}

func (s *Service) Ingest(ctx context.Context, docs []models.Document) (models.IngestionResult, error) {
	return s.pipeline.Ingest(ctx, docs)
}

// Populate fills an empty store from src. When the store already holds
// chunks the source is not fetched at all.
func (s *Service) Populate(ctx context.Context, src types.Source) (models.IngestionResult, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return models.IngestionResult{}, err
	}
	if count > 0 {
		s.logger.Printf("Collection already has %d chunks", count)
		return models.IngestionResult{Skipped: true}, nil
	}

	s.logger.Printf("Fetching documents...")
	docs, err := src.Fetch(ctx)
	if err != nil {
		return models.IngestionResult{}, fmt.Errorf("fetch documents: %w", err)
	}
	if len(docs) == 0 {
		s.logger.Printf("No documents fetched, check the source configuration and network access")
		return models.IngestionResult{}, nil
	}

	return s.pipeline.Ingest(ctx, docs)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return call(ctx, s.policies.Store, types.ErrStore, "count", s.store.Count)
}

// Health reports the store size and whether the generator answers a ping.
// Generators that cannot be pinged are reported available.
func (s *Service) Health(ctx context.Context) Health {
	health := Health{Status: "healthy", GeneratorAvailable: true}

	count, err := s.Count(ctx)
	if err != nil {
		s.logger.Printf("Health check: %v", err)
		health.Status = "degraded"
	}
	health.DocumentCount = count

	if pinger, ok := s.generator.(types.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			health.GeneratorAvailable = false
		}
	}
	health.OllamaAvailable = health.GeneratorAvailable

	return health
}
