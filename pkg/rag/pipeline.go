package rag

import (
	"context"
	"fmt"
	"log"

	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
	"github.com/xhad/ragchat/pkg/processor"
)

// Ingestion stages reported through OnProgress.
const (
	StageChunking  = "chunking"
	StageEmbedding = "embedding"
	StageStoring   = "storing"
)

type PipelineConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Policies     Policies
	Logger       *log.Logger
	OnProgress   func(stage string, items int)
}

// Pipeline populates a vector store from documents.
type Pipeline struct {
	processor  processor.Processor
	embedder   types.Embedder
	store      types.VectorStore
	policies   Policies
	logger     *log.Logger
	onProgress func(stage string, items int)
}

func NewPipeline(embedder types.Embedder, store types.VectorStore, config PipelineConfig) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}

	proc, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    config.ChunkSize,
		ChunkOverlap: config.ChunkOverlap,
	})
	if err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Pipeline{
		processor:  proc,
		embedder:   embedder,
		store:      store,
		policies:   config.Policies.withDefaults(),
		logger:     logger,
		onProgress: config.OnProgress,
	}, nil
}

// Ingest chunks, embeds and stores docs unless the store already holds
// data. The check is coarse: a non-empty store is never topped up.
func (p *Pipeline) Ingest(ctx context.Context, docs []models.Document) (models.IngestionResult, error) {
	if len(docs) == 0 {
		p.logger.Printf("No documents to ingest")
		return models.IngestionResult{}, nil
	}

	count, err := call(ctx, p.policies.Store, types.ErrStore, "count", p.store.Count)
	if err != nil {
		return models.IngestionResult{}, err
	}
	if count > 0 {
		p.logger.Printf("Collection already has %d chunks, skipping ingestion", count)
		return models.IngestionResult{Skipped: true}, nil
	}

	p.progress(StageChunking, len(docs))
	chunks, err := p.processor.Process(docs)
	if err != nil {
		return models.IngestionResult{}, err
	}
	if len(chunks) == 0 {
		p.logger.Printf("Documents produced no chunks")
		return models.IngestionResult{Documents: len(docs)}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	p.progress(StageEmbedding, len(texts))
	vectors, err := call(ctx, p.policies.Embed, types.ErrEmbedding, "embed", func(ctx context.Context) ([][]float32, error) {
		return p.embedder.Embed(ctx, texts)
	})
	if err != nil {
		return models.IngestionResult{}, err
	}
	if len(vectors) != len(texts) {
		return models.IngestionResult{}, types.Wrap(types.ErrEmbedding, "embed",
			fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors)))
	}

	ids, vectors, texts, metadata := models.Columns(models.Index(chunks, vectors))

	p.progress(StageStoring, len(ids))
	p.logger.Printf("Adding %d document chunks to the vector store...", len(ids))
	err = do(ctx, p.policies.Store, types.ErrStore, "add", func(ctx context.Context) error {
		return p.store.Add(ctx, ids, vectors, texts, metadata)
	})
	if err != nil {
		return models.IngestionResult{}, err
	}

	p.logger.Printf("Successfully added %d chunks from %d documents", len(ids), len(docs))
	return models.IngestionResult{Documents: len(docs), ChunksAdded: len(ids)}, nil
}

func (p *Pipeline) progress(stage string, items int) {
	if p.onProgress != nil {
		p.onProgress(stage, items)
	}
}
