package types

import (
	"context"

	"github.com/xhad/ragchat/internal/models"
)

// Core interfaces
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Count(ctx context.Context) (int, error)
	// Add stores positionally aligned ids, vectors, texts and metadata.
	Add(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadata []map[string]interface{}) error
	// Query returns up to topK items in ascending distance order.
	Query(ctx context.Context, vector []float32, topK int) ([]models.StoreItem, error)
	Close() error
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pinger is implemented by generators that can report availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Source interface {
	Fetch(ctx context.Context) ([]models.Document, error)
}
