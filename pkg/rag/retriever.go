package rag

import (
	"context"
	"fmt"

	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
)

// DefaultTopK is the number of chunks retrieved when a request does not say.
const DefaultTopK = 3

// Retriever turns a question into the nearest stored chunks.
type Retriever struct {
	embedder types.Embedder
	store    types.VectorStore
	policies Policies
}

func NewRetriever(embedder types.Embedder, store types.VectorStore, policies Policies) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		policies: policies.withDefaults(),
	}, nil
}

// Retrieve returns up to topK chunks, best match first. An empty store
// yields an empty slice and no error.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]models.RetrievedChunk, error) {
	if topK < 1 {
		return nil, types.Configf("retrieve", "top_k must be a positive integer, got %d", topK)
	}

	vector, err := call(ctx, r.policies.Embed, types.ErrEmbedding, "embed query", func(ctx context.Context) ([]float32, error) {
		return r.embedder.EmbedQuery(ctx, question)
	})
	if err != nil {
		return nil, err
	}

	items, err := call(ctx, r.policies.Store, types.ErrStore, "query", func(ctx context.Context) ([]models.StoreItem, error) {
		return r.store.Query(ctx, vector, topK)
	})
	if err != nil {
		return nil, err
	}

	retrieved := make([]models.RetrievedChunk, 0, len(items))
	for _, item := range items {
		retrieved = append(retrieved, models.RetrievedChunk{
			Text:        item.Text,
			SourceTitle: metaString(item.Metadata, models.MetaTitle),
			SourceURL:   metaString(item.Metadata, models.MetaURL),
			Distance:    item.Distance,
		})
	}

	return retrieved, nil
}

func metaString(meta map[string]interface{}, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
