package store

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
)

const (
	BackendPGVector = "pgvector"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

type Config struct {
	Backend    string
	ConnString string // Postgres URL for pgvector
	Path       string // database file for sqlite
	TableName  string
	VectorDim  int
	BatchSize  int
}

// New opens the vector store selected by config.Backend.
func New(ctx context.Context, config Config) (types.VectorStore, error) {
	switch config.Backend {
	case BackendPGVector:
		pg, err := NewPGVector(ctx, VectorStoreConfig{
			ConnString: config.ConnString,
			TableName:  config.TableName,
			VectorDim:  config.VectorDim,
			BatchSize:  config.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return pg, nil
	case BackendSQLite, "":
		lite, err := NewSQLite(ctx, config.Path)
		if err != nil {
			return nil, err
		}
		return lite, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown vector store backend: %s", config.Backend)
	}
}

func checkAligned(ids []string, vectors [][]float32, texts []string, metadata []map[string]interface{}) error {
	if len(vectors) != len(ids) || len(texts) != len(ids) || len(metadata) != len(ids) {
		return fmt.Errorf("misaligned add: %d ids, %d vectors, %d texts, %d metadata",
			len(ids), len(vectors), len(texts), len(metadata))
	}
	return nil
}

// cosineDistance returns 1 - cos(a, b). Zero vectors are maximally distant.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		na += float64(v) * float64(v)
	}
	for _, v := range b {
		nb += float64(v) * float64(v)
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// nearest sorts items by ascending distance, keeping insertion order for
// ties, and truncates to topK.
func nearest(items []models.StoreItem, topK int) []models.StoreItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Distance < items[j].Distance
	})
	if topK < len(items) {
		items = items[:topK]
	}
	return items
}

func metaString(meta map[string]interface{}, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(meta map[string]interface{}, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func copyMetadata(meta map[string]interface{}) map[string]interface{} {
	if meta == nil {
		return nil
	}
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
