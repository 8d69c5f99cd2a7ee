package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
)

// MemoryStore is a brute-force in-process store, mostly useful for tests
// and one-off runs.
type MemoryStore struct {
	mu    sync.RWMutex
	index map[string]int
	rows  []memoryRow
}

type memoryRow struct {
	text     string
	vector   []float32
	metadata map[string]interface{}
}

var _ types.VectorStore = (*MemoryStore)(nil)

func NewMemory() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

func (s *MemoryStore) Add(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadata []map[string]interface{}) error {
	if err := checkAligned(ids, vectors, texts, metadata); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range ids {
		row := memoryRow{
			text:     texts[i],
			vector:   append([]float32(nil), vectors[i]...),
			metadata: copyMetadata(metadata[i]),
		}
		if idx, ok := s.index[id]; ok {
			s.rows[idx] = row
			continue
		}
		s.index[id] = len(s.rows)
		s.rows = append(s.rows, row)
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, topK int) ([]models.StoreItem, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.StoreItem, len(s.rows))
	for i, row := range s.rows {
		items[i] = models.StoreItem{
			Text:     row.text,
			Metadata: copyMetadata(row.metadata),
			Distance: cosineDistance(vector, row.vector),
		}
	}
	return nearest(items, topK), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
