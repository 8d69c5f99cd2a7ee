package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
	"github.com/xhad/ragchat/pkg/store"
)

// runStoreSuite checks the behaviour every backend has to share.
func runStoreSuite(t *testing.T, s types.VectorStore) {
	ctx := context.Background()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	items, err := s.Query(ctx, []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, items)

	ids := []string{"0_0", "0_1", "1_0"}
	vectors := [][]float32{{1, 0, 0}, {0.8, 0.6, 0}, {0, 0, 1}}
	texts := []string{"alpha", "beta", "gamma"}
	metadata := []map[string]interface{}{
		{models.MetaTitle: "Doc A", models.MetaURL: "https://a", models.MetaChunkID: 0},
		{models.MetaTitle: "Doc A", models.MetaURL: "https://a", models.MetaChunkID: 1},
		{models.MetaTitle: "Doc B", models.MetaURL: "", models.MetaChunkID: 0},
	}
	require.NoError(t, s.Add(ctx, ids, vectors, texts, metadata))

	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	t.Run("ascending distance", func(t *testing.T) {
		items, err := s.Query(ctx, []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, items, 3)

		assert.Equal(t, "alpha", items[0].Text)
		assert.Equal(t, "beta", items[1].Text)
		assert.Equal(t, "gamma", items[2].Text)
		assert.InDelta(t, 0.0, items[0].Distance, 1e-4)
		assert.InDelta(t, 0.2, items[1].Distance, 1e-4)
		assert.InDelta(t, 1.0, items[2].Distance, 1e-4)
		assert.Equal(t, "Doc A", items[0].Metadata[models.MetaTitle])
		assert.Equal(t, "https://a", items[0].Metadata[models.MetaURL])
	})

	t.Run("topK larger than store", func(t *testing.T) {
		items, err := s.Query(ctx, []float32{0, 0, 1}, 10)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "gamma", items[0].Text)
	})

	t.Run("topK truncates", func(t *testing.T) {
		items, err := s.Query(ctx, []float32{0, 0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Doc B", items[0].Metadata[models.MetaTitle])
	})

	t.Run("re-adding an id replaces it", func(t *testing.T) {
		require.NoError(t, s.Add(ctx, []string{"1_0"}, [][]float32{{0, 1, 0}}, []string{"gamma v2"},
			[]map[string]interface{}{{models.MetaTitle: "Doc B"}}))

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		items, err := s.Query(ctx, []float32{0, 1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "gamma v2", items[0].Text)
	})

	t.Run("misaligned add", func(t *testing.T) {
		err := s.Add(ctx, []string{"x"}, nil, []string{"x"}, []map[string]interface{}{{}})
		assert.Error(t, err)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("non-positive topK", func(t *testing.T) {
		_, err := s.Query(ctx, []float32{1, 0, 0}, 0)
		assert.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemory()
	defer s.Close()

	runStoreSuite(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := store.NewSQLite(context.Background(), t.TempDir()+"/data/chunks.db")
	require.NoError(t, err)
	defer s.Close()

	runStoreSuite(t, s)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := store.NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()

	runStoreSuite(t, s)
}

func TestSQLiteStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/chunks.db"

	s, err := store.NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, []string{"0_0"}, [][]float32{{1, 2}}, []string{"kept"},
		[]map[string]interface{}{{models.MetaTitle: "T"}}))
	require.NoError(t, s.Close())

	reopened, err := store.NewSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	s, err := store.New(ctx, store.Config{Backend: store.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	s, err = store.New(ctx, store.Config{Backend: store.BackendSQLite, Path: t.TempDir() + "/x.db"})
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteStore{}, s)
	s.Close()

	_, err = store.New(ctx, store.Config{Backend: "chroma"})
	assert.Error(t, err)
}
