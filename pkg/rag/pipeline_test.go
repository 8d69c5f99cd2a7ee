package rag_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
	"github.com/xhad/ragchat/pkg/rag"
)

func thousandWords() string {
	words := make([]string, 1000)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i+1)
	}
	return strings.Join(words, " ")
}

func newTestPipeline(t *testing.T, emb *fakeEmbedder, st *fakeStore) *rag.Pipeline {
	t.Helper()
	p, err := rag.NewPipeline(emb, st, rag.PipelineConfig{
		ChunkSize:    500,
		ChunkOverlap: 50,
		Policies:     testPolicies,
		Logger:       quietLogger,
	})
	require.NoError(t, err)
	return p
}

func TestIngest_EmptyDocuments(t *testing.T) {
	emb, st := newFakeEmbedder(), newFakeStore()
	p := newTestPipeline(t, emb, st)

	result, err := p.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunksAdded)
	assert.False(t, result.Skipped)

	assert.Zero(t, emb.embedCalls)
	assert.Zero(t, st.counts)
	assert.Zero(t, st.adds)
}

func TestIngest_AddsChunks(t *testing.T) {
	emb, st := newFakeEmbedder(), newFakeStore()
	p := newTestPipeline(t, emb, st)

	docs := []models.Document{
		{Title: "T", Content: thousandWords(), URL: "u"},
		{Title: "Short", Content: "just a few words"},
	}

	result, err := p.Ingest(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 4, result.ChunksAdded)
	assert.Equal(t, 2, result.Documents)
	assert.False(t, result.Skipped)

	assert.Equal(t, 1, emb.embedCalls, "chunks are embedded in one batch")
	assert.Equal(t, 1, st.adds, "chunks are stored in one call")

	count, err := st.MemoryStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestIngest_SkipsPopulatedStore(t *testing.T) {
	emb, st := newFakeEmbedder(), newFakeStore()
	p := newTestPipeline(t, emb, st)
	docs := []models.Document{{Title: "T", Content: thousandWords(), URL: "u"}}

	first, err := p.Ingest(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 3, first.ChunksAdded)

	second, err := p.Ingest(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ChunksAdded)
	assert.True(t, second.Skipped)

	assert.Equal(t, 1, emb.embedCalls)
	assert.Equal(t, 1, st.adds)

	count, err := st.MemoryStore.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIngest_EmbeddingFailure(t *testing.T) {
	emb, st := newFakeEmbedder(), newFakeStore()
	emb.err = errBoom
	p := newTestPipeline(t, emb, st)

	_, err := p.Ingest(context.Background(), []models.Document{{Title: "T", Content: "a b c"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrEmbedding))
	assert.True(t, errors.Is(err, errBoom))
	assert.Zero(t, st.adds)
}

func TestIngest_EmbeddingCountMismatch(t *testing.T) {
	emb, st := newFakeEmbedder(), newFakeStore()
	emb.short = true
	p := newTestPipeline(t, emb, st)

	_, err := p.Ingest(context.Background(), []models.Document{{Title: "T", Content: thousandWords()}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrEmbedding))
	assert.Zero(t, st.adds)
}

func TestIngest_StoreFailure(t *testing.T) {
	emb, st := newFakeEmbedder(), newFakeStore()
	st.addErr = errBoom
	p := newTestPipeline(t, emb, st)

	_, err := p.Ingest(context.Background(), []models.Document{{Title: "T", Content: "a b c"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrStore))

	count, err := st.MemoryStore.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestIngest_CountFailure(t *testing.T) {
	emb, st := newFakeEmbedder(), newFakeStore()
	st.countErr = errBoom
	p := newTestPipeline(t, emb, st)

	_, err := p.Ingest(context.Background(), []models.Document{{Title: "T", Content: "a b c"}})
	assert.True(t, errors.Is(err, types.ErrStore))
	assert.Zero(t, emb.embedCalls)
}

func TestIngest_StoresMetadata(t *testing.T) {
	emb, st := newFakeEmbedder(), newFakeStore()
	p, err := rag.NewPipeline(emb, st, rag.PipelineConfig{ChunkSize: 2, ChunkOverlap: 0, Policies: testPolicies, Logger: quietLogger})
	require.NoError(t, err)

	_, err = p.Ingest(context.Background(), []models.Document{
		{Title: "Go", URL: "https://go.dev", Content: "gophers dig tunnels"},
	})
	require.NoError(t, err)

	query, err := emb.EmbedQuery(context.Background(), "tunnels")
	require.NoError(t, err)
	items, err := st.MemoryStore.Query(context.Background(), query, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "tunnels", items[0].Text)
	assert.Equal(t, "Go", items[0].Metadata[models.MetaTitle])
	assert.Equal(t, "https://go.dev", items[0].Metadata[models.MetaURL])
	assert.Equal(t, 1, items[0].Metadata[models.MetaChunkID])
	assert.Equal(t, 0, items[0].Metadata[models.MetaDocID])
}

func TestIngest_Progress(t *testing.T) {
	var stages []string
	p, err := rag.NewPipeline(newFakeEmbedder(), newFakeStore(), rag.PipelineConfig{
		Policies:   testPolicies,
		Logger:     quietLogger,
		OnProgress: func(stage string, _ int) { stages = append(stages, stage) },
	})
	require.NoError(t, err)

	_, err = p.Ingest(context.Background(), []models.Document{{Title: "T", Content: "a b c"}})
	require.NoError(t, err)
	assert.Equal(t, []string{rag.StageChunking, rag.StageEmbedding, rag.StageStoring}, stages)
}

func TestNewPipeline_InvalidChunking(t *testing.T) {
	_, err := rag.NewPipeline(newFakeEmbedder(), newFakeStore(), rag.PipelineConfig{ChunkSize: 50, ChunkOverlap: 50})
	assert.True(t, errors.Is(err, types.ErrConfig))

	_, err = rag.NewPipeline(nil, newFakeStore(), rag.PipelineConfig{})
	assert.Error(t, err)
}
