package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
	"github.com/xhad/ragchat/pkg/rag"
)

func newTestService(t *testing.T, emb *fakeEmbedder, st *fakeStore, gen *fakeGenerator, strict bool) *rag.Service {
	t.Helper()
	svc, err := rag.NewService(emb, st, gen, rag.Config{
		ChunkSize:        500,
		ChunkOverlap:     50,
		StrictGeneration: strict,
		Policies:         testPolicies,
		Logger:           quietLogger,
	})
	require.NoError(t, err)
	return svc
}

func TestAsk_EmptyStore(t *testing.T) {
	gen := &fakeGenerator{reply: "unused"}
	svc := newTestService(t, newFakeEmbedder(), newFakeStore(), gen, false)

	_, err := svc.Ask(context.Background(), "What is AI?", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrEmptyRetrieval))
	assert.Zero(t, gen.calls())
}

func TestAsk_EmptyQuestion(t *testing.T) {
	emb := newFakeEmbedder()
	svc := newTestService(t, emb, newFakeStore(), &fakeGenerator{}, false)

	_, err := svc.Ask(context.Background(), "   ", 3)
	assert.True(t, errors.Is(err, types.ErrConfig))
	assert.Zero(t, emb.queryCalls)
}

func TestAsk_InvalidTopK(t *testing.T) {
	svc := newTestService(t, newFakeEmbedder(), newFakeStore(), &fakeGenerator{}, false)

	_, err := svc.Ask(context.Background(), "question", 0)
	assert.True(t, errors.Is(err, types.ErrConfig))
}

func TestService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: "It is about words."}
	svc := newTestService(t, newFakeEmbedder(), newFakeStore(), gen, false)

	result, err := svc.Ingest(ctx, []models.Document{{Title: "T", Content: thousandWords(), URL: "u"}})
	require.NoError(t, err)
	assert.Equal(t, 3, result.ChunksAdded)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	retrieved, err := svc.Retrieve(ctx, "anything", 1)
	require.NoError(t, err)
	require.Len(t, retrieved, 1)
	assert.Equal(t, "T", retrieved[0].SourceTitle)
	assert.Equal(t, "u", retrieved[0].SourceURL)

	answer, err := svc.Ask(ctx, "word42 word43", 3)
	require.NoError(t, err)
	assert.Equal(t, "It is about words.", answer.Text)
	assert.Equal(t, []string{"T (u)"}, answer.Sources)
	assert.False(t, answer.Degraded())

	require.Equal(t, 1, gen.calls())
	assert.True(t, strings.HasSuffix(gen.prompts[0], "Question: word42 word43\n\nAnswer:"))
}

func TestAsk_GenerationFailure(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errBoom}
	svc := newTestService(t, newFakeEmbedder(), newFakeStore(), gen, false)

	_, err := svc.Ingest(ctx, []models.Document{{Title: "A", Content: "alpha beta gamma"}})
	require.NoError(t, err)

	answer, err := svc.Ask(ctx, "alpha", 3)
	require.NoError(t, err)
	assert.True(t, answer.Degraded())
	assert.True(t, errors.Is(answer.GenerationErr, types.ErrGeneration))
	assert.Equal(t, []string{"A"}, answer.Sources)
}

func TestAsk_StrictGeneration(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{err: errBoom}
	svc := newTestService(t, newFakeEmbedder(), newFakeStore(), gen, true)

	_, err := svc.Ingest(ctx, []models.Document{{Title: "A", Content: "alpha beta gamma"}})
	require.NoError(t, err)

	answer, err := svc.Ask(ctx, "alpha", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrGeneration))
	assert.True(t, answer.Degraded())
	assert.Equal(t, []string{"A"}, answer.Sources)
}

func TestPopulate(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	svc := newTestService(t, newFakeEmbedder(), st, &fakeGenerator{}, false)
	src := &fakeSource{docs: []models.Document{{Title: "A", Content: "alpha beta gamma"}}}

	result, err := svc.Populate(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Documents)
	assert.Equal(t, 1, result.ChunksAdded)
	assert.Equal(t, 1, src.fetches)

	result, err = svc.Populate(ctx, src)
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 1, src.fetches)
}

func TestPopulate_FetchError(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(t, newFakeEmbedder(), st, &fakeGenerator{}, false)

	_, err := svc.Populate(context.Background(), &fakeSource{err: errBoom})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom))
	assert.Zero(t, st.adds)
}

func TestPopulate_NoDocuments(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(t, newFakeEmbedder(), st, &fakeGenerator{}, false)

	result, err := svc.Populate(context.Background(), &fakeSource{})
	require.NoError(t, err)
	assert.Equal(t, models.IngestionResult{}, result)
	assert.Zero(t, st.adds)
}

func TestHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy", func(t *testing.T) {
		svc := newTestService(t, newFakeEmbedder(), newFakeStore(), &fakeGenerator{}, false)
		_, err := svc.Ingest(ctx, []models.Document{{Title: "A", Content: "alpha"}})
		require.NoError(t, err)

		health := svc.Health(ctx)
		assert.Equal(t, "healthy", health.Status)
		assert.Equal(t, 1, health.DocumentCount)
		assert.True(t, health.GeneratorAvailable)
		assert.True(t, health.OllamaAvailable)
	})

	t.Run("generator down", func(t *testing.T) {
		svc := newTestService(t, newFakeEmbedder(), newFakeStore(), &fakeGenerator{pingErr: errBoom}, false)

		health := svc.Health(ctx)
		assert.Equal(t, "healthy", health.Status)
		assert.False(t, health.GeneratorAvailable)
		assert.False(t, health.OllamaAvailable)
	})

	t.Run("store down", func(t *testing.T) {
		st := newFakeStore()
		st.countErr = errBoom
		svc := newTestService(t, newFakeEmbedder(), st, &fakeGenerator{}, false)

		health := svc.Health(ctx)
		assert.Equal(t, "degraded", health.Status)
		assert.Zero(t, health.DocumentCount)
	})
}

func TestNewService_NilGenerator(t *testing.T) {
	_, err := rag.NewService(newFakeEmbedder(), newFakeStore(), nil, rag.Config{Logger: quietLogger})
	assert.Error(t, err)
}
