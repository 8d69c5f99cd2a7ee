package rag_test

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/pkg/llm"
	"github.com/xhad/ragchat/pkg/rag"
	"github.com/xhad/ragchat/pkg/store"
)

// single attempts keep failure tests fast
var testPolicies = rag.Policies{
	Embed:    rag.CallPolicy{Attempts: 1},
	Store:    rag.CallPolicy{Attempts: 1},
	Generate: rag.CallPolicy{Attempts: 1},
}

var quietLogger = log.New(io.Discard, "", 0)

type fakeEmbedder struct {
	mu         sync.Mutex
	inner      *llm.HashEmbedder
	err        error
	short      bool // drop the last vector from Embed
	embedCalls int
	queryCalls int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{inner: llm.NewHashEmbedder(1024)}
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.embedCalls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	vectors, err := e.inner.Embed(ctx, texts)
	if e.short && len(vectors) > 0 {
		vectors = vectors[:len(vectors)-1]
	}
	return vectors, err
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queryCalls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.inner.EmbedQuery(ctx, text)
}

type fakeStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	countErr error
	addErr   error
	queryErr error
	counts   int
	adds     int
	queries  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{MemoryStore: store.NewMemory()}
}

func (s *fakeStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	s.counts++
	s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.MemoryStore.Count(ctx)
}

func (s *fakeStore) Add(ctx context.Context, ids []string, vectors [][]float32, texts []string, metadata []map[string]interface{}) error {
	s.mu.Lock()
	s.adds++
	s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	return s.MemoryStore.Add(ctx, ids, vectors, texts, metadata)
}

func (s *fakeStore) Query(ctx context.Context, vector []float32, topK int) ([]models.StoreItem, error) {
	s.mu.Lock()
	s.queries++
	s.mu.Unlock()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.MemoryStore.Query(ctx, vector, topK)
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	pingErr error
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) Ping(ctx context.Context) error {
	return g.pingErr
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type fakeSource struct {
	docs    []models.Document
	err     error
	fetches int
}

func (s *fakeSource) Fetch(ctx context.Context) ([]models.Document, error) {
	s.fetches++
	return s.docs, s.err
}

var errBoom = errors.New("boom")
