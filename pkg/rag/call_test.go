package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragchat/internal/types"
)

var errTransient = errors.New("transient")

func TestCall_RetriesThenSucceeds(t *testing.T) {
	attempts := 0
	policy := CallPolicy{Attempts: 3, Backoff: time.Millisecond}

	got, err := call(context.Background(), policy, types.ErrEmbedding, "embed", func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errTransient
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, attempts)
}

func TestCall_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	policy := CallPolicy{Attempts: 2, Backoff: time.Millisecond}

	err := do(context.Background(), policy, types.ErrStore, "add", func(ctx context.Context) error {
		attempts++
		return errTransient
	})

	assert.Equal(t, 2, attempts)
	assert.True(t, errors.Is(err, types.ErrStore))
	assert.True(t, errors.Is(err, errTransient))
	assert.False(t, errors.Is(err, types.ErrTimeout))
}

func TestCall_Timeout(t *testing.T) {
	policy := CallPolicy{Timeout: 10 * time.Millisecond, Attempts: 1}

	_, err := call(context.Background(), policy, types.ErrGeneration, "generate", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrTimeout))
	assert.True(t, errors.Is(err, types.ErrGeneration))
}

func TestCall_FlattenedDeadline(t *testing.T) {
	policy := CallPolicy{Timeout: 10 * time.Millisecond, Attempts: 1}

	_, err := call(context.Background(), policy, types.ErrEmbedding, "embed", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", errors.New("request failed: i/o timeout")
	})

	assert.True(t, errors.Is(err, types.ErrTimeout))
	assert.True(t, errors.Is(err, types.ErrEmbedding))
}

func TestCall_ConfigErrorNotRetried(t *testing.T) {
	attempts := 0
	policy := CallPolicy{Attempts: 3, Backoff: time.Millisecond}

	err := do(context.Background(), policy, types.ErrStore, "query", func(ctx context.Context) error {
		attempts++
		return types.Configf("query", "bad dimension")
	})

	assert.Equal(t, 1, attempts)
	assert.True(t, errors.Is(err, types.ErrConfig))
}

func TestCall_CanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	policy := CallPolicy{Attempts: 5, Backoff: time.Second}

	err := do(ctx, policy, types.ErrEmbedding, "embed", func(ctx context.Context) error {
		attempts++
		return ctx.Err()
	})

	assert.Equal(t, 1, attempts)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, types.ErrEmbedding))
}

func TestPolicies_WithDefaults(t *testing.T) {
	custom := CallPolicy{Timeout: time.Second, Attempts: 2}
	p := Policies{Store: custom}.withDefaults()

	assert.Equal(t, custom, p.Store)
	assert.Equal(t, DefaultPolicies().Embed, p.Embed)
	assert.Equal(t, DefaultPolicies().Generate, p.Generate)
}
