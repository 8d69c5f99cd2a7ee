package llm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragchat/pkg/llm"
)

func TestNewWithConfig(t *testing.T) {
	config := llm.ChatConfig{
		Model:       "testmodel",
		Temperature: 0.5,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:1234",
	}
	engine, err := llm.NewWithConfig(config)
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfig_Invalid(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 3})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{MaxTokens: -1})
	assert.Error(t, err)
}

func TestChatEngine_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[{"name":"llama3:latest"}]}`))
	}))
	defer server.Close()

	engine, err := llm.NewWithConfig(llm.ChatConfig{BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, engine.Ping(context.Background()))
}

func TestChatEngine_PingUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine, err := llm.NewWithConfig(llm.ChatConfig{BaseURL: server.URL})
	require.NoError(t, err)
	assert.Error(t, engine.Ping(context.Background()))
}

func TestOpenAIChat_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Paris."}, "finish_reason": "stop"}]
		}`))
	}))
	defer server.Close()

	chat := llm.NewOpenAIChat(llm.ChatConfig{APIKey: "test", BaseURL: server.URL + "/v1"})
	answer, err := chat.Generate(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer)
}

func TestOpenAIChat_GenerateError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	chat := llm.NewOpenAIChat(llm.ChatConfig{APIKey: "test", BaseURL: server.URL + "/v1"})
	_, err := chat.Generate(context.Background(), "hello")
	assert.Error(t, err)
}

func TestNewGenerator(t *testing.T) {
	gen, err := llm.NewGenerator(llm.ChatConfig{Provider: llm.ProviderOllama})
	require.NoError(t, err)
	assert.IsType(t, &llm.ChatEngine{}, gen)

	gen, err = llm.NewGenerator(llm.ChatConfig{Provider: llm.ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &llm.OpenAIChat{}, gen)

	_, err = llm.NewGenerator(llm.ChatConfig{Provider: llm.ProviderOpenAI})
	assert.Error(t, err)

	_, err = llm.NewGenerator(llm.ChatConfig{Provider: "bard"})
	assert.Error(t, err)
}
