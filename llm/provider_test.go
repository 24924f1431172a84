package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderSelection(t *testing.T) {
	t.Run("defaults to ollama", func(t *testing.T) {
		p, err := NewProvider(Config{})
		require.NoError(t, err)
		assert.Equal(t, "ollama", p.Name())
	})

	t.Run("openai without credential", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		_, err := NewProvider(Config{Provider: "openai"})
		assert.True(t, errors.Is(err, ErrMissingCredential))
	})

	t.Run("openai with credential", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		p, err := NewProvider(Config{Provider: "openai"})
		require.NoError(t, err)
		assert.Equal(t, "openai", p.Name())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewProvider(Config{Provider: "clippy"})
		assert.Error(t, err)
	})
}

func TestOllamaComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Summarize this", req["prompt"])
		json.NewEncoder(w).Encode(map[string]string{"response": "A summary."})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "test-model", time.Second)
	got, err := p.Complete(context.Background(), "Summarize this", 100)
	require.NoError(t, err)
	assert.Equal(t, "A summary.", got)
}

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"keywords, here"}}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.URL, "gpt-4o-mini", "sk-test", time.Second)
	got, err := p.Complete(context.Background(), "Extract keywords", 50)
	require.NoError(t, err)
	assert.Equal(t, "keywords, here", got)
}

func TestOpenAICompleteErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.URL, "", "sk-test", time.Second)
	_, err := p.Complete(context.Background(), "x", 10)
	assert.Error(t, err)
}

func TestOllamaCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL, "m", 20*time.Millisecond)
	_, err := p.Complete(context.Background(), "x", 10)
	assert.Error(t, err)
}
