package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bookforge/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.GenerationConfig{
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: 5,
	}, "")
}

func TestGenerateSuccess(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  generated text \n"}}]}`))
	})

	text, err := client.Generate(context.Background(), "write something")
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)
}

func TestGenerateServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := client.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestGenerateThrottlingIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestGenerateBadRequestIsFatal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	})

	_, err := client.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestGenerateEmptyChoicesIsFatal(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.False(t, IsTransient(err))
}

func TestGenerateConnectionRefusedIsTransient(t *testing.T) {
	client := NewClient(config.GenerationConfig{
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Model:   "m",
		Timeout: 1,
	}, "")
	_, err := client.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestRenderPromptIncludesBasePrompt(t *testing.T) {
	client := NewClient(config.GenerationConfig{BaseURL: "http://x", Model: "m", Timeout: 1}, "persona prefix")
	assert.Equal(t, "persona prefix\n\nthe prompt", client.RenderPrompt("the prompt"))

	bare := NewClient(config.GenerationConfig{BaseURL: "http://x", Model: "m", Timeout: 1}, "")
	assert.Equal(t, "the prompt", bare.RenderPrompt("the prompt"))
}
