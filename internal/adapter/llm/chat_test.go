package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmonKarmaker/ai-support-system/internal/port"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ChatClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("TEST_LLM_KEY", "k")
	c, err := NewChatClient("custom", "test-model", srv.URL, "TEST_LLM_KEY", time.Second)
	require.NoError(t, err)
	return c
}

func TestChatClient_Complete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 0.2, req.Temperature)
		assert.Equal(t, 256, req.MaxTokens)
		require.Len(t, req.Messages, 2)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Hello there.  "}}]}`))
	})

	out, err := c.Complete(context.Background(), port.CompletionRequest{
		Messages:    []port.Message{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}},
		Temperature: 0.2,
		MaxTokens:   256,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", out)
	assert.Equal(t, "test-model", c.ModelName())
}

func TestChatClient_StatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := c.Complete(context.Background(), port.CompletionRequest{})
			require.Error(t, err)
			var pe *port.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.transient, port.IsTransient(err))
		})
	}
}

func TestChatClient_EmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Complete(context.Background(), port.CompletionRequest{})
	require.Error(t, err)
	assert.False(t, port.IsTransient(err))
}

func TestChatClient_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, port.CompletionRequest{})
	require.Error(t, err)
	assert.True(t, port.IsTransient(err))
}

func TestNewChatClient(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	_, err := NewChatClient("groq", "llama-3.3-70b-versatile", "", "", 0)
	assert.Error(t, err)

	_, err = NewChatClient("mystery", "m", "", "", 0)
	assert.Error(t, err)

	c, err := NewChatClient("ollama", "llama3", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:11434/v1", c.baseURL)
}
