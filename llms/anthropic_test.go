package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicClient_Invoke_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "you are terse", req.System)

		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "hello there"}},
			Model:   "claude-3",
			Usage:   anthropicUsage{InputTokens: 10, OutputTokens: 3},
		})
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key", "claude-3", server.URL)
	resp, err := client.Invoke(context.Background(), []Message{
		{Role: RoleSystem, Content: "you are terse"},
		{Role: RoleUser, Content: "hi"},
	}, Options{})

	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, 10, resp.Usage.InputTokens)
	assert.Equal(t, "claude-3", client.ModelName())
}

func TestAnthropicClient_Invoke_FatalErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(anthropicResponse{Error: &anthropicError{Message: "invalid api key"}})
	}))
	defer server.Close()

	client := NewAnthropicClient("bad-key", "claude-3", server.URL)
	_, err := client.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "a 401 is fatal and must not be retried")
}

func TestAnthropicClient_Invoke_RateLimitIsRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(anthropicResponse{Error: &anthropicError{Message: "rate limited"}})
			return
		}
		json.NewEncoder(w).Encode(anthropicResponse{Content: []anthropicContent{{Type: "text", Text: "ok"}}})
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key", "claude-3", server.URL)
	client.baseDelay = 0

	resp, err := client.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, calls)
}
