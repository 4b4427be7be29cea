package client_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/openai/openai-go"
	"github.com/robalyx/lumi/internal/ai/client"
	"github.com/robalyx/lumi/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func completionBody(content, finishReason string) string {
	return `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "test-model",
		"choices": [{
			"index": 0,
			"finish_reason": "` + finishReason + `",
			"message": {"role": "assistant", "content": ` + quote(content) + `}
		}],
		"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
	}`
}

func quote(s string) string {
	raw, _ := sonic.MarshalString(s)
	return raw
}

func newClient(t *testing.T, url string, timeout time.Duration) *client.AIClient {
	t.Helper()

	c, err := client.NewClient(&config.OpenAI{
		BaseURL:        url,
		APIKey:         "sk-test",
		MaxConcurrent:  2,
		PoolSize:       2,
		RequestTimeout: int(timeout / time.Millisecond),
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	return c
}

func params() openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:    "test-model",
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")},
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := client.NewClient(&config.OpenAI{}, zaptest.NewLogger(t))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestChatNew(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("hello there", "stop"))
	}))
	defer server.Close()

	c := newClient(t, server.URL, time.Second)

	p := params()
	p.SetExtraFields(map[string]any{"reasoning": map[string]any{"effort": "low"}})

	resp, err := c.Chat().New(t.Context(), p)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello there", resp.Choices[0].Message.Content)

	assert.Equal(t, "test-model", gotBody["model"])
	assert.Equal(t, map[string]any{"effort": "low"}, gotBody["reasoning"])
}

func TestChatNewContentFilter(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody("", "content_filter"))
	}))
	defer server.Close()

	c := newClient(t, server.URL, time.Second)

	_, err := c.Chat().New(t.Context(), params())
	require.ErrorIs(t, err, client.ErrContentBlocked)
}

func TestChatNewTimeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer server.Close()

	c := newClient(t, server.URL, 50*time.Millisecond)

	start := time.Now()
	_, err := c.Chat().New(t.Context(), params())
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestChatNewCircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "boom"}}`)
	}))
	defer server.Close()

	c := newClient(t, server.URL, time.Second)

	for range 10 {
		_, err := c.Chat().New(t.Context(), params())
		require.Error(t, err)
		require.NotErrorIs(t, err, client.ErrCircuitOpen)
	}

	_, err := c.Chat().New(t.Context(), params())
	require.ErrorIs(t, err, client.ErrCircuitOpen)
	assert.Equal(t, int32(10), calls.Load())
}
