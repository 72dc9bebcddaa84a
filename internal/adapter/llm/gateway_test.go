package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/entertainbot/internal/apperr"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/tools"
)

const textCompletion = `{
	"id": "gen-1",
	"model": "test-model",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "Naruto is great."}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
}`

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g := NewGateway(Config{
		APIKey:     "sk-test",
		Model:      "test-model",
		BaseURL:    server.URL,
		Timeout:    time.Second,
		MaxRetries: 2,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	var sleeps []time.Duration
	g.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return g, &sleeps
}

func TestChatCompletionText(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, defaultReferer, r.Header.Get("HTTP-Referer"))
		assert.Equal(t, defaultTitle, r.Header.Get("X-Title"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "tools")
		assert.NotContains(t, body, "tool_choice")
		assert.Equal(t, float64(2048), body["max_tokens"])

		fmt.Fprint(w, textCompletion)
	})

	resp, err := g.ChatCompletion(context.Background(), []domain.Message{domain.UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.False(t, resp.HasToolCalls())
	assert.Equal(t, "Naruto is great.", resp.Content())
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 16, resp.Usage.TotalTokens)
}

func TestChatCompletionToolCallsDropsBadArguments(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "auto", body["tool_choice"])
		assert.Len(t, body["tools"], 13)

		fmt.Fprint(w, `{
			"choices": [{"message": {"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "search_anime", "arguments": "{\"query\":\"Naruto\"}"}},
				{"id": "call_2", "type": "function", "function": {"name": "search_manga", "arguments": "{not json"}}
			]}, "finish_reason": "tool_calls"}]
		}`)
	})

	resp, err := g.ChatCompletion(context.Background(), []domain.Message{domain.UserMessage("Tell me about Naruto")}, tools.MustDefinitions())
	require.NoError(t, err)
	require.True(t, resp.HasToolCalls())

	calls := resp.Reply.(domain.ToolCalls)
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "search_anime", calls[0].Name)
	assert.Equal(t, map[string]any{"query": "Naruto"}, calls[0].Arguments)
}

func TestChatCompletionSendsToolHistory(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role       string `json:"role"`
				Name       string `json:"name"`
				ToolCallID string `json:"tool_call_id"`
				ToolCalls  []struct {
					ID       string `json:"id"`
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 3)
		assert.Equal(t, "call_1", body.Messages[1].ToolCalls[0].ID)
		assert.JSONEq(t, `{"query":"Naruto"}`, body.Messages[1].ToolCalls[0].Function.Arguments)
		assert.Equal(t, "tool", body.Messages[2].Role)
		assert.Equal(t, "call_1", body.Messages[2].ToolCallID)
		assert.Equal(t, "search_anime", body.Messages[2].Name)
		fmt.Fprint(w, textCompletion)
	})

	history := []domain.Message{
		domain.UserMessage("Naruto?"),
		domain.AssistantToolCalls([]domain.ToolCallRequest{{ID: "call_1", Name: "search_anime", Arguments: map[string]any{"query": "Naruto"}}}),
		domain.ToolResult("call_1", "search_anime", `{"count":1}`),
	}
	_, err := g.ChatCompletion(context.Background(), history, nil)
	require.NoError(t, err)
}

func TestChatCompletionRetriesAfterRateLimit(t *testing.T) {
	var hits int32
	g, sleeps := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
			return
		}
		fmt.Fprint(w, textCompletion)
	})

	resp, err := g.ChatCompletion(context.Background(), []domain.Message{domain.UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Naruto is great.", resp.Content())
	assert.Equal(t, []time.Duration{time.Second}, *sleeps)
}

func TestChatCompletionRateLimitExhausted(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
	})

	_, err := g.ChatCompletion(context.Background(), []domain.Message{domain.UserMessage("hi")}, nil)

	var rateErr *apperr.LLMRateLimited
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, 3.0, rateErr.RetryAfter)
}

func TestChatCompletionServerErrorBacksOff(t *testing.T) {
	var hits int32
	g, sleeps := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":{"message":"upstream down"}}`)
	})

	_, err := g.ChatCompletion(context.Background(), []domain.Message{domain.UserMessage("hi")}, nil)

	var llmErr *apperr.LLMServiceError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, http.StatusBadGateway, llmErr.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, []time.Duration{time.Second}, *sleeps)
}

func TestChatCompletionClientErrorIsNotRetried(t *testing.T) {
	var hits int32
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	})

	_, err := g.ChatCompletion(context.Background(), []domain.Message{domain.UserMessage("hi")}, nil)

	var llmErr *apperr.LLMServiceError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, http.StatusUnauthorized, llmErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestChatCompletionNoChoices(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	})

	_, err := g.ChatCompletion(context.Background(), []domain.Message{domain.UserMessage("hi")}, nil)

	var llmErr *apperr.LLMServiceError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, "no choices", llmErr.Message)
}

func TestMockClientScriptThenEcho(t *testing.T) {
	m := NewMockClient(ToolStep(domain.ToolCallRequest{ID: "1", Name: "search_anime"}))

	first, err := m.ChatCompletion(context.Background(), []domain.Message{domain.UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.True(t, first.HasToolCalls())

	second, err := m.ChatCompletion(context.Background(), []domain.Message{domain.UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, `[MOCK] Received your message: "hi". This is a mock response.`, second.Content())
	assert.Len(t, m.Requests(), 2)
}

func TestNewClientMockMode(t *testing.T) {
	_, ok := NewClient("mock", Config{}).(*MockClient)
	assert.True(t, ok)
	_, ok = NewClient("", Config{APIKey: "k"}).(*Gateway)
	assert.True(t, ok)
}
