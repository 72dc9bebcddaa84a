package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/xiaot623/entertainbot/internal/adapter/httpclient"
	"github.com/xiaot623/entertainbot/internal/apperr"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/tools"
)

// Defaults for OpenRouter.
const (
	DefaultBaseURL    = "https://openrouter.ai/api/v1"
	DefaultModel      = "google/gemini-2.0-flash-001"
	DefaultRetryAfter = 5 * time.Second
	defaultReferer    = "https://chatbot-rag.local"
	defaultTitle      = "Entertainment & Books RAG Chatbot"
)

// Config configures a Gateway.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float32
	MaxTokens   int

	// Referer and Title are sent as the OpenRouter attribution headers.
	Referer string
	Title   string
	Logger  *slog.Logger
}

// Gateway talks to an OpenAI-compatible chat-completions endpoint.
type Gateway struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	maxRetries  int
	logger      *slog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewGateway builds a Gateway from cfg, filling zero values with defaults.
func NewGateway(cfg Config) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 2
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Referer == "" {
		cfg.Referer = defaultReferer
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	config.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &headerTransport{
			base: http.DefaultTransport,
			headers: map[string]string{
				"HTTP-Referer": cfg.Referer,
				"X-Title":      cfg.Title,
			},
		},
	}

	return &Gateway{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxRetries:  cfg.MaxRetries,
		logger:      cfg.Logger,
		sleep:       httpclient.SleepContext,
	}
}

// Model returns the configured model identifier.
func (g *Gateway) Model() string {
	return g.model
}

// ChatCompletion sends messages (and defs, when non-empty) and parses the
// first choice. 429 responses are retried after Retry-After; 5xx and
// timeouts are retried with exponential backoff.
func (g *Gateway) ChatCompletion(ctx context.Context, messages []domain.Message, defs []tools.Definition) (domain.LLMResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}
	if len(defs) > 0 {
		req.Tools = toOpenAITools(defs)
		req.ToolChoice = "auto"
	}

	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		g.logger.Info("llm_request",
			"model", g.model,
			"messages_count", len(messages),
			"has_tools", len(defs) > 0,
			"attempt", attempt,
		)

		hint := &retryHint{}
		start := time.Now()
		resp, err := g.client.CreateChatCompletion(withHint(ctx, hint), req)
		durationMs := time.Since(start).Milliseconds()

		if err == nil {
			out, err := g.parse(resp)
			if err != nil {
				return domain.LLMResponse{}, err
			}
			g.logger.Info("llm_response",
				"model", resp.Model,
				"tool_calls_count", toolCallCount(out),
				"finish_reason", out.FinishReason,
				"duration_ms", durationMs,
				"total_tokens", out.Usage.TotalTokens,
			)
			return out, nil
		}

		last := attempt == g.maxRetries
		status := statusOf(err)
		switch {
		case status == http.StatusTooManyRequests:
			wait := httpclient.ParseRetryAfter(hint.retryAfter, DefaultRetryAfter)
			if last {
				return domain.LLMResponse{}, &apperr.LLMRateLimited{RetryAfter: wait.Seconds()}
			}
			g.logger.Warn("llm_rate_limited", "retry_after", wait.Seconds(), "attempt", attempt)
			if err := g.sleep(ctx, wait); err != nil {
				return domain.LLMResponse{}, &apperr.LLMServiceError{Message: err.Error()}
			}

		case status >= 500:
			g.logger.Error("llm_error", "status", status, "error", err, "attempt", attempt)
			if last {
				return domain.LLMResponse{}, &apperr.LLMServiceError{Status: status, Message: err.Error()}
			}
			if err := g.sleep(ctx, httpclient.Backoff(attempt)); err != nil {
				return domain.LLMResponse{}, &apperr.LLMServiceError{Message: err.Error()}
			}

		case status >= 400:
			g.logger.Error("llm_error", "status", status, "error", err, "attempt", attempt)
			return domain.LLMResponse{}, &apperr.LLMServiceError{Status: status, Message: err.Error()}

		case httpclient.IsTimeout(err):
			g.logger.Warn("llm_timeout", "attempt", attempt, "error", err)
			if last {
				return domain.LLMResponse{}, &apperr.LLMServiceError{Status: http.StatusGatewayTimeout, Message: "request timed out"}
			}
			if err := g.sleep(ctx, httpclient.Backoff(attempt)); err != nil {
				return domain.LLMResponse{}, &apperr.LLMServiceError{Message: err.Error()}
			}

		default:
			g.logger.Error("llm_unexpected_error", "error", err)
			return domain.LLMResponse{}, &apperr.LLMServiceError{Message: fmt.Sprintf("unexpected LLM error: %v", err)}
		}
	}

	return domain.LLMResponse{}, &apperr.LLMServiceError{Message: "all LLM retries exhausted"}
}

func (g *Gateway) parse(resp openai.ChatCompletionResponse) (domain.LLMResponse, error) {
	if len(resp.Choices) == 0 {
		return domain.LLMResponse{}, &apperr.LLMServiceError{Message: "no choices"}
	}
	choice := resp.Choices[0]

	out := domain.LLMResponse{
		FinishReason: string(choice.FinishReason),
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	calls := make(domain.ToolCalls, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				g.logger.Warn("tool_call_parse_error", "tool", tc.Function.Name, "id", tc.ID, "error", err)
				continue
			}
		}
		calls = append(calls, domain.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	if len(calls) > 0 {
		out.Reply = calls
	} else {
		out.Reply = domain.Text(choice.Message.Content)
	}
	return out, nil
}

func toOpenAIMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.ToolName,
		}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Arguments)
			if err != nil || tc.Arguments == nil {
				args = []byte("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(defs []tools.Definition) []openai.Tool {
	out := make([]openai.Tool, len(defs))
	for i, d := range defs {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		}
	}
	return out
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func toolCallCount(r domain.LLMResponse) int {
	if calls, ok := r.Reply.(domain.ToolCalls); ok {
		return len(calls)
	}
	return 0
}
