package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/tools"
)

// MockClient is an offline Client. Scripted replies are returned in order;
// once they run out it echoes the conversation.
type MockClient struct {
	mu       sync.Mutex
	script   []MockStep
	requests []MockRequest
}

// MockStep is one scripted reply, or an error to return instead.
type MockStep struct {
	Response domain.LLMResponse
	Err      error
}

// MockRequest records one call made to the mock.
type MockRequest struct {
	Messages []domain.Message
	Tools    []tools.Definition
}

// NewMockClient creates a mock that plays script before echoing.
func NewMockClient(script ...MockStep) *MockClient {
	return &MockClient{script: script}
}

// TextStep is a scripted text reply.
func TextStep(text string) MockStep {
	return MockStep{Response: domain.LLMResponse{
		Reply:        domain.Text(text),
		FinishReason: domain.FinishReasonStop,
		Usage:        domain.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}
}

// ToolStep is a scripted tool-call reply.
func ToolStep(calls ...domain.ToolCallRequest) MockStep {
	return MockStep{Response: domain.LLMResponse{
		Reply:        domain.ToolCalls(calls),
		FinishReason: domain.FinishReasonToolCalls,
		Usage:        domain.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}
}

// ChatCompletion returns the next scripted step or an echo reply.
func (m *MockClient) ChatCompletion(ctx context.Context, messages []domain.Message, defs []tools.Definition) (domain.LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return domain.LLMResponse{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, MockRequest{
		Messages: append([]domain.Message(nil), messages...),
		Tools:    defs,
	})

	if len(m.script) > 0 {
		step := m.script[0]
		m.script = m.script[1:]
		return step.Response, step.Err
	}

	content := m.echo(messages)
	return domain.LLMResponse{
		Reply:        domain.Text(content),
		FinishReason: domain.FinishReasonStop,
		Usage: domain.Usage{
			PromptTokens:     estimateTokens(messages),
			CompletionTokens: len(content) / 4,
			TotalTokens:      estimateTokens(messages) + len(content)/4,
		},
	}, nil
}

// Requests returns the calls made so far.
func (m *MockClient) Requests() []MockRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockRequest(nil), m.requests...)
}

func (m *MockClient) echo(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		switch messages[i].Role {
		case domain.RoleTool:
			return fmt.Sprintf("[MOCK] Tool '%s' returned %d bytes of data.", messages[i].ToolName, len(messages[i].Content))
		case domain.RoleUser:
			return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(messages[i].Content, 100))
		}
	}
	return "[MOCK] This is a mock response from the LLM client."
}

func estimateTokens(messages []domain.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(msg.Content) / 4
	}
	return total
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return strings.TrimSpace(string(r[:maxLen])) + "..."
}
