// Package llm is the gateway to the chat-completion model.
package llm

import (
	"context"

	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/tools"
)

// Client sends a conversation to the model and returns its parsed reply.
// Passing no tool definitions forces a text-only answer.
type Client interface {
	ChatCompletion(ctx context.Context, messages []domain.Message, defs []tools.Definition) (domain.LLMResponse, error)
}

// Ensure both implementations satisfy Client.
var (
	_ Client = (*Gateway)(nil)
	_ Client = (*MockClient)(nil)
)
