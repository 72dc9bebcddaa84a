// Package history keeps the bounded message sequence of one conversation.
package history

import (
	"github.com/xiaot623/entertainbot/internal/domain"
)

// DefaultMaxLength is the message cap used when none is configured.
const DefaultMaxLength = 20

// History is the ordered messages of one session. The system prompt, when
// present, is pinned at index 0. Trimming drops the oldest messages first
// and removes an assistant tool-call message together with its results, so
// a call is never separated from its results.
//
// History is not safe for concurrent use; callers serialize turns per
// session.
type History struct {
	maxLength int
	system    *domain.Message
	messages  []domain.Message
}

// New creates a history capped at maxLength messages, the system prompt
// included.
func New(maxLength int, systemPrompt string) *History {
	if maxLength < 2 {
		maxLength = DefaultMaxLength
	}
	h := &History{maxLength: maxLength}
	if systemPrompt != "" {
		sys := domain.SystemMessage(systemPrompt)
		h.system = &sys
	}
	return h
}

// MaxLength returns the configured cap.
func (h *History) MaxLength() int {
	return h.maxLength
}

// MaxToolCalls is the largest tool round that fits under the cap beside
// the system prompt and the tool-call message itself. It is at least 1.
func (h *History) MaxToolCalls() int {
	n := h.maxLength - 1
	if h.system != nil {
		n--
	}
	return max(n, 1)
}

// AddUser appends a user message.
func (h *History) AddUser(text string) {
	h.append(domain.UserMessage(text))
}

// AddAssistant appends an assistant text message.
func (h *History) AddAssistant(text string) {
	h.append(domain.AssistantText(text))
}

// AddToolCalls appends an assistant tool-call message. Exactly len(calls)
// AddToolResult calls must follow.
func (h *History) AddToolCalls(calls []domain.ToolCallRequest) {
	h.append(domain.AssistantToolCalls(calls))
}

// AddToolResult appends the result paired with an earlier tool call.
func (h *History) AddToolResult(toolCallID, toolName, result string) {
	h.append(domain.ToolResult(toolCallID, toolName, result))
}

// Messages returns a copy of the full sequence, system prompt first.
func (h *History) Messages() []domain.Message {
	return h.View("")
}

// View returns the sequence to send to the model. A non-empty context is
// appended to a copy of the system message; the stored prompt is left
// untouched.
func (h *History) View(context string) []domain.Message {
	out := make([]domain.Message, 0, len(h.messages)+1)
	switch {
	case h.system != nil && context != "":
		sys := *h.system
		sys.Content += "\n\n" + context
		out = append(out, sys)
	case h.system != nil:
		out = append(out, *h.system)
	case context != "":
		out = append(out, domain.SystemMessage(context))
	}
	return append(out, h.messages...)
}

// Len is the number of messages, system prompt included.
func (h *History) Len() int {
	if h.system != nil {
		return len(h.messages) + 1
	}
	return len(h.messages)
}

// Clear drops everything except the system prompt.
func (h *History) Clear() {
	h.messages = nil
}

func (h *History) append(m domain.Message) {
	h.messages = append(h.messages, m)
	h.trim()
}

// trim evicts whole units from the front until the cap holds. A unit is a
// single message, or a tool-call message plus the results that follow it.
// The newest unit is never evicted; callers keep tool rounds within
// MaxToolCalls so it always fits.
func (h *History) trim() {
	for h.Len() > h.maxLength {
		n := h.unitLen(0)
		if n >= len(h.messages) {
			return
		}
		h.messages = h.messages[n:]
	}
}

// unitLen is the length of the unit starting at i.
func (h *History) unitLen(i int) int {
	if !h.messages[i].IsToolCall() {
		return 1
	}
	n := 1
	for i+n < len(h.messages) && h.messages[i+n].Role == domain.RoleTool {
		n++
	}
	return n
}
