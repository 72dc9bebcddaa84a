package domain

// ToolCallRequest is a single tool invocation requested by the model.
type ToolCallRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Message is one entry of a conversation. Which fields are set depends on
// the variant: system, user and assistant text carry Content; an assistant
// tool-call message carries ToolCalls; a tool result carries ToolCallID,
// ToolName and Content.
type Message struct {
	Role       Role              `json:"role"`
	Content    string            `json:"content,omitempty"`
	ToolCalls  []ToolCallRequest `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	ToolName   string            `json:"name,omitempty"`
}

// SystemMessage builds a system message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage builds a user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantText builds an assistant text message.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// AssistantToolCalls builds an assistant message carrying tool calls.
func AssistantToolCalls(calls []ToolCallRequest) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls}
}

// ToolResult builds the result message paired with a tool call.
func ToolResult(toolCallID, toolName, result string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, ToolName: toolName, Content: result}
}

// IsToolCall reports whether m is an assistant tool-call message.
func (m Message) IsToolCall() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}
