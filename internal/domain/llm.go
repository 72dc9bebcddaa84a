package domain

// Reply is the body of an LLMResponse: either Text or ToolCalls.
type Reply interface {
	isReply()
}

// Text is a plain assistant answer.
type Text string

// ToolCalls is a non-empty list of tool invocations.
type ToolCalls []ToolCallRequest

func (Text) isReply()      {}
func (ToolCalls) isReply() {}

// Usage holds token counters for one model call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LLMResponse is one parsed model reply.
type LLMResponse struct {
	Reply        Reply
	FinishReason string
	Usage        Usage
}

// HasToolCalls reports whether the reply requests tool execution.
func (r LLMResponse) HasToolCalls() bool {
	calls, ok := r.Reply.(ToolCalls)
	return ok && len(calls) > 0
}

// Content returns the text of a Text reply, or "" otherwise.
func (r LLMResponse) Content() string {
	if t, ok := r.Reply.(Text); ok {
		return string(t)
	}
	return ""
}
