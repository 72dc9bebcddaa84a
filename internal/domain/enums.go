// Package domain defines the core domain models for the chat service.
package domain

// Role is the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason values reported by the language model.
const (
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool_calls"
	FinishReasonLength    = "length"
)

// APIClient identifies the content API a tool is served by.
type APIClient string

const (
	ClientJikan       APIClient = "jikan"
	ClientTVMaze      APIClient = "tvmaze"
	ClientOpenLibrary APIClient = "openlibrary"
	ClientUnknown     APIClient = "unknown"
)

// WebSocket message types.
const (
	WSTypeHello    = "hello"
	WSTypeHelloAck = "hello_ack"
	WSTypeChat     = "chat"
	WSTypeReply    = "reply"
	WSTypeClear    = "clear"
	WSTypeCleared  = "cleared"
	WSTypeError    = "error"
)
