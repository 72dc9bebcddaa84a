package domain

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Success   bool   `json:"success"`
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// ClearRequest is the body of POST /chat/clear.
type ClearRequest struct {
	SessionID string `json:"session_id"`
}

// ClearResponse is returned by POST /chat/clear.
type ClearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorDetail is the error part of the error envelope.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ErrorResponse is the shared error envelope.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

// ToolListItem describes a registered tool.
type ToolListItem struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Client      APIClient `json:"client"`
	Required    []string  `json:"required"`
}

// WSMessage is the envelope exchanged over the WebSocket chat endpoint.
type WSMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Response  string `json:"response,omitempty"`
	Code      string `json:"code,omitempty"`
}
