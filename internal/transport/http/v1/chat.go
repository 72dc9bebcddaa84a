package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/entertainbot/internal/apperr"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/sanitize"
)

const processingFailed = "Failed to process your message. Please try again."

// Chat processes one user message.
func (h *Handler) Chat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err, "Invalid JSON body")
	}

	message, err := sanitize.Message(req.Message)
	if err != nil {
		return failJSON(c, err)
	}
	if req.SessionID != "" && !sanitize.ValidSessionID(req.SessionID) {
		return failJSON(c, &apperr.InputValidationFailed{Message: "Invalid session_id"})
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.newID()
	}

	reply, err := h.service.ProcessMessage(c.Request().Context(), sessionID, message)
	if err != nil {
		h.logger.Error("chat_processing_error", "session_id", sessionID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, processingFailed, apperr.CodeOf(err))
	}

	return c.JSON(http.StatusOK, domain.ChatResponse{
		Success:   true,
		Response:  reply,
		SessionID: sessionID,
	})
}

// ClearChat drops a session's history.
func (h *Handler) ClearChat(c echo.Context) error {
	var req domain.ClearRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c, err, "Invalid JSON")
	}
	if req.SessionID == "" {
		return failJSON(c, &apperr.InputValidationFailed{Message: "session_id required"})
	}

	h.service.ClearSession(c.Request().Context(), req.SessionID)
	return c.JSON(http.StatusOK, domain.ClearResponse{Success: true, Message: "Session cleared"})
}

// bindError maps a bind failure to 422 when the JSON was well-formed but a
// field had the wrong type, and to 400 otherwise.
func bindError(c echo.Context, err error, syntaxMessage string) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return failJSON(c, &apperr.InputValidationFailed{
			Message: fmt.Sprintf("Field '%s' must be of type %s", typeErr.Field, typeErr.Type),
		})
	}
	return errorJSON(c, http.StatusBadRequest, syntaxMessage, apperr.CodeInvalidJSON)
}
