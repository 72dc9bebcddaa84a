package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/entertainbot/internal/apperr"
	"github.com/xiaot623/entertainbot/internal/service"
)

// ListLogs summarizes every logged session.
func (h *Handler) ListLogs(c echo.Context) error {
	sessions, err := h.service.ListSessionLogs(c.Request().Context())
	if err != nil {
		return h.logsError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetLog returns the full log of one session.
func (h *Handler) GetLog(c echo.Context) error {
	sessionID := c.Param("session_id")
	log, err := h.service.SessionLog(c.Request().Context(), sessionID)
	if err != nil {
		return h.logsError(c, err)
	}
	if log == nil {
		return errorJSON(c, http.StatusNotFound, fmt.Sprintf("No log found for session '%s'", sessionID), apperr.CodeNotFound)
	}
	return c.JSON(http.StatusOK, log)
}

func (h *Handler) logsError(c echo.Context, err error) error {
	if errors.Is(err, service.ErrLoggingDisabled) {
		return errorJSON(c, http.StatusServiceUnavailable, "Conversation logging is disabled", apperr.CodeUnavailable)
	}
	h.logger.Error("log_query_failed", "error", err)
	return errorJSON(c, http.StatusInternalServerError, "Failed to read conversation logs", apperr.CodeInternal)
}
