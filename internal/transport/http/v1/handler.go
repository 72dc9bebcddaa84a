// Package v1 provides the HTTP handlers of the chat server.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/entertainbot/internal/apperr"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
	newID   func() string
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: svc,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// RegisterRoutes registers the public routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/chat", h.Chat)
	e.POST("/chat/clear", h.ClearChat)

	e.GET("/logs", h.ListLogs)
	e.GET("/logs/:session_id", h.GetLog)

	e.GET("/tools", h.ListTools)
	e.GET("/health", h.Health)
}

// Health aggregates the content API health checks.
func (h *Handler) Health(c echo.Context) error {
	resp, ok := h.service.Health(c.Request().Context())
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

// ListTools returns the tool schema offered to the model.
func (h *Handler) ListTools(c echo.Context) error {
	items := h.service.Tools()
	return c.JSON(http.StatusOK, map[string]any{
		"tools": items,
		"count": len(items),
	})
}

// failJSON writes err with the status and code its type maps to.
func failJSON(c echo.Context, err error) error {
	return errorJSON(c, apperr.StatusOf(err), err.Error(), apperr.CodeOf(err))
}

func errorJSON(c echo.Context, status int, message, code string) error {
	return c.JSON(status, domain.ErrorResponse{
		Success: false,
		Error:   domain.ErrorDetail{Message: message, Code: code},
	})
}
