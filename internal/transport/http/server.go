// Package http assembles the public HTTP server.
package http

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/entertainbot/internal/service"
	v1 "github.com/xiaot623/entertainbot/internal/transport/http/v1"
	"github.com/xiaot623/entertainbot/internal/transport/ws"
)

// NewServer creates the echo server with the chat, logs, health and
// WebSocket routes. wsServer may be nil.
func NewServer(svc *service.Service, wsServer *ws.Server, logger *slog.Logger) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(requestLogConfig(logger)))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	v1.NewHandler(svc, logger).RegisterRoutes(e)
	if wsServer != nil {
		wsServer.RegisterRoutes(e)
	}

	return e
}

func requestLogConfig(logger *slog.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				logger.Error("http_request", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("http_request", attrs...)
			return nil
		},
	}
}
