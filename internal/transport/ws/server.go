// Package ws serves chat over WebSocket connections.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/entertainbot/internal/apperr"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/sanitize"
)

// Error codes sent in error frames besides the apperr codes.
const (
	CodeInvalidMessage  = "INVALID_MESSAGE"
	CodeSessionRequired = "SESSION_REQUIRED"
	CodeBusy            = "BUSY"
)

// Chatter runs chat turns.
type Chatter interface {
	ProcessMessage(ctx context.Context, sessionID, message string) (string, error)
	ClearSession(ctx context.Context, sessionID string) bool
}

// Config tunes connection handling.
type Config struct {
	MaxMessageSize int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	TurnTimeout    time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 65536
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.ReadTimeout {
		c.PingInterval = c.ReadTimeout * 9 / 10
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 5 * time.Minute
	}
}

// Server handles WebSocket connections.
type Server struct {
	cfg      Config
	chat     Chatter
	upgrader websocket.Upgrader
	logger   *slog.Logger
	newID    func() string
}

// NewServer creates a new WebSocket server.
func NewServer(cfg Config, chat Chatter, logger *slog.Logger) *Server {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:  cfg,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
		newID:  uuid.NewString,
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", s.HandleWebSocket)
}

// connection is one client. Turns run one at a time.
type connection struct {
	ws        *websocket.Conn
	send      chan []byte
	sessionID string
	busy      atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	mu        sync.Mutex
}

func (c *connection) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *connection) bind(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.ws.Close()
	})
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("ws_upgrade_failed", "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := &connection{
		ws:     ws,
		send:   make(chan []byte, 16),
		ctx:    ctx,
		cancel: cancel,
	}
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *connection) {
	defer conn.close()

	conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("ws_read_failed", "error", err)
			}
			return
		}
		conn.ws.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		s.handleMessage(conn, data)
	}
}

// writePump writes queued frames and keeps the connection alive.
func (s *Server) writePump(conn *connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.close()
	}()

	for {
		select {
		case <-conn.ctx.Done():
			return
		case message := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("ws_write_failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (s *Server) handleMessage(conn *connection, data []byte) {
	var msg domain.WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, CodeInvalidMessage, "invalid JSON message")
		return
	}

	switch msg.Type {
	case domain.WSTypeHello:
		s.handleHello(conn, msg)
	case domain.WSTypeChat:
		s.handleChat(conn, msg)
	case domain.WSTypeClear:
		s.handleClear(conn)
	default:
		s.sendError(conn, CodeInvalidMessage, "unknown message type: "+msg.Type)
	}
}

// handleHello binds the connection to a session, creating an ID when the
// client has none.
func (s *Server) handleHello(conn *connection, msg domain.WSMessage) {
	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = s.newID()
	} else if !sanitize.ValidSessionID(sessionID) {
		err := &apperr.InputValidationFailed{Message: "invalid session_id"}
		s.sendError(conn, apperr.CodeOf(err), err.Error())
		return
	}

	conn.bind(sessionID)
	s.send(conn, domain.WSMessage{Type: domain.WSTypeHelloAck, SessionID: sessionID})
	s.logger.Info("ws_hello", "session_id", sessionID)
}

func (s *Server) handleChat(conn *connection, msg domain.WSMessage) {
	sessionID := conn.session()
	if sessionID == "" {
		s.sendError(conn, CodeSessionRequired, "must send hello first")
		return
	}

	message, err := sanitize.Message(msg.Message)
	if err != nil {
		s.sendError(conn, apperr.CodeOf(err), err.Error())
		return
	}

	if !conn.busy.CompareAndSwap(false, true) {
		s.sendError(conn, CodeBusy, "a message is already being processed")
		return
	}

	go func() {
		defer conn.busy.Store(false)

		ctx, cancel := context.WithTimeout(conn.ctx, s.cfg.TurnTimeout)
		defer cancel()

		reply, err := s.chat.ProcessMessage(ctx, sessionID, message)
		if err != nil {
			s.logger.Error("ws_chat_failed", "session_id", sessionID, "error", err)
			s.sendError(conn, apperr.CodeOf(err), "Failed to process your message. Please try again.")
			return
		}
		s.send(conn, domain.WSMessage{Type: domain.WSTypeReply, SessionID: sessionID, Response: reply})
	}()
}

func (s *Server) handleClear(conn *connection) {
	sessionID := conn.session()
	if sessionID == "" {
		s.sendError(conn, CodeSessionRequired, "must send hello first")
		return
	}
	s.chat.ClearSession(conn.ctx, sessionID)
	s.send(conn, domain.WSMessage{Type: domain.WSTypeCleared, SessionID: sessionID})
}

func (s *Server) sendError(conn *connection, code, message string) {
	s.send(conn, domain.WSMessage{Type: domain.WSTypeError, Code: code, Message: message})
}

func (s *Server) send(conn *connection, msg domain.WSMessage) {
	msg.Ts = time.Now().UnixMilli()
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("ws_encode_failed", "error", err)
		return
	}
	select {
	case conn.send <- data:
	case <-conn.ctx.Done():
	}
}
