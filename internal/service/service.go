// Package service runs chat turns: it owns the sessions and drives the loop
// between the language model and the tools.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/xiaot623/entertainbot/internal/adapter/llm"
	"github.com/xiaot623/entertainbot/internal/contextstore"
	"github.com/xiaot623/entertainbot/internal/convlog"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/tools"
)

// DefaultMaxToolIterations bounds the tool-calling rounds of one turn.
const DefaultMaxToolIterations = 5

// Version is reported by the health endpoint.
const Version = "1.0.0"

// ErrLoggingDisabled is returned by log queries when no conversation logger
// is configured.
var ErrLoggingDisabled = errors.New("conversation logging is disabled")

// Router executes tools by name.
type Router interface {
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// ContextStore is the semantic memory consulted before and updated after
// each turn.
type ContextStore interface {
	Retrieve(ctx context.Context, sessionID, query string, maxResults int, crossSession bool) ([]contextstore.Record, error)
	Store(ctx context.Context, sessionID, question, answer string, toolNames []string) error
	ClearSession(ctx context.Context, sessionID string) (int, error)
}

// HealthChecker is implemented by the content API adapters.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependency names one health-checked upstream.
type Dependency struct {
	Name    string
	Checker HealthChecker
}

// Deps collects what the Service needs. ConvLog and Context are optional.
type Deps struct {
	Sessions     *SessionStore
	LLM          llm.Client
	Router       Router
	Tools        []tools.Definition
	ConvLog      *convlog.Logger
	Context      ContextStore
	Dependencies []Dependency
	Logger       *slog.Logger
}

// Options tune the chat loop.
type Options struct {
	MaxToolIterations   int
	ContextMaxResults   int
	ContextCrossSession bool
}

// Service is the chat orchestrator.
type Service struct {
	sessions     *SessionStore
	llm          llm.Client
	router       Router
	tools        []tools.Definition
	convlog      *convlog.Logger
	context      ContextStore
	dependencies []Dependency
	opts         Options
	logger       *slog.Logger
}

// New builds a Service.
func New(deps Deps, opts Options) *Service {
	if opts.MaxToolIterations <= 0 {
		opts.MaxToolIterations = DefaultMaxToolIterations
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions:     deps.Sessions,
		llm:          deps.LLM,
		router:       deps.Router,
		tools:        deps.Tools,
		convlog:      deps.ConvLog,
		context:      deps.Context,
		dependencies: deps.Dependencies,
		opts:         opts,
		logger:       logger,
	}
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	return s.sessions.Count()
}

// Tools lists the tool schema offered to the model.
func (s *Service) Tools() []domain.ToolListItem {
	out := make([]domain.ToolListItem, 0, len(s.tools))
	for _, d := range s.tools {
		out = append(out, domain.ToolListItem{
			Name:        d.Name,
			Description: d.Description,
			Client:      domain.APIClient(d.Client),
			Required:    d.Required(),
		})
	}
	return out
}

// SessionLog returns the interaction log of sessionID, or nil when none
// was recorded.
func (s *Service) SessionLog(ctx context.Context, sessionID string) (*convlog.SessionLog, error) {
	if s.convlog == nil {
		return nil, ErrLoggingDisabled
	}
	return s.convlog.SessionLog(ctx, sessionID)
}

// ListSessionLogs summarizes every logged session.
func (s *Service) ListSessionLogs(ctx context.Context) ([]convlog.SessionEntry, error) {
	if s.convlog == nil {
		return nil, ErrLoggingDisabled
	}
	return s.convlog.ListSessions(ctx)
}
