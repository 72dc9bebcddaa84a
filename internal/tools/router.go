package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xiaot623/entertainbot/internal/apperr"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/policy"
)

// Gate decides whether a tool call may run.
type Gate interface {
	Evaluate(ctx context.Context, in policy.Input) (decision, reason string, err error)
}

// Router dispatches model tool calls to content adapters.
type Router struct {
	registry *Registry
	gate     Gate
	disabled []string
	logger   *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithGate runs every call through gate before dispatch. disabled is passed
// to the gate as input.disabled_tools.
func WithGate(gate Gate, disabled []string) RouterOption {
	return func(r *Router) {
		r.gate = gate
		r.disabled = disabled
	}
}

// WithLogger sets the router's logger.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter builds a router over registry.
func NewRouter(registry *Registry, opts ...RouterOption) *Router {
	r := &Router{registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available lists the registered tool names.
func (r *Router) Available() []string {
	return r.registry.Names()
}

// ClientFor reports which content API serves name.
func (r *Router) ClientFor(name string) domain.APIClient {
	return r.registry.ClientFor(name)
}

// Execute runs one tool call and returns its serialized result. Unregistered
// names fail with *apperr.UnknownTool before anything else happens; every
// other failure is reported as *apperr.ToolExecutionFailed.
func (r *Router) Execute(ctx context.Context, name string, args map[string]any) (result string, err error) {
	tool, ok := r.registry.Lookup(name)
	if !ok {
		return "", &apperr.UnknownTool{Name: name}
	}

	if r.gate != nil {
		decision, reason, err := r.gate.Evaluate(ctx, policy.Input{
			ToolName:      name,
			Args:          args,
			DisabledTools: r.disabled,
		})
		if err != nil {
			return "", &apperr.ToolExecutionFailed{Tool: name, Message: err.Error()}
		}
		if decision == policy.Block {
			if reason == "" {
				reason = "blocked by policy"
			}
			r.logger.Warn("tool_blocked", "tool", name, "reason", reason)
			return "", &apperr.ToolExecutionFailed{Tool: name, Message: reason}
		}
	}

	mapped := Args(args).rename(tool.Renames)
	r.logger.Info("tool_execution", "tool", name, "client", tool.Client, "args", map[string]any(mapped))

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool_execution_panic", "tool", name, "panic", p)
			result, err = "", &apperr.ToolExecutionFailed{Tool: name, Message: fmt.Sprint(p)}
		}
	}()

	start := time.Now()
	res, err := tool.Exec(ctx, mapped)
	if err != nil {
		r.logger.Error("tool_execution_failed", "tool", name, "error", err)
		return "", &apperr.ToolExecutionFailed{Tool: name, Message: err.Error()}
	}

	serialized, err := res.Serialize()
	if err != nil {
		return "", &apperr.ToolExecutionFailed{Tool: name, Message: err.Error()}
	}

	r.logger.Info("tool_result",
		"tool", name,
		"result_length", len(serialized),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return serialized, nil
}
