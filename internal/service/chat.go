package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/entertainbot/internal/apperr"
	"github.com/xiaot623/entertainbot/internal/contextstore"
	"github.com/xiaot623/entertainbot/internal/convlog"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/history"
)

// Fallback replies used when the model returns no text.
const (
	EmptyResponseFallback     = "I couldn't generate a response. Please try again."
	ExhaustedResponseFallback = "I gathered some data but couldn't formulate a response. Please try again."
)

// ProcessMessage runs one turn for sessionID and returns the assistant's
// answer. Only a model failure aborts the turn; tool failures are handed to
// the model as error results. Turns on the same session run one at a time.
func (s *Service) ProcessMessage(ctx context.Context, sessionID, message string) (string, error) {
	sess := s.sessions.GetOrCreate(sessionID)
	sess.turn.Lock()
	defer sess.turn.Unlock()
	defer s.sessions.Touch(sess)

	contextText := s.retrieveContext(ctx, sessionID, message)
	sess.History.AddUser(message)

	var in *convlog.Interaction
	if s.convlog != nil {
		in = s.convlog.Start(sessionID, message)
	}

	s.logger.Info("processing_message",
		"session_id", sessionID,
		"message_length", len(message),
		"history_length", sess.History.Len(),
	)

	reply, toolNames, err := s.runLoop(ctx, sess.History, contextText, in)
	if err != nil {
		s.logger.Error("message_processing_failed", "session_id", sessionID, "error", err)
		return "", err
	}

	sess.History.AddAssistant(reply)

	if s.convlog != nil {
		if err := s.convlog.End(ctx, in, reply); err != nil {
			s.logger.Warn("conversation_log_skipped", "session_id", sessionID, "error", err)
		}
	}
	if s.context != nil {
		if err := s.context.Store(ctx, sessionID, message, reply, toolNames); err != nil {
			s.logger.Warn("context_store_skipped", "session_id", sessionID, "error", err)
		}
	}

	s.logger.Info("message_processed", "session_id", sessionID, "response_length", len(reply))
	return reply, nil
}

// ClearSession drops the session history and its stored context. It
// reports whether a live session existed.
func (s *Service) ClearSession(ctx context.Context, sessionID string) bool {
	existed := s.sessions.Clear(sessionID)
	if s.context != nil {
		if _, err := s.context.ClearSession(ctx, sessionID); err != nil {
			s.logger.Warn("context_clear_skipped", "session_id", sessionID, "error", err)
		}
	}
	return existed
}

func (s *Service) retrieveContext(ctx context.Context, sessionID, message string) string {
	if s.context == nil {
		return ""
	}
	records, err := s.context.Retrieve(ctx, sessionID, message, s.opts.ContextMaxResults, s.opts.ContextCrossSession)
	if err != nil {
		s.logger.Warn("context_retrieval_skipped", "session_id", sessionID, "error", err)
		return ""
	}
	return contextstore.FormatForPrompt(records)
}

// runLoop alternates model calls and tool executions until the model
// answers in text or the round budget runs out. It returns the answer and
// the names of the tools called.
func (s *Service) runLoop(ctx context.Context, h *history.History, contextText string, in *convlog.Interaction) (string, []string, error) {
	var toolNames []string
	maxIter := s.opts.MaxToolIterations

	for iteration := 1; iteration <= maxIter; iteration++ {
		resp, err := s.llm.ChatCompletion(ctx, h.View(contextText), s.tools)
		if err != nil {
			return "", toolNames, err
		}
		s.logLLMCall(in, iteration, resp)

		calls, ok := resp.Reply.(domain.ToolCalls)
		if !ok || len(calls) == 0 {
			if text := resp.Content(); text != "" {
				return text, toolNames, nil
			}
			return EmptyResponseFallback, toolNames, nil
		}

		names := make([]string, len(calls))
		for i, c := range calls {
			names[i] = c.Name
		}
		s.logger.Info("tool_calls_received", "iteration", iteration, "tool_count", len(calls), "tools", names)

		if limit := h.MaxToolCalls(); len(calls) > limit {
			s.logger.Warn("tool_calls_dropped", "iteration", iteration, "kept", limit, "dropped", names[limit:])
			calls = calls[:limit]
		}

		h.AddToolCalls(calls)
		for _, call := range calls {
			start := time.Now()
			result := s.executeToolCall(ctx, call)
			h.AddToolResult(call.ID, call.Name, result)
			toolNames = append(toolNames, call.Name)

			if in != nil {
				s.convlog.LogToolCall(in, call.Name, call.Arguments, convlog.SummarizeResult(result), time.Since(start))
			}
		}
	}

	s.logger.Warn("max_tool_iterations_reached", "iterations", maxIter)
	resp, err := s.llm.ChatCompletion(ctx, h.View(contextText), nil)
	if err != nil {
		return "", toolNames, err
	}
	s.logLLMCall(in, maxIter+1, resp)

	if text := resp.Content(); text != "" {
		return text, toolNames, nil
	}
	return ExhaustedResponseFallback, toolNames, nil
}

// executeToolCall never fails: errors become a JSON error result the model
// can read.
func (s *Service) executeToolCall(ctx context.Context, call domain.ToolCallRequest) string {
	result, err := s.router.Execute(ctx, call.Name, call.Arguments)
	if err == nil {
		return result
	}

	var (
		failed  *apperr.ToolExecutionFailed
		unknown *apperr.UnknownTool
		message string
	)
	switch {
	case errors.As(err, &failed):
		s.logger.Warn("tool_call_failed", "tool", call.Name, "error", err)
		message = failed.Error()
	case errors.As(err, &unknown):
		s.logger.Warn("tool_call_failed", "tool", call.Name, "error", err)
		message = fmt.Sprintf("Tool '%s' failed: %s", call.Name, unknown.Error())
	default:
		s.logger.Error("tool_call_unexpected_error", "tool", call.Name, "error", err)
		message = fmt.Sprintf("An unexpected error occurred while executing '%s'", call.Name)
	}
	return errorResult(message)
}

func (s *Service) logLLMCall(in *convlog.Interaction, iteration int, resp domain.LLMResponse) {
	if in == nil {
		return
	}
	s.convlog.LogLLMCall(in, iteration, resp.FinishReason, resp.Usage)
}

func errorResult(message string) string {
	b, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error": "tool failed"}`
	}
	return string(b)
}
