// Package convlog records each chat interaction (prompt, tool calls, model
// calls, final answer) and serves per-session logs with aggregate counts.
package convlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/repository"
	"github.com/xiaot623/entertainbot/internal/sanitize"
)

// Store persists finished interactions.
type Store interface {
	AppendInteraction(ctx context.Context, row *repository.InteractionRow) error
	ListInteractions(ctx context.Context, sessionID string) ([]repository.InteractionRow, error)
	ListLoggedSessions(ctx context.Context) ([]string, error)
}

// ToolCallLog is one tool execution inside an interaction.
type ToolCallLog struct {
	ToolName      string           `json:"tool_name"`
	Arguments     map[string]any   `json:"arguments"`
	APIClient     domain.APIClient `json:"api_client"`
	ResultSummary string           `json:"result_summary"`
	DurationMs    float64          `json:"duration_ms"`
	Timestamp     string           `json:"timestamp"`
}

// LLMCallLog is one model call inside an interaction.
type LLMCallLog struct {
	Iteration    int          `json:"iteration"`
	FinishReason string       `json:"finish_reason"`
	Tokens       domain.Usage `json:"tokens"`
	Timestamp    string       `json:"timestamp"`
}

// Interaction is one user turn. It is filled by a single goroutine and
// persisted by End.
type Interaction struct {
	SessionID       string        `json:"-"`
	Timestamp       string        `json:"timestamp"`
	UserPrompt      string        `json:"user_prompt"`
	ToolCalls       []ToolCallLog `json:"tool_calls"`
	LLMCalls        []LLMCallLog  `json:"llm_calls"`
	ModelResponse   string        `json:"model_response"`
	TotalDurationMs float64       `json:"total_duration_ms"`

	start time.Time
}

// ToolNames lists the tools called during the interaction, in call order.
func (in *Interaction) ToolNames() []string {
	names := make([]string, 0, len(in.ToolCalls))
	for _, tc := range in.ToolCalls {
		names = append(names, tc.ToolName)
	}
	return names
}

// TokenTotals sums token usage across model calls.
type TokenTotals struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Summary aggregates a session's interactions.
type Summary struct {
	TotalInteractions    int            `json:"total_interactions"`
	TotalToolCalls       int            `json:"total_tool_calls"`
	TotalAPIEndpointsHit int            `json:"total_api_endpoints_hit"`
	ToolsUsed            map[string]int `json:"tools_used"`
	APIClientsUsed       map[string]int `json:"api_clients_used"`
	TotalLLMCalls        int            `json:"total_llm_calls"`
	TotalTokens          TokenTotals    `json:"total_tokens"`
}

// SessionLog is the full log of one session.
type SessionLog struct {
	SessionID    string        `json:"session_id"`
	CreatedAt    string        `json:"created_at"`
	UpdatedAt    string        `json:"updated_at"`
	Summary      Summary       `json:"summary"`
	Interactions []Interaction `json:"interactions"`
}

// SessionEntry is a SessionLog without its interactions.
type SessionEntry struct {
	SessionID string  `json:"session_id"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
	Summary   Summary `json:"summary"`
}

// Logger records interactions.
type Logger struct {
	store     Store
	clientFor func(tool string) domain.APIClient
	logger    *slog.Logger
	now       func() time.Time
}

// New builds a Logger. clientFor maps a tool name to the content API that
// serves it.
func New(store Store, clientFor func(string) domain.APIClient, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if clientFor == nil {
		clientFor = func(string) domain.APIClient { return domain.ClientUnknown }
	}
	return &Logger{store: store, clientFor: clientFor, logger: logger, now: time.Now}
}

// Start begins tracking a user turn.
func (l *Logger) Start(sessionID, userPrompt string) *Interaction {
	now := l.now()
	return &Interaction{
		SessionID:  sessionID,
		Timestamp:  timestamp(now),
		UserPrompt: userPrompt,
		ToolCalls:  []ToolCallLog{},
		LLMCalls:   []LLMCallLog{},
		start:      now,
	}
}

// LogToolCall records a tool execution.
func (l *Logger) LogToolCall(in *Interaction, tool string, args map[string]any, summary string, duration time.Duration) {
	if args == nil {
		args = map[string]any{}
	}
	in.ToolCalls = append(in.ToolCalls, ToolCallLog{
		ToolName:      tool,
		Arguments:     args,
		APIClient:     l.clientFor(tool),
		ResultSummary: summary,
		DurationMs:    millis(duration),
		Timestamp:     timestamp(l.now()),
	})
}

// LogLLMCall records a model call. iteration is 1-based.
func (l *Logger) LogLLMCall(in *Interaction, iteration int, finishReason string, usage domain.Usage) {
	in.LLMCalls = append(in.LLMCalls, LLMCallLog{
		Iteration:    iteration,
		FinishReason: finishReason,
		Tokens:       usage,
		Timestamp:    timestamp(l.now()),
	})
}

// End finalizes and persists the interaction.
func (l *Logger) End(ctx context.Context, in *Interaction, response string) error {
	in.ModelResponse = response
	in.TotalDurationMs = millis(l.now().Sub(in.start))

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode interaction: %w", err)
	}
	if err := l.store.AppendInteraction(ctx, &repository.InteractionRow{
		SessionID: in.SessionID,
		Timestamp: in.Timestamp,
		Payload:   payload,
	}); err != nil {
		l.logger.Error("log_save_failed", "session_id", in.SessionID, "error", err)
		return fmt.Errorf("failed to save interaction: %w", err)
	}

	l.logger.Info("interaction_logged",
		"session_id", in.SessionID,
		"tool_calls", len(in.ToolCalls),
		"llm_calls", len(in.LLMCalls),
		"duration_ms", in.TotalDurationMs,
	)
	return nil
}

// SessionLog returns the log of sessionID, or nil when nothing was logged.
func (l *Logger) SessionLog(ctx context.Context, sessionID string) (*SessionLog, error) {
	rows, err := l.store.ListInteractions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	interactions := make([]Interaction, 0, len(rows))
	for _, row := range rows {
		var in Interaction
		if err := json.Unmarshal(row.Payload, &in); err != nil {
			l.logger.Warn("log_entry_unreadable", "session_id", sessionID, "error", err)
			continue
		}
		in.SessionID = row.SessionID
		interactions = append(interactions, in)
	}
	if len(interactions) == 0 {
		return nil, nil
	}

	return &SessionLog{
		SessionID:    sessionID,
		CreatedAt:    interactions[0].Timestamp,
		UpdatedAt:    interactions[len(interactions)-1].Timestamp,
		Summary:      Summarize(interactions),
		Interactions: interactions,
	}, nil
}

// ListSessions returns an entry for every logged session, most recently
// updated first.
func (l *Logger) ListSessions(ctx context.Context) ([]SessionEntry, error) {
	ids, err := l.store.ListLoggedSessions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SessionEntry, 0, len(ids))
	for _, id := range ids {
		log, err := l.SessionLog(ctx, id)
		if err != nil {
			return nil, err
		}
		if log == nil {
			continue
		}
		out = append(out, SessionEntry{
			SessionID: log.SessionID,
			CreatedAt: log.CreatedAt,
			UpdatedAt: log.UpdatedAt,
			Summary:   log.Summary,
		})
	}
	return out, nil
}

// Summarize aggregates interactions.
func Summarize(interactions []Interaction) Summary {
	s := Summary{
		TotalInteractions: len(interactions),
		ToolsUsed:         map[string]int{},
		APIClientsUsed:    map[string]int{},
	}
	for _, in := range interactions {
		s.TotalToolCalls += len(in.ToolCalls)
		s.TotalLLMCalls += len(in.LLMCalls)
		for _, tc := range in.ToolCalls {
			s.ToolsUsed[tc.ToolName]++
			s.APIClientsUsed[string(tc.APIClient)]++
		}
		for _, lc := range in.LLMCalls {
			s.TotalTokens.Prompt += lc.Tokens.PromptTokens
			s.TotalTokens.Completion += lc.Tokens.CompletionTokens
			s.TotalTokens.Total += lc.Tokens.TotalTokens
		}
	}
	s.TotalAPIEndpointsHit = s.TotalToolCalls
	return s
}

// SummarizeResult describes a serialized tool result in a few words.
func SummarizeResult(result string) string {
	var data map[string]any
	if err := json.Unmarshal([]byte(result), &data); err != nil {
		return fmt.Sprintf("Raw result (%d chars)", utf8.RuneCountInString(result))
	}
	if e, ok := data["error"]; ok {
		return "Error: " + sanitize.Truncate(fmt.Sprint(e), 80)
	}
	if c, ok := data["count"]; ok {
		if n, ok := c.(float64); ok {
			return fmt.Sprintf("Found %d results", int(n))
		}
		return fmt.Sprintf("Found %v results", c)
	}
	if r, ok := data["result"].(string); ok {
		return sanitize.Truncate(r, 80)
	}
	return fmt.Sprintf("Result (%d chars)", utf8.RuneCountInString(result))
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func millis(d time.Duration) float64 {
	return math.Round(float64(d.Microseconds())/10) / 100
}
