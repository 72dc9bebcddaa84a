package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/entertainbot/internal/adapter/llm"
	"github.com/xiaot623/entertainbot/internal/apperr"
	"github.com/xiaot623/entertainbot/internal/convlog"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/logging"
	"github.com/xiaot623/entertainbot/internal/service"
	"github.com/xiaot623/entertainbot/internal/tools"
	"github.com/xiaot623/entertainbot/tests/helpers"
)

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

type testOpts struct {
	script    []llm.MockStep
	noLogs    bool
	unhealthy bool
}

func newTestHandler(t *testing.T, opts testOpts) *Handler {
	t.Helper()

	registry, err := tools.NewRegistry(tools.Tool{
		Name:   "search_anime",
		Client: domain.ClientJikan,
		Exec: func(ctx context.Context, args tools.Args) (tools.Result, error) {
			return tools.List([]domain.Anime{{MalID: 20, Title: "Naruto"}}), nil
		},
	})
	require.NoError(t, err)
	router := tools.NewRouter(registry, tools.WithLogger(logging.Discard()))

	var checker service.HealthChecker = stubChecker{}
	if opts.unhealthy {
		checker = stubChecker{err: errors.New("connection refused")}
	}

	deps := service.Deps{
		Sessions: service.NewSessionStore(20, "You are EntertainBot.", logging.Discard()),
		LLM:      llm.NewMockClient(opts.script...),
		Router:   router,
		Tools:    tools.MustDefinitions(),
		Logger:   logging.Discard(),
		Dependencies: []service.Dependency{
			{Name: "jikan_api", Checker: stubChecker{}},
			{Name: "tvmaze_api", Checker: checker},
		},
	}
	if !opts.noLogs {
		deps.ConvLog = convlog.New(helpers.NewTestSQLiteStore(t), router.ClientFor, logging.Discard())
	}

	h := NewHandler(service.New(deps, service.Options{}), logging.Discard())
	h.newID = func() string { return "generated-id" }
	return h
}

func postJSON(e *echo.Echo, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()
	var resp domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp
}

func TestChatToolRoundTrip(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, testOpts{script: []llm.MockStep{
		llm.ToolStep(domain.ToolCallRequest{ID: "c1", Name: "search_anime", Arguments: map[string]any{"query": "Naruto"}}),
		llm.TextStep("Naruto follows a young ninja."),
	}})

	c, rec := postJSON(e, "/chat", `{"message": "Tell me about Naruto"}`)
	require.NoError(t, h.Chat(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Naruto follows a young ninja.", resp.Response)
	assert.Equal(t, "generated-id", resp.SessionID)
}

func TestChatKeepsProvidedSession(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, testOpts{script: []llm.MockStep{llm.TextStep("hi")}})

	c, rec := postJSON(e, "/chat", `{"message": "hello", "session_id": "abc-123"}`)
	require.NoError(t, h.Chat(c))

	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "abc-123", resp.SessionID)
	assert.Equal(t, 1, h.service.SessionCount())
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"invalid json", `{"message": `, http.StatusBadRequest, apperr.CodeInvalidJSON},
		{"message not a string", `{"message": 123}`, http.StatusUnprocessableEntity, apperr.CodeValidation},
		{"session id not a string", `{"message": "hi", "session_id": 7}`, http.StatusUnprocessableEntity, apperr.CodeValidation},
		{"empty message", `{"message": "   "}`, http.StatusUnprocessableEntity, apperr.CodeValidation},
		{"missing message", `{}`, http.StatusUnprocessableEntity, apperr.CodeValidation},
		{"too long", `{"message": "` + strings.Repeat("a", 2001) + `"}`, http.StatusUnprocessableEntity, apperr.CodeValidation},
		{"bad session id", `{"message": "hi", "session_id": "../etc"}`, http.StatusUnprocessableEntity, apperr.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			h := newTestHandler(t, testOpts{})
			c, rec := postJSON(e, "/chat", tt.body)
			require.NoError(t, h.Chat(c))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
			assert.Equal(t, 0, h.service.SessionCount())
		})
	}
}

func TestChatLLMFailureIsGeneric(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, testOpts{script: []llm.MockStep{
		{Err: &apperr.LLMServiceError{Status: 401, Message: "invalid api key sk-secret"}},
	}})

	c, rec := postJSON(e, "/chat", `{"message": "hello"}`)
	require.NoError(t, h.Chat(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, processingFailed, resp.Error.Message)
	assert.Equal(t, apperr.CodeLLMService, resp.Error.Code)
	assert.NotContains(t, rec.Body.String(), "sk-secret")
}

func TestClearChat(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, testOpts{script: []llm.MockStep{llm.TextStep("hi")}})

	c, _ := postJSON(e, "/chat", `{"message": "hello", "session_id": "s1"}`)
	require.NoError(t, h.Chat(c))
	require.Equal(t, 1, h.service.SessionCount())

	c, rec := postJSON(e, "/chat/clear", `{"session_id": "s1"}`)
	require.NoError(t, h.ClearChat(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true, "message": "Session cleared"}`, rec.Body.String())
	assert.Equal(t, 0, h.service.SessionCount())

	c, rec = postJSON(e, "/chat/clear", `{}`)
	require.NoError(t, h.ClearChat(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "session_id required", decodeError(t, rec).Error.Message)

	c, rec = postJSON(e, "/chat/clear", `{"session_id": 42}`)
	require.NoError(t, h.ClearChat(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, apperr.CodeValidation, decodeError(t, rec).Error.Code)

	c, rec = postJSON(e, "/chat/clear", `{"session_id": `)
	require.NoError(t, h.ClearChat(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperr.CodeInvalidJSON, decodeError(t, rec).Error.Code)
}

func TestChatTypeErrorNamesField(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, testOpts{})

	c, rec := postJSON(e, "/chat", `{"message": 123}`)
	require.NoError(t, h.Chat(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error.Message, "message")
}

func TestHealth(t *testing.T) {
	e := echo.New()

	h := newTestHandler(t, testOpts{})
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Dependencies["jikan_api"])

	h = newTestHandler(t, testOpts{unhealthy: true})
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)
	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "error: connection refused", resp.Dependencies["tvmaze_api"])
}

func TestLogs(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, testOpts{script: []llm.MockStep{
		llm.ToolStep(domain.ToolCallRequest{ID: "c1", Name: "search_anime", Arguments: map[string]any{"query": "Naruto"}}),
		llm.TextStep("done"),
	}})

	c, _ := postJSON(e, "/chat", `{"message": "hello", "session_id": "s1"}`)
	require.NoError(t, h.Chat(c))

	rec := httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/logs", nil), rec)
	require.NoError(t, h.ListLogs(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Sessions []convlog.SessionEntry `json:"sessions"`
		Count    int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "s1", list.Sessions[0].SessionID)
	assert.Equal(t, map[string]int{"jikan": 1}, list.Sessions[0].Summary.APIClientsUsed)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/logs/s1", nil), rec)
	c.SetPath("/logs/:session_id")
	c.SetParamNames("session_id")
	c.SetParamValues("s1")
	require.NoError(t, h.GetLog(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var log convlog.SessionLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &log))
	require.Len(t, log.Interactions, 1)
	assert.Equal(t, "hello", log.Interactions[0].UserPrompt)
	assert.Equal(t, "done", log.Interactions[0].ModelResponse)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/logs/nobody", nil), rec)
	c.SetPath("/logs/:session_id")
	c.SetParamNames("session_id")
	c.SetParamValues("nobody")
	require.NoError(t, h.GetLog(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperr.CodeNotFound, decodeError(t, rec).Error.Code)
}

func TestLogsDisabled(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, testOpts{noLogs: true})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/logs", nil), rec)
	require.NoError(t, h.ListLogs(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apperr.CodeUnavailable, decodeError(t, rec).Error.Code)
}

func TestListTools(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t, testOpts{})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/tools", nil), rec)
	require.NoError(t, h.ListTools(c))

	var resp struct {
		Tools []domain.ToolListItem `json:"tools"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 13, resp.Count)
}
