package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/entertainbot/internal/config"
	"github.com/xiaot623/entertainbot/internal/domain"
	"github.com/xiaot623/entertainbot/internal/logging"
)

func newTestApp(t *testing.T) *httptest.Server {
	t.Helper()
	t.Setenv("LLM_MODE", "mock")
	dir := t.TempDir()
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "data", "test.db"))
	t.Setenv("CONTEXT_DB_PATH", filepath.Join(dir, "context"))
	t.Setenv("LOG_LEVEL", "ERROR")

	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := buildApp(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(a.close)

	ts := httptest.NewServer(a.server)
	t.Cleanup(ts.Close)
	return ts
}

func TestToolsCommand(t *testing.T) {
	var out bytes.Buffer
	toolsCmd.SetOut(&out)
	require.NoError(t, toolsCmd.RunE(toolsCmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 14)
	assert.Contains(t, out.String(), "search_anime")
	assert.Contains(t, out.String(), "get_tv_schedule")
}

func TestServeChatAndLogs(t *testing.T) {
	ts := newTestApp(t)

	resp, err := http.Post(ts.URL+"/chat", "application/json",
		strings.NewReader(`{"message": "recommend a book", "session_id": "e2e"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var chat domain.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chat))
	assert.True(t, chat.Success)
	assert.Equal(t, "e2e", chat.SessionID)
	assert.Contains(t, chat.Response, "[MOCK]")

	logs, err := http.Get(ts.URL + "/logs/e2e")
	require.NoError(t, err)
	defer logs.Body.Close()
	assert.Equal(t, http.StatusOK, logs.StatusCode)
}

func TestChatCommand(t *testing.T) {
	ts := newTestApp(t)
	chatAddr = "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	chatSession = "cli-session"
	t.Cleanup(func() { chatAddr, chatSession = "ws://localhost:5000/ws", "" })

	var out bytes.Buffer
	chatCmd.SetIn(strings.NewReader("hello there\n/clear\n/quit\n"))
	chatCmd.SetOut(&out)
	require.NoError(t, chatCmd.RunE(chatCmd, nil))

	assert.Contains(t, out.String(), "Session: cli-session")
	assert.Contains(t, out.String(), "[MOCK] Received your message")
	assert.Contains(t, out.String(), "History cleared.")
	assert.Contains(t, out.String(), "Bye!")
}
