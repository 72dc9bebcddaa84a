package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInteractionLogs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.AppendInteraction(ctx, &InteractionRow{SessionID: "a", Timestamp: "t1", Payload: []byte(`{"n":1}`)}))
	require.NoError(t, store.AppendInteraction(ctx, &InteractionRow{SessionID: "b", Timestamp: "t2", Payload: []byte(`{"n":2}`)}))
	require.NoError(t, store.AppendInteraction(ctx, &InteractionRow{SessionID: "a", Timestamp: "t3", Payload: []byte(`{"n":3}`)}))

	got, err := store.ListInteractions(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, `{"n":1}`, string(got[0].Payload))
	assert.Equal(t, "t3", got[1].Timestamp)

	none, err := store.ListInteractions(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)

	sessions, err := store.ListLoggedSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, sessions)
}
