// Package repository persists interaction logs in SQLite.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// InteractionRow is one finished interaction, stored as a JSON document.
type InteractionRow struct {
	SessionID string
	Timestamp string
	Payload   []byte
}

// SQLiteStore is the SQLite-backed repository.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dsn and applies migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS interaction_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_session ON interaction_logs(session_id, id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AppendInteraction stores one finished interaction.
func (s *SQLiteStore) AppendInteraction(ctx context.Context, row *InteractionRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interaction_logs (session_id, timestamp, payload) VALUES (?, ?, ?)`,
		row.SessionID, row.Timestamp, string(row.Payload))
	return err
}

// ListInteractions returns the interactions of sessionID in insertion order.
// A session with no interactions yields an empty slice.
func (s *SQLiteStore) ListInteractions(ctx context.Context, sessionID string) ([]InteractionRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, timestamp, payload FROM interaction_logs WHERE session_id = ? ORDER BY id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InteractionRow
	for rows.Next() {
		var row InteractionRow
		var payload string
		if err := rows.Scan(&row.SessionID, &row.Timestamp, &payload); err != nil {
			return nil, err
		}
		row.Payload = []byte(payload)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListLoggedSessions returns the IDs of sessions with logged interactions,
// most recently updated first.
func (s *SQLiteStore) ListLoggedSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM interaction_logs GROUP BY session_id ORDER BY MAX(id) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
