package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/xiaot623/entertainbot/internal/history"
)

// Session is one conversation. Its history is only touched while the turn
// lock is held.
type Session struct {
	ID      string
	History *history.History

	turn       sync.Mutex
	lastActive time.Time
}

// SessionStore owns the in-memory sessions and their last-active times.
type SessionStore struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	maxLength    int
	systemPrompt string
	logger       *slog.Logger
	now          func() time.Time
}

// NewSessionStore creates an empty store. New sessions get a history capped
// at maxLength with systemPrompt pinned.
func NewSessionStore(maxLength int, systemPrompt string, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions:     make(map[string]*Session),
		maxLength:    maxLength,
		systemPrompt: systemPrompt,
		logger:       logger,
		now:          time.Now,
	}
}

// GetOrCreate returns the session for id, creating it on first use, and
// marks it active.
func (s *SessionStore) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{ID: id, History: history.New(s.maxLength, s.systemPrompt)}
		s.sessions[id] = sess
		s.logger.Info("session_created", "session_id", id)
	}
	sess.lastActive = s.now()
	return sess
}

// Get returns the session for id without creating or touching it.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Touch marks sess active now.
func (s *SessionStore) Touch(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.lastActive = s.now()
}

// Clear removes the session and reports whether it existed.
func (s *SessionStore) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	s.logger.Info("session_cleared", "session_id", id)
	return true
}

// SweepExpired removes sessions idle for longer than ttl and returns how
// many were removed. A session with a turn in progress is never removed.
func (s *SessionStore) SweepExpired(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastActive) <= ttl {
			continue
		}
		if !sess.turn.TryLock() {
			continue
		}
		delete(s.sessions, id)
		sess.turn.Unlock()
		removed++
	}
	if removed > 0 {
		s.logger.Info("sessions_cleaned_up", "count", removed)
	}
	return removed
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
