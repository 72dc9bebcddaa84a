package service

import (
	"context"
	"time"
)

// RunSessionSweeper removes sessions idle longer than ttl every interval
// until ctx is done.
func (s *Service) RunSessionSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSessions(ttl)
		}
	}
}

func (s *Service) sweepSessions(ttl time.Duration) int {
	n := s.sessions.SweepExpired(ttl)
	if n > 0 {
		s.logger.Debug("session_sweep", "removed", n, "remaining", s.sessions.Count())
	}
	return n
}
