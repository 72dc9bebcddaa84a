package service

import (
	"context"
	"sync"
	"time"

	"github.com/xiaot623/entertainbot/internal/domain"
)

const healthCheckTimeout = 10 * time.Second

// Health checks every dependency concurrently. The second result is true
// when all of them answered.
func (s *Service) Health(ctx context.Context) (domain.HealthResponse, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		checks  = make(map[string]string, len(s.dependencies))
		healthy = true
	)
	for _, dep := range s.dependencies {
		wg.Add(1)
		go func(dep Dependency) {
			defer wg.Done()
			status := "ok"
			if err := dep.Checker.HealthCheck(ctx); err != nil {
				s.logger.Warn("health_check_failed", "dependency", dep.Name, "error", err)
				status = "error: " + err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			checks[dep.Name] = status
			if status != "ok" {
				healthy = false
			}
		}(dep)
	}
	wg.Wait()

	resp := domain.HealthResponse{
		Status:       "healthy",
		Version:      Version,
		Dependencies: checks,
	}
	if !healthy {
		resp.Status = "degraded"
	}
	return resp, healthy
}
