package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

const defaultCheckTimeout = 5 * time.Second

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
	Timestamp time.Time     `json:"timestamp"`
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents the readiness response
type ReadyResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Checker defines a health check function
type Checker func(ctx context.Context) CheckResult

// Pinger is anything with a cheap connectivity probe: caches and brokers.
// Ping must give up once ctx is done.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service handles health checks
type Service struct {
	startTime    time.Time
	version      string
	checkTimeout time.Duration
	checkers  map[string]Checker
	log       *zap.Logger
	mu        sync.RWMutex
}

// NewService creates a new health service
func NewService(version string, log *zap.Logger) *Service {
	return &Service{
		startTime:    time.Now(),
		version:      version,
		checkTimeout: defaultCheckTimeout,
		checkers:     make(map[string]Checker),
		log:          log,
	}
}

// RegisterChecker registers a custom health checker
func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
	s.log.Info("Registered health checker", zap.String("name", name))
}

// RegisterPinger registers a ping-based check. A failing optional dependency
// degrades the service instead of taking it out of rotation.
func (s *Service) RegisterPinger(name string, p Pinger, optional bool) {
	failed := StatusUnhealthy
	if optional {
		failed = StatusDegraded
	}

	s.RegisterChecker(name, func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{Name: name, Timestamp: start}

		err := p.Ping(ctx)
		result.Duration = time.Since(start)
		if err != nil {
			result.Status = failed
			result.Message = fmt.Sprintf("ping failed: %v", err)
			s.log.Warn("Health check failed", zap.String("name", name), zap.Error(err))
			return result
		}

		result.Status = StatusHealthy
		result.Message = "connection ok"
		return result
	})
}

// Health performs a basic liveness check
func (s *Service) Health(ctx context.Context) *HealthResponse {
	return &HealthResponse{
		Status:    StatusHealthy,
		Version:   s.version,
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now(),
	}
}

// Ready runs every registered check concurrently
func (s *Service) Ready(ctx context.Context) *ReadyResponse {
	s.mu.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for k, v := range s.checkers {
		checkers[k] = v
	}
	s.mu.RUnlock()

	results := make(map[string]CheckResult, len(checkers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for name, checker := range checkers {
		name, checker := name, checker
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(gctx, s.checkTimeout)
			defer cancel()

			result := checker(checkCtx)

			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overallStatus := StatusHealthy
	allReady := true

	for _, result := range results {
		if result.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			allReady = false
		} else if result.Status == StatusDegraded && overallStatus != StatusUnhealthy {
			overallStatus = StatusDegraded
		}
	}

	return &ReadyResponse{
		Ready:     allReady,
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
	}
}
