package circuitbreaker

import (
	"errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/pkg/config"
)

const (
	defaultMaxRequests      = 3
	defaultFailureThreshold = 0.6
)

// Settings builds gobreaker settings from configuration. The breaker trips
// once at least MaxRequests calls were seen and the failure ratio reaches
// FailureThreshold. State changes are logged.
func Settings(name string, cfg config.CircuitBreakerConfig, log *zap.Logger) gobreaker.Settings {
	maxRequests := uint32(defaultMaxRequests)
	if cfg.MaxRequests > 0 {
		maxRequests = uint32(cfg.MaxRequests)
	}
	threshold := cfg.FailureThreshold
	if threshold <= 0 {
		threshold = defaultFailureThreshold
	}

	return gobreaker.Settings{
		Name:        name,
		MaxRequests: maxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < maxRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
}

// New creates a named breaker from configuration
func New(name string, cfg config.CircuitBreakerConfig, log *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(Settings(name, cfg, log))
}

// IsRejected reports whether err means the breaker refused the call
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
