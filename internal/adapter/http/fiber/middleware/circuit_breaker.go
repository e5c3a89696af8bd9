package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/concierge/pkg/config"
)

// errServerStatus marks a handler that answered 5xx without returning an error
var errServerStatus = errors.New("server error status")

// CircuitBreaker trips when too many requests end in a server error.
// Client errors such as 404 or 409 do not count as failures.
func CircuitBreaker(cfg config.CircuitBreakerConfig, log *zap.Logger) fiber.Handler {
	settings := circuitbreaker.Settings("concierge-api", cfg, log)
	settings.IsSuccessful = func(err error) bool {
		return err == nil || StatusFor(err) < fiber.StatusInternalServerError
	}
	cb := gobreaker.NewCircuitBreaker(settings)

	return func(c *fiber.Ctx) error {
		_, err := cb.Execute(func() (interface{}, error) {
			if err := c.Next(); err != nil {
				return nil, err
			}
			if c.Response().StatusCode() >= fiber.StatusInternalServerError {
				return nil, errServerStatus
			}
			return nil, nil
		})

		if circuitbreaker.IsRejected(err) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Service temporarily unavailable",
			})
		}

		if errors.Is(err, errServerStatus) {
			return nil
		}
		return err
	}
}
