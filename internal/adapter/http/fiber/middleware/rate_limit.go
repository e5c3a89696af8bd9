package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/seu-repo/concierge/pkg/config"
)

// RateLimit caps requests per client IP within the configured window
func RateLimit(cfg config.RateLimitingConfig) fiber.Handler {
	max := cfg.MaxRequests
	if max <= 0 {
		max = 120
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			return !cfg.Enabled
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		},
	})
}
