package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/pkg/config"
)

// Methods and headers the session API needs from a browser. Configured
// values extend these, they never replace them.
var (
	sessionAPIMethods = []string{
		fiber.MethodGet,
		fiber.MethodPost,
		fiber.MethodPut,
		fiber.MethodDelete,
		fiber.MethodOptions,
	}
	sessionAPIHeaders = []string{
		fiber.HeaderOrigin,
		fiber.HeaderContentType,
		fiber.HeaderAccept,
	}
	// rate limit state so widgets can back off before hitting 429
	rateLimitHeaders = []string{
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
		"X-RateLimit-Reset",
		fiber.HeaderRetryAfter,
	}
)

const defaultCORSMaxAge = 86400

// NewCORS builds the CORS policy for browser widgets calling the session API.
// Credentials are never allowed together with a wildcard origin.
func NewCORS(cfg config.CORSConfig, log *zap.Logger) fiber.Handler {
	origins := normalizeList(cfg.AllowedOrigins)
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	credentials := cfg.Credentials
	if credentials && contains(origins, "*") {
		log.Warn("CORS credentials disabled: allowed_origins contains a wildcard")
		credentials = false
	}

	maxAge := defaultCORSMaxAge
	if cfg.MaxAge > 0 {
		maxAge = cfg.MaxAge
	}

	return fibercors.New(fibercors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowMethods:     strings.Join(merge(sessionAPIMethods, cfg.AllowedMethods), ","),
		AllowHeaders:     strings.Join(merge(sessionAPIHeaders, cfg.AllowedHeaders), ","),
		ExposeHeaders:    strings.Join(merge(rateLimitHeaders, cfg.ExposeHeaders), ","),
		AllowCredentials: credentials,
		MaxAge:           maxAge,
	})
}

// merge appends extras to base, skipping case-insensitive duplicates
func merge(base, extra []string) []string {
	out := append([]string(nil), base...)
	for _, v := range normalizeList(extra) {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func normalizeList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, have := range values {
		if strings.EqualFold(have, v) {
			return true
		}
	}
	return false
}
