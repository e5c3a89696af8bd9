package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/concierge/internal/domain"
	"github.com/seu-repo/concierge/internal/ports"
)

type PersonaHandler struct {
	resolver ports.PersonaResolver
	log      *zap.Logger
}

func NewPersonaHandler(resolver ports.PersonaResolver, log *zap.Logger) *PersonaHandler {
	return &PersonaHandler{
		resolver: resolver,
		log:      log,
	}
}

// Resolve previews the persona for ?route=&venue_name=&venue_types=a,b
func (h *PersonaHandler) Resolve(c *fiber.Ctx) error {
	route := domain.ParseRoute(c.Query("route"))

	var venue *domain.VenueContext
	if name := strings.TrimSpace(c.Query("venue_name")); name != "" {
		venue = &domain.VenueContext{Name: name}
		for _, t := range strings.Split(c.Query("venue_types"), ",") {
			if t = strings.TrimSpace(t); t != "" {
				venue.Types = append(venue.Types, t)
			}
		}
	}

	persona := h.resolver.Resolve(route, venue)
	return c.JSON(fiber.Map{
		"route":   route,
		"persona": persona,
	})
}

func (h *PersonaHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/personas/resolve", h.Resolve)
}
