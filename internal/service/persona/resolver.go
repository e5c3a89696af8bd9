package persona

import (
	"fmt"
	"strings"

	"github.com/seu-repo/concierge/internal/domain"
)

// Resolver derives the active persona from the navigation context
type Resolver struct {
	catalog *Catalog
}

func NewResolver(catalog *Catalog) *Resolver {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Resolver{catalog: catalog}
}

// Resolve is a pure function of its inputs. Derived personas are built from
// copies; the catalog is never modified.
func (r *Resolver) Resolve(route domain.RouteContext, venue *domain.VenueContext) domain.PersonaDefinition {
	switch route {
	case domain.RouteTravel:
		return r.catalog.mustGet(domain.PersonaTravel)

	case domain.RouteCellar:
		return r.catalog.mustGet(domain.PersonaSommelier)

	case domain.RouteDrinksFood:
		chef := r.catalog.mustGet(domain.PersonaChef)
		chef.Suggestions = append([]domain.SuggestionItem{venueSuggestion(venue)}, chef.Suggestions...)
		return chef

	default:
		// Landing context: boost travel suggestions after the assistant's own
		assistant := r.catalog.mustGet(domain.PersonaAssistant)
		travel := r.catalog.mustGet(domain.PersonaTravel)
		assistant.Suggestions = append(assistant.Suggestions, travel.Suggestions...)
		return assistant
	}
}

// ResolvePath resolves straight from a raw route path
func (r *Resolver) ResolvePath(path string, venue *domain.VenueContext) domain.PersonaDefinition {
	return r.Resolve(domain.ParseRoute(path), venue)
}

func venueSuggestion(venue *domain.VenueContext) domain.SuggestionItem {
	if venue.IsFoodVenue() {
		name := strings.TrimSpace(venue.Name)
		return domain.SuggestionItem{
			Label:       fmt.Sprintf("Cardápio do %s", name),
			Icon:        "menu",
			Description: "Veja o que pedir por aqui",
			Keywords:    []string{"cardápio", strings.ToLower(name), "restaurante"},
			Prompt:      fmt.Sprintf("Quero ver o cardápio do %s", name),
		}
	}

	return domain.SuggestionItem{
		Label:       "Encontrar restaurantes próximos",
		Icon:        "pin",
		Description: "Lugares para comer perto de você",
		Keywords:    []string{"restaurante", "perto"},
		Prompt:      "Quero encontrar restaurantes perto de mim",
	}
}
