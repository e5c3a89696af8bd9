package domain

import "strings"

// RouteContext is the navigation section the user is in, resolved once from the raw path
type RouteContext string

const (
	RouteHome       RouteContext = "home"
	RouteTravel     RouteContext = "travel"
	RouteCellar     RouteContext = "cellar"
	RouteDrinksFood RouteContext = "drinks_food"
)

// ParseRoute maps a raw path to its RouteContext by sub-path containment.
// Anything unrecognised is treated as the landing context.
func ParseRoute(path string) RouteContext {
	p := strings.ToLower(strings.TrimSpace(path))
	switch {
	case strings.Contains(p, "/travel"):
		return RouteTravel
	case strings.Contains(p, "/cellar"):
		return RouteCellar
	case strings.Contains(p, "/drinks-food"):
		return RouteDrinksFood
	default:
		return RouteHome
	}
}
