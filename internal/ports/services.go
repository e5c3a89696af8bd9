package ports

import (
	"github.com/seu-repo/concierge/internal/domain"
)

// PersonaResolver selects the active persona for a navigation context.
// Implementations must be pure: same inputs, structurally equal output.
type PersonaResolver interface {
	Resolve(route domain.RouteContext, venue *domain.VenueContext) domain.PersonaDefinition
}

// IntentClassifier maps free text to exactly one intent rule
type IntentClassifier interface {
	Classify(message string) *domain.IntentRule
}

// ResponseGenerator turns a matched rule into reply text and follow-ups
type ResponseGenerator interface {
	Respond(rule *domain.IntentRule) (string, []string)
}
