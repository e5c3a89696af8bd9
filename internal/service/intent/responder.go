package intent

import "github.com/seu-repo/concierge/internal/domain"

// Responder returns the pre-authored template of a rule. Templates are
// context-agnostic; nothing is substituted into them.
type Responder struct {
	fallback *domain.IntentRule
}

func NewResponder(fallback *domain.IntentRule) *Responder {
	if fallback == nil {
		fb := fallbackRule
		fallback = &fb
	}
	return &Responder{fallback: fallback}
}

// Respond returns the reply text and a copy of the follow-up labels
func (r *Responder) Respond(rule *domain.IntentRule) (string, []string) {
	if rule == nil {
		rule = r.fallback
	}
	return rule.ResponseTemplate, append([]string(nil), rule.FollowUps...)
}
