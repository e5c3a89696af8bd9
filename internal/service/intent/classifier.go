package intent

import (
	"strings"

	"github.com/seu-repo/concierge/internal/domain"
)

// Classifier maps free text to an intent rule by ordered keyword containment.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules    []domain.IntentRule
	fallback *domain.IntentRule
}

// NewClassifier builds a classifier over the built-in rule table
func NewClassifier() *Classifier {
	return NewClassifierWithRules(defaultRules, fallbackRule)
}

// NewClassifierWithRules builds a classifier over a custom ordered table.
// Keywords are stored lowercased; rules without keywords are ignored since
// only the fallback may match everything.
func NewClassifierWithRules(rules []domain.IntentRule, fallback domain.IntentRule) *Classifier {
	c := &Classifier{rules: make([]domain.IntentRule, 0, len(rules))}
	for _, r := range rules {
		if len(r.TriggerKeywords) == 0 {
			continue
		}
		kw := make([]string, len(r.TriggerKeywords))
		for i, k := range r.TriggerKeywords {
			kw[i] = strings.ToLower(k)
		}
		r.TriggerKeywords = kw
		r.FollowUps = append([]string(nil), r.FollowUps...)
		c.rules = append(c.rules, r)
	}
	fb := fallback
	fb.TriggerKeywords = nil
	fb.FollowUps = append([]string(nil), fallback.FollowUps...)
	c.fallback = &fb
	return c
}

// Classify returns the first rule with a keyword contained in the lowercased
// message, or the fallback rule. The same input always yields the same rule pointer.
func (c *Classifier) Classify(message string) *domain.IntentRule {
	text := strings.ToLower(message)
	for i := range c.rules {
		if matches(text, c.rules[i].TriggerKeywords) {
			return &c.rules[i]
		}
	}
	return c.fallback
}

// Rules returns the ordered table, fallback excluded
func (c *Classifier) Rules() []domain.IntentRule {
	out := make([]domain.IntentRule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Fallback returns the rule used when nothing matches
func (c *Classifier) Fallback() *domain.IntentRule {
	return c.fallback
}

func matches(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
