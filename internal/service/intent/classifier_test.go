package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seu-repo/concierge/internal/domain"
)

func TestClassify_Topics(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		message string
		want    domain.Topic
	}{
		{"Quero viajar para a praia", domain.TopicTrip},
		{"Onde fica um bom RESTAURANTE?", domain.TopicRestaurant},
		{"Preciso de um hotel", domain.TopicLodging},
		{"Quanto custa a passagem?", domain.TopicFlights},
		{"algo barato por favor", domain.TopicBudget},
		{"me ajuda com o roteiro", domain.TopicItinerary},
		{"alguma dica?", domain.TopicGeneralTips},
		{"Como funciona isso?", domain.TopicHelp},
		{"bom dia", domain.TopicDefault},
		{"", domain.TopicDefault},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.message).Topic)
		})
	}
}

// Precedence between overlapping topics is fixed by table order.
func TestClassify_PrecedenceSnapshot(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		message string
		want    domain.Topic
	}{
		{"Quero viajar e achar um restaurante", domain.TopicTrip},
		{"restaurante perto da praia", domain.TopicTrip},
		{"hotel barato", domain.TopicLodging},
		{"barato hotel", domain.TopicLodging},
		{"jantar no hotel", domain.TopicRestaurant},
		{"voo barato", domain.TopicFlights},
		{"roteiro com dicas", domain.TopicItinerary},
		{"dica de ajuda", domain.TopicGeneralTips},
		{"preciso de ajuda com passagens baratas", domain.TopicFlights},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.message).Topic, tt.message)
	}

	got := make([]domain.Topic, 0, len(c.Rules()))
	for _, r := range c.Rules() {
		got = append(got, r.Topic)
	}
	assert.Equal(t, []domain.Topic{
		domain.TopicTrip,
		domain.TopicRestaurant,
		domain.TopicLodging,
		domain.TopicFlights,
		domain.TopicBudget,
		domain.TopicItinerary,
		domain.TopicGeneralTips,
		domain.TopicHelp,
	}, got)
}

func TestClassify_DefaultIffNoKeywordMatches(t *testing.T) {
	c := NewClassifier()
	messages := []string{
		"Quero viajar para a praia",
		"olá",
		"Bom dia, tudo bem?",
		"HOSTEL",
		"qual o PREÇO?",
		"me indica um lugar",
		"xyz",
		"   ",
		"Férias em família",
		"help me",
	}

	for _, m := range messages {
		lower := strings.ToLower(m)
		anyMatch := false
		for _, r := range c.Rules() {
			for _, k := range r.TriggerKeywords {
				if strings.Contains(lower, k) {
					anyMatch = true
				}
			}
		}
		got := c.Classify(m)
		assert.Equal(t, !anyMatch, got == c.Fallback(), m)
		assert.Equal(t, !anyMatch, got.IsDefault(), m)
	}
}

func TestClassify_IsDeterministic(t *testing.T) {
	c := NewClassifier()
	for _, m := range []string{"hotel barato", "nada a ver", "Quero viajar"} {
		first := c.Classify(m)
		for i := 0; i < 5; i++ {
			require.Same(t, first, c.Classify(m))
		}
	}
}

func TestNewClassifierWithRules_NormalizesKeywords(t *testing.T) {
	c := NewClassifierWithRules([]domain.IntentRule{
		{Topic: "skip"},
		{Topic: "wine", TriggerKeywords: []string{"VINHO"}, FollowUps: []string{"a"}},
	}, domain.IntentRule{Topic: domain.TopicDefault, TriggerKeywords: []string{"ignored"}})

	assert.Len(t, c.Rules(), 1)
	assert.Equal(t, domain.Topic("wine"), c.Classify("um vinho tinto").Topic)
	assert.True(t, c.Classify("ignored").IsDefault())
}

func TestResponder_ReturnsTemplateVerbatim(t *testing.T) {
	c := NewClassifier()
	r := NewResponder(c.Fallback())

	rule := c.Classify("Quero viajar para a praia")
	text, followUps := r.Respond(rule)

	assert.Equal(t, rule.ResponseTemplate, text)
	assert.Equal(t, rule.FollowUps, followUps)
	require.NotEmpty(t, followUps)

	followUps[0] = "changed"
	assert.NotEqual(t, "changed", rule.FollowUps[0])
}

func TestResponder_NilRuleUsesFallback(t *testing.T) {
	r := NewResponder(nil)
	text, followUps := r.Respond(nil)
	assert.Equal(t, fallbackRule.ResponseTemplate, text)
	assert.Equal(t, fallbackRule.FollowUps, followUps)
}

// Every follow-up chip re-enters submit, so it should land on a real topic.
func TestFollowUps_ClassifyToKnownTopics(t *testing.T) {
	c := NewClassifier()
	all := append(c.Rules(), *c.Fallback())
	for _, r := range all {
		for _, f := range r.FollowUps {
			assert.False(t, c.Classify(f).IsDefault(), "follow-up %q falls through to default", f)
		}
	}
}
