package domain

// Topic names an intent bucket
type Topic string

const (
	TopicTrip        Topic = "trip"
	TopicRestaurant  Topic = "restaurant"
	TopicLodging     Topic = "lodging"
	TopicFlights     Topic = "flights"
	TopicBudget      Topic = "budget"
	TopicItinerary   Topic = "itinerary"
	TopicGeneralTips Topic = "general_tips"
	TopicHelp        Topic = "help"
	TopicDefault     Topic = "default"
)

// IntentRule binds trigger keywords to a canned reply and its follow-ups.
// A rule without keywords is the fallback and matches everything.
type IntentRule struct {
	Topic            Topic    `json:"topic"`
	TriggerKeywords  []string `json:"trigger_keywords,omitempty"`
	ResponseTemplate string   `json:"response_template"`
	FollowUps        []string `json:"follow_ups"`
}

// IsDefault reports whether r is the fallback rule
func (r *IntentRule) IsDefault() bool {
	return len(r.TriggerKeywords) == 0
}
