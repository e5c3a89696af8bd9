package domain

import "strings"

// PersonaType identifies one of the conversational personalities
type PersonaType string

const (
	PersonaTravel    PersonaType = "travel"
	PersonaSommelier PersonaType = "sommelier"
	PersonaChef      PersonaType = "chef"
	PersonaAssistant PersonaType = "assistant"
)

// Valid reports whether t belongs to the closed persona set
func (t PersonaType) Valid() bool {
	switch t {
	case PersonaTravel, PersonaSommelier, PersonaChef, PersonaAssistant:
		return true
	}
	return false
}

// SuggestionItem is a clickable suggestion shown under the greeting
type SuggestionItem struct {
	Label       string   `json:"label" yaml:"label"`
	Icon        string   `json:"icon,omitempty" yaml:"icon"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords"`
	Prompt      string   `json:"prompt,omitempty" yaml:"prompt"` // canonical phrase submitted on click
	IsSpecial   bool     `json:"is_special,omitempty" yaml:"is_special"`
	Action      string   `json:"action,omitempty" yaml:"action"` // side-channel action for special items
}

// RequiresHandler reports whether a click must go to the host instead of
// being submitted as text.
func (s SuggestionItem) RequiresHandler() bool {
	return s.IsSpecial || len(s.Keywords) == 0
}

// SyntheticText is the user message a click on s stands for
func (s SuggestionItem) SyntheticText() string {
	if p := strings.TrimSpace(s.Prompt); p != "" {
		return p
	}
	return s.Label
}

// Clone returns a deep copy of s
func (s SuggestionItem) Clone() SuggestionItem {
	out := s
	if s.Keywords != nil {
		out.Keywords = append([]string(nil), s.Keywords...)
	}
	return out
}

// PersonaDefinition describes a persona: greeting, style tokens and suggestions
type PersonaDefinition struct {
	Type        PersonaType      `json:"type" yaml:"type"`
	Name        string           `json:"name" yaml:"name"`
	Greeting    string           `json:"greeting" yaml:"greeting"`
	Icon        string           `json:"icon,omitempty" yaml:"icon"`
	Style       string           `json:"style,omitempty" yaml:"style"`
	Suggestions []SuggestionItem `json:"suggestions" yaml:"suggestions"`
}

// Clone returns a deep copy so derived personas never alias catalog data.
func (p PersonaDefinition) Clone() PersonaDefinition {
	out := p
	out.Suggestions = make([]SuggestionItem, len(p.Suggestions))
	for i, s := range p.Suggestions {
		out.Suggestions[i] = s.Clone()
	}
	return out
}

// VenueContext is the optional "current place" supplied by the geolocation provider
type VenueContext struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

// HasAnyType reports whether the venue carries one of the given category tags.
// A nil venue or one without tags never matches.
func (v *VenueContext) HasAnyType(tags ...string) bool {
	if v == nil {
		return false
	}
	for _, t := range v.Types {
		t = strings.ToLower(strings.TrimSpace(t))
		for _, want := range tags {
			if t == want {
				return true
			}
		}
	}
	return false
}

// IsFoodVenue reports whether the venue is a named restaurant or food place
func (v *VenueContext) IsFoodVenue() bool {
	return v != nil && strings.TrimSpace(v.Name) != "" && v.HasAnyType("restaurant", "food")
}
