package domain

import "time"

// EventKind names a side-channel signal for the host application
type EventKind string

const (
	EventOpenCategoryPicker EventKind = "open_category_picker"
	EventSuggestionAction   EventKind = "suggestion_action"
	EventNotice             EventKind = "notice"
)

// Event is a side-channel signal emitted by a session instead of a message
type Event struct {
	Kind      EventKind         `json:"kind"`
	SessionID string            `json:"session_id"`
	Payload   map[string]string `json:"payload,omitempty"`
	At        time.Time         `json:"at"`
}
