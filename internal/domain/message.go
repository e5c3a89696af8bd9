package domain

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry of the append-only dialogue log
type Message struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Topic     Topic     `json:"topic,omitempty"`      // assistant messages only
	FollowUps []string  `json:"follow_ups,omitempty"` // assistant messages only
}

// DisplayTime formats the timestamp for the chat bubble
func (m Message) DisplayTime(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return m.Timestamp.In(loc).Format("15:04")
}

// View is what the render target receives after every change
type View struct {
	SessionID        string           `json:"session_id"`
	Persona          PersonaType      `json:"persona"`
	Messages         []Message        `json:"messages"`
	IsAwaitingReply  bool             `json:"is_awaiting_reply"`
	IsCapturingVoice bool             `json:"is_capturing_voice"`
	VoiceSupported   bool             `json:"voice_supported"`
	Greeting         string           `json:"greeting,omitempty"`    // only while the log is empty
	Suggestions      []SuggestionItem `json:"suggestions,omitempty"` // only while the log is empty
}
