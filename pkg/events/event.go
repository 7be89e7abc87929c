package events

import "time"

// Topics published on the session bus.
const (
	DocumentOpened = "document.opened"
	DocumentClosed = "document.closed"
	ChatMessage    = "chat.message"
	ChatFailed     = "chat.failed"
	QuizState      = "quiz.state"
	QuizTick       = "quiz.tick"
	AuthChanged    = "auth.changed"
	AuthExpired    = "auth.expired"
)

// Event defines the contract for all session events.
type Event interface {
	// EventType returns the topic code for this event (e.g., "quiz.state").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// Sequence is the publish order assigned by the bus; zero before publishing.
	Sequence() uint64
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
	Seq        uint64                 `json:"seq"`
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func (e BaseEvent) Sequence() uint64 {
	return e.Seq
}
