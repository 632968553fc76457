package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "USER_LOGIN").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event codes published by this service.
const (
	TypeUserLogin    = "USER_LOGIN"
	TypeUserRegister = "USER_REGISTER"
	TypeChatCreated  = "CHAT_CREATED"
	TypeChatMigrated = "CHAT_MIGRATED"
	TypeChatDeleted  = "CHAT_DELETED"
)

// BaseEvent is the generic implementation used throughout the service.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
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
