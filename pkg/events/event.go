package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SYNC_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
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

const (
	TypeSessionStarted   = "SESSION_STARTED"
	TypeSessionFinalized = "SESSION_FINALIZED"
	TypeSyncCompleted    = "SYNC_COMPLETED"
	TypeEntryProcessed   = "ENTRY_PROCESSED"
)

// NewSessionStarted marks the creation of a guided check-in session.
// The commit code itself is never part of the payload.
func NewSessionStarted(userID string) Event {
	return BaseEvent{
		Type:       TypeSessionStarted,
		Data:       map[string]interface{}{"user_id": userID},
		OccurredAt: time.Now(),
	}
}

// NewSessionFinalized marks the end of a session, successful or not.
func NewSessionFinalized(userID string, committed bool) Event {
	return BaseEvent{
		Type:       TypeSessionFinalized,
		Data:       map[string]interface{}{"user_id": userID, "committed": committed},
		OccurredAt: time.Now(),
	}
}

// NewSyncCompleted carries the outcome of an offloaded repository sync back
// into the router's event stream.
func NewSyncCompleted(userID string, success bool, output string) Event {
	return BaseEvent{
		Type: TypeSyncCompleted,
		Data: map[string]interface{}{
			"user_id": userID,
			"success": success,
			"output":  output,
		},
		OccurredAt: time.Now(),
	}
}

// NewEntryProcessed carries the write-back pipeline's result message back into
// the router's event stream.
func NewEntryProcessed(userID, result string) Event {
	return BaseEvent{
		Type: TypeEntryProcessed,
		Data: map[string]interface{}{
			"user_id": userID,
			"result":  result,
		},
		OccurredAt: time.Now(),
	}
}
