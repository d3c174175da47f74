package events

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SummaryEventPrefix namespaces generation audit events on the bus,
// e.g. AI_SUMMARY_CLAIMED.
const SummaryEventPrefix = "AI_SUMMARY_"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "AI_SUMMARY_SAVED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

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

// SummaryEventType maps an audit event name such as "json_repair_failed"
// to its bus type AI_SUMMARY_JSON_REPAIR_FAILED.
func SummaryEventType(name string) string {
	return SummaryEventPrefix + strings.ToUpper(name)
}

func NewSummaryEvent(sessionId, userId uuid.UUID, name string, details map[string]interface{}, at time.Time) BaseEvent {
	return BaseEvent{
		Type: SummaryEventType(name),
		Data: map[string]interface{}{
			"session_id":  sessionId.String(),
			"user_id":     userId.String(),
			"event":       name,
			"details":     details,
			"entity_type": "ai_summary",
			"entity_id":   sessionId.String(),
			"occurred_at": at,
		},
		OccurredAt: at,
	}
}
