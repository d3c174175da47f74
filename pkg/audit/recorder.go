// Package audit carries generation audit events off the request path. The
// recorder only enqueues; persistence and fan-out happen in the consumer.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"couple-summary-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const Topic = "ai_generation_events"

// Event names written by the summary flow.
const (
	EventAlreadyReady       = "already_ready"
	EventClaimFailed        = "claim_failed"
	EventAlreadyGenerating  = "already_generating"
	EventClaimed            = "claimed"
	EventToneSelected       = "tone_selected"
	EventResponsesFailed    = "responses_failed"
	EventAbortedReturn202   = "gemini_aborted_return_202"
	EventRateLimited        = "gemini_rate_limited"
	EventGenerationFailed   = "gemini_failed"
	EventJSONRepairFailed   = "json_repair_failed"
	EventInvalidAfterRepair = "json_invalid_after_repair"
	EventSaveFailed         = "save_failed"
	EventLeaseLost          = "lease_lost"
	EventSaved              = "saved"
)

// Event is the message payload on Topic.
type Event struct {
	SessionId  uuid.UUID              `json:"session_id"`
	UserId     uuid.UUID              `json:"user_id"`
	Event      string                 `json:"event"`
	Details    map[string]interface{} `json:"details,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type Recorder interface {
	Record(ctx context.Context, sessionId, userId uuid.UUID, event string, details map[string]interface{})
}

type PubSubRecorder struct {
	publisher message.Publisher
	topic     string
	logger    logger.ILogger
	now       func() time.Time
}

func NewRecorder(publisher message.Publisher, topic string, log logger.ILogger) *PubSubRecorder {
	if topic == "" {
		topic = Topic
	}
	return &PubSubRecorder{
		publisher: publisher,
		topic:     topic,
		logger:    log,
		now:       time.Now,
	}
}

// Record never returns an error; failures are logged and dropped.
func (r *PubSubRecorder) Record(ctx context.Context, sessionId, userId uuid.UUID, event string, details map[string]interface{}) {
	payload, err := json.Marshal(Event{
		SessionId:  sessionId,
		UserId:     userId,
		Event:      event,
		Details:    details,
		OccurredAt: r.now(),
	})
	if err != nil {
		r.logger.Error("AUDIT", "Failed to encode audit event", map[string]interface{}{
			"event": event,
			"error": err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(context.WithoutCancel(ctx))
	if err := r.publisher.Publish(r.topic, msg); err != nil {
		r.logger.Error("AUDIT", "Failed to enqueue audit event", map[string]interface{}{
			"event":      event,
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, uuid.UUID, uuid.UUID, string, map[string]interface{}) {}
