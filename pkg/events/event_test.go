package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSummaryEventType(t *testing.T) {
	assert.Equal(t, "AI_SUMMARY_CLAIMED", SummaryEventType("claimed"))
	assert.Equal(t, "AI_SUMMARY_GEMINI_ABORTED_RETURN_202", SummaryEventType("gemini_aborted_return_202"))
}

func TestNewSummaryEvent(t *testing.T) {
	session, user := uuid.New(), uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	evt := NewSummaryEvent(session, user, "saved", map[string]interface{}{"kind": "final"}, at)

	assert.Equal(t, "AI_SUMMARY_SAVED", evt.EventType())
	assert.Equal(t, at, evt.Timestamp())
	assert.Equal(t, session.String(), evt.Payload()["session_id"])
	assert.Equal(t, user.String(), evt.Payload()["user_id"])
	assert.Equal(t, "saved", evt.Payload()["event"])
	assert.Equal(t, map[string]interface{}{"kind": "final"}, evt.Payload()["details"])
}
