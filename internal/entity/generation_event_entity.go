package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GenerationEvent is one append-only audit entry.
type GenerationEvent struct {
	Id        uuid.UUID
	SessionId uuid.UUID
	UserId    uuid.UUID
	Event     string
	Details   json.RawMessage
	CreatedAt time.Time
}
