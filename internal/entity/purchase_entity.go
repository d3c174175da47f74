package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const PurchaseTypeLifetimeUnlock = "lifetime_unlock"

type Purchase struct {
	Id            uuid.UUID
	UserId        uuid.UUID
	Type          string
	Platform      string
	TransactionId string
	Raw           json.RawMessage
	CreatedAt     time.Time
}
