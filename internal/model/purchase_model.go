package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Purchase struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_purchases_user_type"`
	Type          string         `gorm:"type:varchar(64);not null;uniqueIndex:idx_purchases_user_type"`
	Platform      string         `gorm:"type:varchar(32);not null"`
	TransactionId string         `gorm:"type:varchar(255);not null"`
	Raw           datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
}

func (Purchase) TableName() string {
	return "purchases"
}
