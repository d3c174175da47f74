package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AiCoupleSummary is the shared record and generation lease for a session.
type AiCoupleSummary struct {
	SessionId      uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Status         string         `gorm:"type:varchar(16);not null;default:'none'"`
	GeneratedBy    *uuid.UUID     `gorm:"type:uuid"`
	LeaseExpiresAt *time.Time     `gorm:"type:timestamptz"`
	ClaimToken     *uuid.UUID     `gorm:"type:uuid"`
	Summary        *string        `gorm:"type:text"`
	Metrics        datatypes.JSON `gorm:"type:jsonb"`
	ErrorMessage   *string        `gorm:"type:text"`
	UpdatedAt      time.Time      `gorm:"type:timestamptz;not null"`
}

func (AiCoupleSummary) TableName() string {
	return "ai_couple_summaries"
}

type AiSummary struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_ai_summaries_session_user"`
	UserId    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_ai_summaries_session_user"`
	Summary   string         `gorm:"type:text;not null"`
	Metrics   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"type:timestamptz;not null"`
}

func (AiSummary) TableName() string {
	return "ai_summaries"
}

type AiGenerationEvent struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserId    uuid.UUID      `gorm:"type:uuid;not null"`
	Event     string         `gorm:"type:varchar(64);not null;index"`
	Details   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (AiGenerationEvent) TableName() string {
	return "ai_generation_events"
}
