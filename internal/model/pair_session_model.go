package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PairSession struct {
	Id        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedBy uuid.UUID  `gorm:"type:uuid;not null;index"`
	PartnerId *uuid.UUID `gorm:"type:uuid;index"`
	Status    string     `gorm:"type:varchar(32);not null;default:'pending'"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (PairSession) TableName() string {
	return "pair_sessions"
}

type Response struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId  uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserId     uuid.UUID      `gorm:"type:uuid;not null;index"`
	QuestionId uuid.UUID      `gorm:"type:uuid;not null"`
	Value      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (Response) TableName() string {
	return "responses"
}
