package entity

import (
	"encoding/json"

	"github.com/google/uuid"
)

const PairSessionStatusCompleted = "completed"

type PairSession struct {
	Id        uuid.UUID
	CreatedBy uuid.UUID
	PartnerId *uuid.UUID
	Status    string
}

func (s *PairSession) IsParticipant(userId uuid.UUID) bool {
	if s.CreatedBy == userId {
		return true
	}
	return s.PartnerId != nil && *s.PartnerId == userId
}

func (s *PairSession) IsCompleted() bool {
	return s.Status == PairSessionStatusCompleted
}

type Response struct {
	SessionId  uuid.UUID
	UserId     uuid.UUID
	QuestionId uuid.UUID
	Value      json.RawMessage
}
