package mapper

import (
	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/model"
)

type GenerationEventMapper struct{}

func NewGenerationEventMapper() *GenerationEventMapper {
	return &GenerationEventMapper{}
}

func (m *GenerationEventMapper) ToModel(e *entity.GenerationEvent) *model.AiGenerationEvent {
	if e == nil {
		return nil
	}
	return &model.AiGenerationEvent{
		Id:        e.Id,
		SessionId: e.SessionId,
		UserId:    e.UserId,
		Event:     e.Event,
		Details:   ToJSON(e.Details),
		CreatedAt: e.CreatedAt,
	}
}

func (m *GenerationEventMapper) ToEntity(e *model.AiGenerationEvent) *entity.GenerationEvent {
	if e == nil {
		return nil
	}
	return &entity.GenerationEvent{
		Id:        e.Id,
		SessionId: e.SessionId,
		UserId:    e.UserId,
		Event:     e.Event,
		Details:   toRaw(e.Details),
		CreatedAt: e.CreatedAt,
	}
}
