package mapper

import (
	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/model"
)

type PairSessionMapper struct{}

func NewPairSessionMapper() *PairSessionMapper {
	return &PairSessionMapper{}
}

func (m *PairSessionMapper) ToEntity(s *model.PairSession) *entity.PairSession {
	if s == nil {
		return nil
	}
	return &entity.PairSession{
		Id:        s.Id,
		CreatedBy: s.CreatedBy,
		PartnerId: s.PartnerId,
		Status:    s.Status,
	}
}

func (m *PairSessionMapper) ResponseToEntity(r *model.Response) *entity.Response {
	if r == nil {
		return nil
	}
	return &entity.Response{
		SessionId:  r.SessionId,
		UserId:     r.UserId,
		QuestionId: r.QuestionId,
		Value:      toRaw(r.Value),
	}
}

func (m *PairSessionMapper) ResponsesToEntities(models []*model.Response) []*entity.Response {
	out := make([]*entity.Response, 0, len(models))
	for _, r := range models {
		out = append(out, m.ResponseToEntity(r))
	}
	return out
}
