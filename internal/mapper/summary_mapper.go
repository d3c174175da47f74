package mapper

import (
	"encoding/json"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/model"

	"gorm.io/datatypes"
)

type CoupleSummaryMapper struct{}

func NewCoupleSummaryMapper() *CoupleSummaryMapper {
	return &CoupleSummaryMapper{}
}

func (m *CoupleSummaryMapper) ToEntity(s *model.AiCoupleSummary) *entity.CoupleSummary {
	if s == nil {
		return nil
	}
	return &entity.CoupleSummary{
		SessionId:      s.SessionId,
		Status:         entity.SummaryStatus(s.Status),
		GeneratedBy:    s.GeneratedBy,
		LeaseExpiresAt: s.LeaseExpiresAt,
		ClaimToken:     s.ClaimToken,
		Summary:        s.Summary,
		Metrics:        toRaw(s.Metrics),
		ErrorMessage:   s.ErrorMessage,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (m *CoupleSummaryMapper) ToModel(s *entity.CoupleSummary) *model.AiCoupleSummary {
	if s == nil {
		return nil
	}
	return &model.AiCoupleSummary{
		SessionId:      s.SessionId,
		Status:         string(s.Status),
		GeneratedBy:    s.GeneratedBy,
		LeaseExpiresAt: s.LeaseExpiresAt,
		ClaimToken:     s.ClaimToken,
		Summary:        s.Summary,
		Metrics:        ToJSON(s.Metrics),
		ErrorMessage:   s.ErrorMessage,
		UpdatedAt:      s.UpdatedAt,
	}
}

type UserSummaryMapper struct{}

func NewUserSummaryMapper() *UserSummaryMapper {
	return &UserSummaryMapper{}
}

func (m *UserSummaryMapper) ToEntity(s *model.AiSummary) *entity.UserSummary {
	if s == nil {
		return nil
	}
	return &entity.UserSummary{
		SessionId: s.SessionId,
		UserId:    s.UserId,
		Summary:   s.Summary,
		Metrics:   toRaw(s.Metrics),
		UpdatedAt: s.UpdatedAt,
	}
}

func (m *UserSummaryMapper) ToModel(s *entity.UserSummary) *model.AiSummary {
	if s == nil {
		return nil
	}
	return &model.AiSummary{
		SessionId: s.SessionId,
		UserId:    s.UserId,
		Summary:   s.Summary,
		Metrics:   ToJSON(s.Metrics),
		UpdatedAt: s.UpdatedAt,
	}
}

// ToJSON maps an empty or JSON-null payload to a NULL column.
func ToJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return datatypes.JSON(raw)
}

func toRaw(j datatypes.JSON) json.RawMessage {
	if len(j) == 0 {
		return nil
	}
	return json.RawMessage(j)
}
