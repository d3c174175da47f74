package mapper

import (
	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/model"
)

type PurchaseMapper struct{}

func NewPurchaseMapper() *PurchaseMapper {
	return &PurchaseMapper{}
}

func (m *PurchaseMapper) ToEntity(p *model.Purchase) *entity.Purchase {
	if p == nil {
		return nil
	}
	return &entity.Purchase{
		Id:            p.Id,
		UserId:        p.UserId,
		Type:          p.Type,
		Platform:      p.Platform,
		TransactionId: p.TransactionId,
		Raw:           toRaw(p.Raw),
		CreatedAt:     p.CreatedAt,
	}
}

func (m *PurchaseMapper) ToModel(p *entity.Purchase) *model.Purchase {
	if p == nil {
		return nil
	}
	return &model.Purchase{
		Id:            p.Id,
		UserId:        p.UserId,
		Type:          p.Type,
		Platform:      p.Platform,
		TransactionId: p.TransactionId,
		Raw:           ToJSON(p.Raw),
		CreatedAt:     p.CreatedAt,
	}
}
