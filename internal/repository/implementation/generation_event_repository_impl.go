package implementation

import (
	"context"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/mapper"
	"couple-summary-be/internal/model"
	"couple-summary-be/internal/repository/contract"
	"couple-summary-be/internal/repository/specification"

	"gorm.io/gorm"
)

type GenerationEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GenerationEventMapper
}

func NewGenerationEventRepository(db *gorm.DB) contract.GenerationEventRepository {
	return &GenerationEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewGenerationEventMapper(),
	}
}

func (r *GenerationEventRepositoryImpl) Create(ctx context.Context, event *entity.GenerationEvent) error {
	m := r.mapper.ToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.ToEntity(m)
	return nil
}

func (r *GenerationEventRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenerationEvent, error) {
	var models []*model.AiGenerationEvent
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.GenerationEvent, 0, len(models))
	for _, m := range models {
		out = append(out, r.mapper.ToEntity(m))
	}
	return out, nil
}
