package implementation

import (
	"context"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/mapper"
	"couple-summary-be/internal/model"
	"couple-summary-be/internal/repository/contract"
	"couple-summary-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PurchaseMapper
}

func NewPurchaseRepository(db *gorm.DB) contract.PurchaseRepository {
	return &PurchaseRepositoryImpl{
		db:     db,
		mapper: mapper.NewPurchaseMapper(),
	}
}

func (r *PurchaseRepositoryImpl) Upsert(ctx context.Context, purchase *entity.Purchase) error {
	m := r.mapper.ToModel(purchase)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform", "transaction_id", "raw", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*purchase = *r.mapper.ToEntity(m)
	return nil
}

func (r *PurchaseRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.Purchase{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
