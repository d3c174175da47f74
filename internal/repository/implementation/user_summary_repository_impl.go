package implementation

import (
	"context"
	"errors"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/mapper"
	"couple-summary-be/internal/model"
	"couple-summary-be/internal/repository/contract"
	"couple-summary-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserSummaryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserSummaryMapper
}

func NewUserSummaryRepository(db *gorm.DB) contract.UserSummaryRepository {
	return &UserSummaryRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserSummaryMapper(),
	}
}

func (r *UserSummaryRepositoryImpl) Upsert(ctx context.Context, summary *entity.UserSummary, includeMetrics bool) error {
	m := r.mapper.ToModel(summary)

	updateColumns := []string{"summary", "updated_at"}
	query := r.db.WithContext(ctx)
	if includeMetrics {
		updateColumns = append(updateColumns, "metrics")
	} else {
		query = query.Omit("Metrics")
	}

	err := query.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}).Create(m).Error
	return contract.ClassifyWriteError(err, "metrics")
}

func (r *UserSummaryRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserSummary, error) {
	var m model.AiSummary
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
