package implementation

import (
	"context"
	"encoding/json"
	"errors"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/mapper"
	"couple-summary-be/internal/model"
	"couple-summary-be/internal/repository/contract"
	"couple-summary-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PairSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PairSessionMapper
}

func NewPairSessionRepository(db *gorm.DB) contract.PairSessionRepository {
	return &PairSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewPairSessionMapper(),
	}
}

func (r *PairSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PairSession, error) {
	var m model.PairSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PairSessionRepositoryImpl) FindResponses(ctx context.Context, specs ...specification.Specification) ([]*entity.Response, error) {
	var models []*model.Response
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ResponsesToEntities(models), nil
}

func (r *PairSessionRepositoryImpl) CompatibilityMetrics(ctx context.Context, sessionId uuid.UUID) (json.RawMessage, error) {
	var raw *string
	row := r.db.WithContext(ctx).
		Raw("SELECT get_session_compatibility_metrics(p_session_id => ?)::text", sessionId).
		Row()
	if err := row.Scan(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return json.RawMessage(*raw), nil
}
