package implementation

import (
	"context"
	"errors"
	"time"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/mapper"
	"couple-summary-be/internal/model"
	"couple-summary-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CoupleSummaryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CoupleSummaryMapper
}

func NewCoupleSummaryRepository(db *gorm.DB) contract.CoupleSummaryRepository {
	return &CoupleSummaryRepositoryImpl{
		db:     db,
		mapper: mapper.NewCoupleSummaryMapper(),
	}
}

func (r *CoupleSummaryRepositoryImpl) FindBySession(ctx context.Context, sessionId uuid.UUID) (*entity.CoupleSummary, error) {
	var m model.AiCoupleSummary
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

// Claim seeds the row if absent, then locks it for the decision so concurrent
// claimers serialize on the row lock.
func (r *CoupleSummaryRepositoryImpl) Claim(ctx context.Context, sessionId, holder uuid.UUID, ttl time.Duration, now time.Time) (*contract.ClaimResult, error) {
	var result *contract.ClaimResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := model.AiCoupleSummary{
			SessionId: sessionId,
			Status:    string(entity.SummaryStatusNone),
			UpdatedAt: now,
		}
		if err := tx.Omit("Metrics").Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var m model.AiCoupleSummary
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", sessionId).
			First(&m).Error; err != nil {
			return err
		}

		current := r.mapper.ToEntity(&m)
		if !current.Claimable(now) {
			result = &contract.ClaimResult{Claimed: false, Current: current}
			return nil
		}

		expires := now.Add(ttl)
		token := uuid.New()
		if err := tx.Model(&model.AiCoupleSummary{}).
			Where("session_id = ?", sessionId).
			Updates(map[string]interface{}{
				"status":           string(entity.SummaryStatusGenerating),
				"generated_by":     holder,
				"lease_expires_at": expires,
				"claim_token":      token,
				"summary":          nil,
				"error_message":    nil,
				"updated_at":       now,
			}).Error; err != nil {
			return err
		}

		current.Status = entity.SummaryStatusGenerating
		current.GeneratedBy = &holder
		current.LeaseExpiresAt = &expires
		current.ClaimToken = &token
		current.Summary = nil
		current.ErrorMessage = nil
		current.UpdatedAt = now
		result = &contract.ClaimResult{Claimed: true, Current: current}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *CoupleSummaryRepositoryImpl) Update(ctx context.Context, sessionId uuid.UUID, update contract.LeaseUpdate) error {
	values := map[string]interface{}{
		"status":        string(update.Status),
		"error_message": update.ErrorMessage,
		"updated_at":    update.UpdatedAt,
	}
	if update.SetSummary {
		values["summary"] = update.Summary
	}
	if update.SetMetrics {
		if j := mapper.ToJSON(update.Metrics); j != nil {
			values["metrics"] = j
		} else {
			values["metrics"] = nil
		}
	}
	if update.GeneratedBy != nil {
		values["generated_by"] = *update.GeneratedBy
	}
	if update.LeaseExpiresAt != nil {
		values["lease_expires_at"] = *update.LeaseExpiresAt
	}

	query := r.db.WithContext(ctx).Model(&model.AiCoupleSummary{}).Where("session_id = ?", sessionId)
	if update.IfHolder != nil {
		query = query.Where("generated_by = ? AND status = ?", *update.IfHolder, string(entity.SummaryStatusGenerating))
	}
	if update.IfClaim != nil {
		query = query.Where("claim_token = ?", *update.IfClaim)
	}

	res := query.Updates(values)
	if res.Error != nil {
		return contract.ClassifyWriteError(res.Error, "metrics")
	}
	if res.RowsAffected == 0 {
		return contract.ErrConditionFailed
	}
	return nil
}
