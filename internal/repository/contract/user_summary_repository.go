package contract

import (
	"context"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/repository/specification"
)

type UserSummaryRepository interface {
	// Upsert writes on (session_id, user_id). Metrics is omitted from the
	// statement when includeMetrics is false.
	Upsert(ctx context.Context, summary *entity.UserSummary, includeMetrics bool) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserSummary, error)
}
