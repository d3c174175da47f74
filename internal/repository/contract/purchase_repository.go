package contract

import (
	"context"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/repository/specification"
)

type PurchaseRepository interface {
	// Upsert writes on (user_id, type).
	Upsert(ctx context.Context, purchase *entity.Purchase) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
