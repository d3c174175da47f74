package unitofwork

import (
	"context"

	"couple-summary-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	PairSessionRepository() contract.PairSessionRepository
	UserSummaryRepository() contract.UserSummaryRepository
	CoupleSummaryRepository() contract.CoupleSummaryRepository
	PurchaseRepository() contract.PurchaseRepository
	GenerationEventRepository() contract.GenerationEventRepository
}
