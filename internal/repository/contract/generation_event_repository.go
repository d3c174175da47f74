package contract

import (
	"context"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/repository/specification"
)

type GenerationEventRepository interface {
	Create(ctx context.Context, event *entity.GenerationEvent) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GenerationEvent, error)
}
