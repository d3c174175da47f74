package contract

import (
	"context"
	"encoding/json"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/repository/specification"

	"github.com/google/uuid"
)

type PairSessionRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.PairSession, error)
	FindResponses(ctx context.Context, specs ...specification.Specification) ([]*entity.Response, error)
	// CompatibilityMetrics returns the stored function's snapshot, or nil.
	CompatibilityMetrics(ctx context.Context, sessionId uuid.UUID) (json.RawMessage, error)
}
