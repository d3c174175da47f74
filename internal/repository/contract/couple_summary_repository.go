package contract

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"couple-summary-be/internal/entity"

	"github.com/google/uuid"
)

// ErrConditionFailed means a conditional write matched no row.
var ErrConditionFailed = errors.New("conditional write matched no row")

type ClaimResult struct {
	Claimed bool
	// Current is the record after the claim attempt.
	Current *entity.CoupleSummary
}

// LeaseUpdate is a partial write to the shared record. ErrorMessage and
// Status are always written; the Set flags control the nullable payloads.
type LeaseUpdate struct {
	Status         entity.SummaryStatus
	Summary        *string
	SetSummary     bool
	Metrics        json.RawMessage
	SetMetrics     bool
	ErrorMessage   *string
	GeneratedBy    *uuid.UUID
	LeaseExpiresAt *time.Time
	UpdatedAt      time.Time

	// IfHolder and IfClaim restrict the write to a generating row still held
	// by this user under this claim token.
	IfHolder *uuid.UUID
	IfClaim  *uuid.UUID
}

type CoupleSummaryRepository interface {
	FindBySession(ctx context.Context, sessionId uuid.UUID) (*entity.CoupleSummary, error)
	// Claim atomically takes the lease when the record is claimable. A
	// successful claim stores a fresh ClaimToken on Current.
	Claim(ctx context.Context, sessionId, holder uuid.UUID, ttl time.Duration, now time.Time) (*ClaimResult, error)
	// Update returns ErrConditionFailed when IfHolder or IfClaim no longer matches.
	Update(ctx context.Context, sessionId uuid.UUID, update LeaseUpdate) error
}
