package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/internal/repository/contract"
	"couple-summary-be/pkg/summary/lease"

	"github.com/google/uuid"
)

// MetricsField is the optional column that may not be provisioned yet.
const MetricsField = "metrics"

// SharedStore is the terminal write on the shared record.
type SharedStore interface {
	MarkReady(ctx context.Context, l lease.Lease, summaryJSON string, metrics json.RawMessage, includeMetrics bool) error
}

// Writer performs the two writes of a successful generation. Each is tried
// with metrics first and, when the store rejects the metrics column as
// missing, once more without it.
type Writer struct {
	users  contract.UserSummaryRepository
	shared SharedStore
	now    func() time.Time
	logger logger.ILogger
}

func NewWriter(users contract.UserSummaryRepository, shared SharedStore, log logger.ILogger) *Writer {
	return &Writer{
		users:  users,
		shared: shared,
		now:    time.Now,
		logger: log,
	}
}

func (w *Writer) SaveUser(ctx context.Context, sessionId, userId uuid.UUID, summaryJSON string, metrics json.RawMessage) error {
	row := &entity.UserSummary{
		SessionId: sessionId,
		UserId:    userId,
		Summary:   summaryJSON,
		Metrics:   metrics,
		UpdatedAt: w.now(),
	}
	err := w.withoutMetricsOnDrift("ai_summaries", sessionId, func(include bool) error {
		return w.users.Upsert(ctx, row, include)
	})
	if err != nil {
		return fmt.Errorf("save per-user summary: %w", err)
	}
	return nil
}

// SaveShared marks the shared record ready. Errors are wrapped with %w, so
// lease.ErrLeaseLost still matches errors.Is.
func (w *Writer) SaveShared(ctx context.Context, l lease.Lease, summaryJSON string, metrics json.RawMessage) error {
	err := w.withoutMetricsOnDrift("ai_couple_summaries", l.SessionId, func(include bool) error {
		return w.shared.MarkReady(ctx, l, summaryJSON, metrics, include)
	})
	if err != nil {
		return fmt.Errorf("save shared summary: %w", err)
	}
	return nil
}

func (w *Writer) withoutMetricsOnDrift(target string, sessionId uuid.UUID, write func(includeMetrics bool) error) error {
	err := write(true)
	if err == nil || !contract.IsMissingField(err, MetricsField) {
		return err
	}

	w.logger.Warn("PERSIST", "Metrics column missing, retrying without it", map[string]interface{}{
		"target":     target,
		"session_id": sessionId.String(),
		"error":      err.Error(),
	})
	return write(false)
}
