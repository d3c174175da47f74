package lease

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/internal/repository/contract"

	"github.com/google/uuid"
)

const (
	DefaultTTL = 180 * time.Second

	// MaxErrorChars bounds the error message stored on the shared record.
	MaxErrorChars = 2000
)

// ErrLeaseLost is returned when a write is attempted by a caller that no
// longer holds the generating lease, usually because its TTL lapsed and
// another participant reclaimed it.
var ErrLeaseLost = errors.New("lease lost to another holder")

// Lease identifies one successful claim. A later claim on the same session
// replaces it, even when the same user makes it.
type Lease struct {
	SessionId uuid.UUID
	Holder    uuid.UUID
	Token     uuid.UUID
}

// Claim is the outcome of a claim attempt. Lease is set only when Claimed;
// Summary only when the record is already ready.
type Claim struct {
	Claimed bool
	Lease   Lease
	Status  entity.SummaryStatus
	Summary *string
}

type Coordinator struct {
	repo   contract.CoupleSummaryRepository
	ttl    time.Duration
	now    func() time.Time
	logger logger.ILogger
}

type Option func(*Coordinator)

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(repo contract.CoupleSummaryRepository, ttl time.Duration, log logger.ILogger, opts ...Option) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Coordinator{
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) TTL() time.Duration { return c.ttl }

// Current returns the shared record, or nil when none exists yet.
func (c *Coordinator) Current(ctx context.Context, sessionId uuid.UUID) (*entity.CoupleSummary, error) {
	rec, err := c.repo.FindBySession(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("load shared summary: %w", err)
	}
	return rec, nil
}

func (c *Coordinator) Claim(ctx context.Context, sessionId, userId uuid.UUID) (*Claim, error) {
	res, err := c.repo.Claim(ctx, sessionId, userId, c.ttl, c.now())
	if err != nil {
		return nil, fmt.Errorf("claim lease: %w", err)
	}

	out := &Claim{Claimed: res.Claimed}
	if res.Current != nil {
		out.Status = res.Current.Status
		if res.Current.HasReadySummary() {
			out.Summary = res.Current.Summary
		}
		if res.Claimed && res.Current.ClaimToken != nil {
			out.Lease = Lease{SessionId: sessionId, Holder: userId, Token: *res.Current.ClaimToken}
		}
	}
	if res.Claimed && out.Lease.Token == uuid.Nil {
		return nil, errors.New("claim lease: store returned no claim token")
	}

	c.logger.Debug("LEASE", "Claim attempted", map[string]interface{}{
		"session_id": sessionId.String(),
		"user_id":    userId.String(),
		"claimed":    out.Claimed,
		"status":     string(out.Status),
	})
	return out, nil
}

// MarkGenerating publishes an unambiguous in-progress state: summary and
// error are both NULL.
func (c *Coordinator) MarkGenerating(ctx context.Context, l Lease) error {
	return c.write(ctx, l, contract.LeaseUpdate{
		Status:     entity.SummaryStatusGenerating,
		SetSummary: true,
	})
}

// MarkReady is the success terminal write. Metrics are omitted from the
// statement when includeMetrics is false.
func (c *Coordinator) MarkReady(ctx context.Context, l Lease, summaryJSON string, metrics json.RawMessage, includeMetrics bool) error {
	summary := summaryJSON
	holder := l.Holder
	return c.write(ctx, l, contract.LeaseUpdate{
		Status:      entity.SummaryStatusReady,
		Summary:     &summary,
		SetSummary:  true,
		Metrics:     metrics,
		SetMetrics:  includeMetrics,
		GeneratedBy: &holder,
	})
}

// MarkError is the failure terminal write. The summary is cleared so that a
// non-ready record never carries one.
func (c *Coordinator) MarkError(ctx context.Context, l Lease, message string) error {
	msg := Truncate(message, MaxErrorChars)
	return c.write(ctx, l, contract.LeaseUpdate{
		Status:       entity.SummaryStatusError,
		SetSummary:   true,
		ErrorMessage: &msg,
	})
}

func (c *Coordinator) write(ctx context.Context, l Lease, update contract.LeaseUpdate) error {
	holder, token := l.Holder, l.Token
	update.UpdatedAt = c.now()
	update.IfHolder = &holder
	update.IfClaim = &token

	err := c.repo.Update(ctx, l.SessionId, update)
	if errors.Is(err, contract.ErrConditionFailed) {
		c.logger.Warn("LEASE", "Write rejected, lease no longer held", map[string]interface{}{
			"session_id": l.SessionId.String(),
			"holder":     holder.String(),
			"status":     string(update.Status),
		})
		return ErrLeaseLost
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", update.Status, err)
	}
	return nil
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
