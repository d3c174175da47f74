package memory

import (
	"context"
	"sync"
	"time"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// CoupleSummaryRepository is a process-local lease table for single-instance
// deployments and tests. Each session key has its own mutex, held only while
// a call is in flight; expired leases are noticed on access rather than swept.
type CoupleSummaryRepository struct {
	records *cache.Cache

	mu    sync.Mutex
	locks map[uuid.UUID]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

var _ contract.CoupleSummaryRepository = (*CoupleSummaryRepository)(nil)

func NewCoupleSummaryRepository() *CoupleSummaryRepository {
	// Ready records never expire. Anything else ages out after a day and
	// the janitor runs hourly.
	return &CoupleSummaryRepository{
		records: cache.New(24*time.Hour, time.Hour),
		locks:   make(map[uuid.UUID]*keyLock),
	}
}

// acquire locks the session key and returns the matching release.
func (r *CoupleSummaryRepository) acquire(sessionId uuid.UUID) func() {
	r.mu.Lock()
	l, ok := r.locks[sessionId]
	if !ok {
		l = &keyLock{}
		r.locks[sessionId] = l
	}
	l.refs++
	r.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, sessionId)
		}
		r.mu.Unlock()
	}
}

func (r *CoupleSummaryRepository) load(sessionId uuid.UUID) (entity.CoupleSummary, bool) {
	if x, found := r.records.Get(sessionId.String()); found {
		return x.(entity.CoupleSummary), true
	}
	return entity.CoupleSummary{}, false
}

func (r *CoupleSummaryRepository) store(rec entity.CoupleSummary) {
	ttl := cache.DefaultExpiration
	if rec.HasReadySummary() {
		ttl = cache.NoExpiration
	}
	r.records.Set(rec.SessionId.String(), rec, ttl)
}

func (r *CoupleSummaryRepository) FindBySession(ctx context.Context, sessionId uuid.UUID) (*entity.CoupleSummary, error) {
	defer r.acquire(sessionId)()

	rec, ok := r.load(sessionId)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *CoupleSummaryRepository) Claim(ctx context.Context, sessionId, holder uuid.UUID, ttl time.Duration, now time.Time) (*contract.ClaimResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer r.acquire(sessionId)()

	rec, ok := r.load(sessionId)
	if !ok {
		rec = entity.CoupleSummary{SessionId: sessionId, Status: entity.SummaryStatusNone, UpdatedAt: now}
	}

	if !rec.Claimable(now) {
		current := rec
		return &contract.ClaimResult{Claimed: false, Current: &current}, nil
	}

	expires := now.Add(ttl)
	token := uuid.New()
	rec.Status = entity.SummaryStatusGenerating
	rec.GeneratedBy = &holder
	rec.LeaseExpiresAt = &expires
	rec.ClaimToken = &token
	rec.Summary = nil
	rec.ErrorMessage = nil
	rec.UpdatedAt = now
	r.store(rec)

	current := rec
	return &contract.ClaimResult{Claimed: true, Current: &current}, nil
}

func (r *CoupleSummaryRepository) Update(ctx context.Context, sessionId uuid.UUID, update contract.LeaseUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	defer r.acquire(sessionId)()

	rec, ok := r.load(sessionId)
	if !ok {
		return contract.ErrConditionFailed
	}
	if update.IfHolder != nil {
		if rec.Status != entity.SummaryStatusGenerating || rec.GeneratedBy == nil || *rec.GeneratedBy != *update.IfHolder {
			return contract.ErrConditionFailed
		}
	}
	if update.IfClaim != nil {
		if rec.ClaimToken == nil || *rec.ClaimToken != *update.IfClaim {
			return contract.ErrConditionFailed
		}
	}

	rec.Status = update.Status
	rec.ErrorMessage = update.ErrorMessage
	rec.UpdatedAt = update.UpdatedAt
	if update.SetSummary {
		rec.Summary = update.Summary
	}
	if update.SetMetrics {
		rec.Metrics = update.Metrics
	}
	if update.GeneratedBy != nil {
		holder := *update.GeneratedBy
		rec.GeneratedBy = &holder
	}
	if update.LeaseExpiresAt != nil {
		expires := *update.LeaseExpiresAt
		rec.LeaseExpiresAt = &expires
	}
	r.store(rec)
	return nil
}
