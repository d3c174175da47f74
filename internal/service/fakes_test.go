package service

import (
	"context"
	"sync"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/repository/contract"
	"couple-summary-be/internal/repository/specification"
	"couple-summary-be/internal/repository/unitofwork"
	"couple-summary-be/pkg/events"
)

// fakeUoW serves only the repositories a test wires; the embedded nil
// interface panics on anything else.
type fakeUoW struct {
	unitofwork.UnitOfWork
	pairs     *fakePairSessions
	users     *fakeUserSummaries
	purchases *fakePurchases
	events    *fakeGenerationEvents
}

func (u *fakeUoW) PairSessionRepository() contract.PairSessionRepository { return u.pairs }
func (u *fakeUoW) UserSummaryRepository() contract.UserSummaryRepository { return u.users }
func (u *fakeUoW) PurchaseRepository() contract.PurchaseRepository       { return u.purchases }
func (u *fakeUoW) GenerationEventRepository() contract.GenerationEventRepository {
	return u.events
}

type fakeFactory struct{ uow *fakeUoW }

func (f *fakeFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork { return f.uow }

type fakePurchases struct {
	mu       sync.Mutex
	count    int64
	countErr error
	upserted []*entity.Purchase
}

func (f *fakePurchases) Upsert(_ context.Context, p *entity.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, p)
	return nil
}

func (f *fakePurchases) Count(context.Context, ...specification.Specification) (int64, error) {
	return f.count, f.countErr
}

type fakeGenerationEvents struct {
	mu      sync.Mutex
	err     error
	created []*entity.GenerationEvent
}

func (f *fakeGenerationEvents) Create(_ context.Context, e *entity.GenerationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, e)
	return nil
}

func (f *fakeGenerationEvents) FindAll(context.Context, ...specification.Specification) ([]*entity.GenerationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, nil
}

func (f *fakeGenerationEvents) snapshot() []*entity.GenerationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*entity.GenerationEvent(nil), f.created...)
}

type fakeBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *fakeBus) Publish(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
	return nil
}

func (b *fakeBus) snapshot() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.published...)
}
