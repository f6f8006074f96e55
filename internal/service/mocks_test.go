package service

import (
	"context"
	"sync"

	"github.com/yasin2514/nest-nature-nursery-server/internal/cache"
	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
	"github.com/yasin2514/nest-nature-nursery-server/internal/repository"
)

// mockCache implements cache.PurchaseCache for testing
type mockCache struct {
	m         sync.RWMutex
	purchases map[string]*domain.Purchase
	getErr    error
}

func newMockCache() *mockCache {
	return &mockCache{purchases: make(map[string]*domain.Purchase)}
}

func (m *mockCache) Get(_ context.Context, id string) (*domain.Purchase, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.purchases[id]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return p, nil
}

func (m *mockCache) Set(_ context.Context, id string, p *domain.Purchase) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.purchases[id] = p
	return nil
}

func (m *mockCache) Delete(_ context.Context, id string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.purchases, id)
	return nil
}

// scriptedInventory wraps the in-memory store with failure injection:
// per-product read errors, scripted conditional-decrement outcomes, and a
// forced compensation failure. Like the real driver, every operation
// fails once its context is cancelled. Compensating increments are
// recorded per product for rollback assertions.
type scriptedInventory struct {
	*repository.MemoryInventory
	mu              sync.Mutex
	getErr          map[string]error
	decrementScript []bool
	incrementErr    error
	increments      map[string]int64
}

func newScriptedInventory() *scriptedInventory {
	return &scriptedInventory{
		MemoryInventory: repository.NewMemoryInventory(),
		getErr:          make(map[string]error),
		increments:      make(map[string]int64),
	}
}

func (s *scriptedInventory) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	err := s.getErr[id]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryInventory.GetProduct(ctx, id)
}

func (s *scriptedInventory) DecrementStock(ctx context.Context, id string, amount, minRequired int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	if len(s.decrementScript) > 0 {
		outcome := s.decrementScript[0]
		s.decrementScript = s.decrementScript[1:]
		s.mu.Unlock()
		if !outcome {
			return false, nil
		}
		return s.MemoryInventory.DecrementStock(ctx, id, amount, minRequired)
	}
	s.mu.Unlock()
	return s.MemoryInventory.DecrementStock(ctx, id, amount, minRequired)
}

func (s *scriptedInventory) IncrementStock(ctx context.Context, id string, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.increments[id] += amount
	err := s.incrementErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryInventory.IncrementStock(ctx, id, amount)
}

// failingLedger wraps the in-memory ledger with an injectable insert
// error to exercise the compensation path.
type failingLedger struct {
	*repository.MemoryLedger
	insertErr error
}

func (f *failingLedger) InsertPurchase(ctx context.Context, p *domain.Purchase) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	return f.MemoryLedger.InsertPurchase(ctx, p)
}

// cancellingLedger simulates a buyer that disconnects while the insert
// is in flight: the request context is cancelled and the write fails.
type cancellingLedger struct {
	*repository.MemoryLedger
	cancel    context.CancelFunc
	insertErr error
}

func (l *cancellingLedger) InsertPurchase(_ context.Context, _ *domain.Purchase) (string, error) {
	l.cancel()
	return "", l.insertErr
}

// mockPublisher records published events
type mockPublisher struct {
	m         sync.Mutex
	published []*domain.Purchase
	err       error
}

func (m *mockPublisher) PurchaseCommitted(_ context.Context, p *domain.Purchase) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, p)
	return nil
}
