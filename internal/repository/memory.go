package repository

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
)

// MemoryInventory is an in-process InventoryStore with the same
// conditional-decrement semantics as the Mongo implementation. Used by
// unit tests and local runs without a database.
type MemoryInventory struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

func NewMemoryInventory() *MemoryInventory {
	return &MemoryInventory{
		products: make(map[string]*domain.Product),
	}
}

// SetProduct inserts or replaces a product. Generates an id when the
// product has none.
func (s *MemoryInventory) SetProduct(p *domain.Product) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	cp := *p
	s.products[p.ID.Hex()] = &cp
	return p.ID.Hex()
}

func (s *MemoryInventory) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryInventory) DecrementStock(_ context.Context, id string, amount, minRequired int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return false, nil
	}
	if p.Quantity < minRequired {
		return false, nil
	}
	p.Quantity -= amount
	return true, nil
}

func (s *MemoryInventory) IncrementStock(_ context.Context, id string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return ErrProductNotFound
	}
	p.Quantity += amount
	return nil
}

// Stock returns the current quantity, for assertions in tests.
func (s *MemoryInventory) Stock(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return -1
	}
	return p.Quantity
}

// MemoryLedger is an in-process PurchaseLedger.
type MemoryLedger struct {
	mu        sync.Mutex
	purchases map[string]*domain.Purchase
	byKey     map[string]string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		purchases: make(map[string]*domain.Purchase),
		byKey:     make(map[string]string),
	}
}

func (l *MemoryLedger) InsertPurchase(_ context.Context, p *domain.Purchase) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}

	id := p.ID.Hex()
	l.purchases[id] = copyPurchase(p)
	if p.IdempotencyKey != "" {
		l.byKey[p.IdempotencyKey] = id
	}
	return id, nil
}

func (l *MemoryLedger) GetPurchase(_ context.Context, id string) (*domain.Purchase, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.purchases[id]
	if !ok {
		return nil, ErrPurchaseNotFound
	}
	return copyPurchase(p), nil
}

func (l *MemoryLedger) GetPurchaseByIdempotencyKey(_ context.Context, key string) (*domain.Purchase, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.byKey[key]
	if !ok {
		return nil, ErrPurchaseNotFound
	}
	return copyPurchase(l.purchases[id]), nil
}

// ApplyStatus mirrors the Mongo arrayFilters semantics: an item is only
// rewritten when it currently carries the status field being set.
func (l *MemoryLedger) ApplyStatus(_ context.Context, id string, update domain.StatusUpdate) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.purchases[id]
	if !ok {
		return 0, nil
	}

	if update.Delivery != nil {
		p.Delivery = *update.Delivery
		for i := range p.Items {
			if p.Items[i].Delivery != "" {
				p.Items[i].Delivery = *update.Delivery
			}
		}
	}
	if update.PaymentStatus != nil {
		p.PaymentStatus = *update.PaymentStatus
		for i := range p.Items {
			if p.Items[i].PaymentStatus != "" {
				p.Items[i].PaymentStatus = *update.PaymentStatus
			}
		}
	}
	if update.PaidAmount != nil {
		p.PaidAmount = *update.PaidAmount
	}
	if update.TotalDue != nil {
		p.TotalDue = *update.TotalDue
	}
	p.UpdatedAt = time.Now()

	return 1, nil
}

// Count returns how many purchases have been recorded, for assertions in
// tests.
func (l *MemoryLedger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.purchases)
}

func copyPurchase(p *domain.Purchase) *domain.Purchase {
	cp := *p
	cp.Items = make([]domain.LineItem, len(p.Items))
	copy(cp.Items, p.Items)
	return &cp
}
