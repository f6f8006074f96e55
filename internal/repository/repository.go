package repository

import (
	"context"
	"errors"

	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrInvalidID        = errors.New("invalid object id")
	// ErrCorruptStock means the stored quantity is not a non-negative
	// integer and must not be decremented.
	ErrCorruptStock = errors.New("stored stock quantity is not a non-negative integer")
)

// InventoryStore holds product records with an on-hand stock count.
// All stock mutation goes through the conditional decrement; callers must
// never read-then-blind-write a quantity.
type InventoryStore interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// DecrementStock subtracts amount from the product's stock only if the
	// stock is still >= minRequired at the moment of the write. Returns
	// false when the condition did not match (raced or insufficient).
	DecrementStock(ctx context.Context, id string, amount, minRequired int64) (bool, error)

	// IncrementStock adds stock back. Compensation path for failed commits
	// (also serves external restocking).
	IncrementStock(ctx context.Context, id string, amount int64) error
}

// PurchaseLedger is the append-mostly collection of purchase records.
type PurchaseLedger interface {
	InsertPurchase(ctx context.Context, p *domain.Purchase) (string, error)
	GetPurchase(ctx context.Context, id string) (*domain.Purchase, error)
	GetPurchaseByIdempotencyKey(ctx context.Context, key string) (*domain.Purchase, error)

	// ApplyStatus applies the allow-listed update in a single store
	// operation and returns how many documents matched.
	ApplyStatus(ctx context.Context, id string, update domain.StatusUpdate) (int64, error)
}
