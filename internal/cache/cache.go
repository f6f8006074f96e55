package cache

import (
	"context"
	"errors"

	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
)

type PurchaseCache interface {
	Get(ctx context.Context, purchaseID string) (*domain.Purchase, error)
	Set(ctx context.Context, purchaseID string, purchase *domain.Purchase) error
	Delete(ctx context.Context, purchaseID string) error
}

var ErrCacheMiss = errors.New("cache miss")
