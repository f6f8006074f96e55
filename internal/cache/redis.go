package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yasin2514/nest-nature-nursery-server/internal/domain"
)

const (
	keyPrefix     = "purchase:"
	defaultTTL    = 15 * time.Minute
	defaultJitter = 5 * time.Minute
)

// RedisCache keeps recently read and freshly committed purchases so the
// ledger only sees one read per purchase per TTL window.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	jitter time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    defaultTTL,
		jitter: defaultJitter,
	}
}

func (c *RedisCache) Get(ctx context.Context, purchaseID string) (*domain.Purchase, error) {
	data, err := c.client.Get(ctx, keyPrefix+purchaseID).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var purchase domain.Purchase
	if err := json.Unmarshal(data, &purchase); err != nil {
		return nil, fmt.Errorf("decode cached purchase: %w", err)
	}
	return &purchase, nil
}

func (c *RedisCache) Set(ctx context.Context, purchaseID string, purchase *domain.Purchase) error {
	data, err := json.Marshal(purchase)
	if err != nil {
		return fmt.Errorf("encode purchase: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+purchaseID, data, c.expiry()).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, purchaseID string) error {
	if err := c.client.Del(ctx, keyPrefix+purchaseID).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// expiry staggers expirations so purchases committed in one burst do not
// all fall out of the cache together.
func (c *RedisCache) expiry() time.Duration {
	return c.ttl + time.Duration(rand.Int63n(int64(c.jitter)))
}
