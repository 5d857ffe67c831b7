// Package cache holds the redis-backed cache for priced carts. The cache
// is strictly an accelerator: every error degrades to a miss and pricing
// falls through to the live computation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrMiss is returned when no cached entry exists for the cart.
var ErrMiss = errors.New("pricing cache miss")

// PricingCache stores json-encoded priced-cart responses keyed by cart id.
// A nil client (no REDIS_ADDR configured) makes every call a no-op.
type PricingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewPricingCache(addr, password string, ttl time.Duration, logger *zap.Logger) *PricingCache {
	if addr == "" {
		return &PricingCache{logger: logger}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	return &PricingCache{client: client, ttl: ttl, logger: logger}
}

func pricingKey(cartID uint) string {
	return fmt.Sprintf("cart:pricing:%d", cartID)
}

// Get returns the cached payload for the cart, or ErrMiss.
func (c *PricingCache) Get(ctx context.Context, cartID uint) ([]byte, error) {
	if c.client == nil {
		return nil, ErrMiss
	}
	payload, err := c.client.Get(ctx, pricingKey(cartID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		c.logger.Warn("pricing cache read failed", zap.Uint("cart_id", cartID), zap.Error(err))
		return nil, ErrMiss
	}
	return payload, nil
}

// Set stores the payload for the cart with the configured TTL.
func (c *PricingCache) Set(ctx context.Context, cartID uint, payload []byte) {
	if c.client == nil {
		return
	}
	if err := c.client.Set(ctx, pricingKey(cartID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("pricing cache write failed", zap.Uint("cart_id", cartID), zap.Error(err))
	}
}

// Invalidate drops the cached entry for the cart. Called on every cart
// mutation and at checkout.
func (c *PricingCache) Invalidate(ctx context.Context, cartIDs ...uint) {
	if c.client == nil || len(cartIDs) == 0 {
		return
	}
	keys := make([]string, len(cartIDs))
	for i, id := range cartIDs {
		keys[i] = pricingKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("pricing cache invalidation failed", zap.Uints("cart_ids", cartIDs), zap.Error(err))
	}
}
