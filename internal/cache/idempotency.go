package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckoutKeys maps a user's idempotency key to the order it produced. The
// database remains authoritative; this only short-circuits replays.
type CheckoutKeys struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCheckoutKeys(client *redis.Client) *CheckoutKeys {
	return &CheckoutKeys{client: client, ttl: ttlIdempotency}
}

func (c *CheckoutKeys) Lookup(ctx context.Context, userID, key string) (string, error) {
	orderID, err := c.client.Get(ctx, fmt.Sprintf(keyIdemCheckout, userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return orderID, nil
}

func (c *CheckoutKeys) Remember(ctx context.Context, userID, key, orderID string) error {
	if err := c.client.Set(ctx, fmt.Sprintf(keyIdemCheckout, userID, key), orderID, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
