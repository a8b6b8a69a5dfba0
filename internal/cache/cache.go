// Package cache holds the Redis-backed helpers: checkout idempotency keys
// and the revoked-token denylist.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

const (
	// idem:checkout:{user_id}:{key} -> order_id
	keyIdemCheckout = "idem:checkout:%s:%s"
	// denylist:token:{jti} -> "1"
	keyRevokedToken = "denylist:token:%s"

	ttlIdempotency = 24 * time.Hour
)

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
