package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts a miniredis server and a client pointing at it.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = NewClient(context.Background(), mr.Addr())
	assert.Error(t, err)
}

func TestCheckoutKeys_RoundTrip(t *testing.T) {
	client, mr := setupTestRedis(t)
	keys := NewCheckoutKeys(client)
	ctx := context.Background()

	_, err := keys.Lookup(ctx, "u1", "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, keys.Remember(ctx, "u1", "k1", "order-1"))
	got, err := keys.Lookup(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", got)

	_, err = keys.Lookup(ctx, "u2", "k1")
	assert.ErrorIs(t, err, ErrCacheMiss, "keys are scoped per user")

	assert.Equal(t, ttlIdempotency, mr.TTL(fmt.Sprintf(keyIdemCheckout, "u1", "k1")))
	mr.FastForward(ttlIdempotency + time.Second)
	_, err = keys.Lookup(ctx, "u1", "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCheckoutKeys_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	keys := NewCheckoutKeys(client)
	mr.Close()

	_, err := keys.Lookup(context.Background(), "u1", "k1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestTokenDenylist(t *testing.T) {
	client, mr := setupTestRedis(t)
	deny := NewTokenDenylist(client)
	ctx := context.Background()

	revoked, err := deny.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, deny.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = deny.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = deny.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entry expires with the token")

	require.NoError(t, deny.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(fmt.Sprintf(keyRevokedToken, "jti-2")))
}
