package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedis(client)
}

func TestRedisRevokeAndExpire(t *testing.T) {
	mr, dl := setupTestRedis(t)
	ctx := context.Background()

	revoked, err := dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, dl.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = dl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisIgnoresEmptyAndExpired(t *testing.T) {
	mr, dl := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, dl.Revoke(ctx, "", time.Minute))
	require.NoError(t, dl.Revoke(ctx, "jti-2", 0))
	assert.Empty(t, mr.Keys())

	revoked, err := dl.IsRevoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisUnavailable(t *testing.T) {
	mr, dl := setupTestRedis(t)
	mr.Close()

	_, err := dl.IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var dl Denylist = Nop{}
	require.NoError(t, dl.Revoke(context.Background(), "x", time.Minute))
	revoked, err := dl.IsRevoked(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, revoked)
}
