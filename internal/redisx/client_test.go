package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLockIsExclusive(t *testing.T) {
	_, rdb := setupTestRedis(t)
	ctx := context.Background()

	release, err := Lock(ctx, rdb, "checkout:inflight:u1", time.Minute)
	require.NoError(t, err)

	_, err = Lock(ctx, rdb, "checkout:inflight:u1", time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	release2, err := Lock(ctx, rdb, "checkout:inflight:u1", time.Minute)
	require.NoError(t, err)
	release2()
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	ctx := context.Background()

	release, err := Lock(ctx, rdb, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	other, err := Lock(ctx, rdb, "k", time.Minute)
	require.NoError(t, err)
	defer other()

	release()
	ok, err := Exists(ctx, rdb, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
