package rediscache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetSetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	c := New(rc, "status:")

	ctx := context.Background()
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.True(t, mr.Exists("status:k"))

	b, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))
	require.False(t, mr.Exists("status:k"))
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	fixed := time.Date(2025, 1, 1, 10, 0, 30, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "carrier:zto", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "carrier:zto", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "carrier:zto", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)

	// next window starts over
	rl.now = func() time.Time { return fixed.Add(time.Minute) }
	ok, n, _ = rl.Allow(ctx, "carrier:zto", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(1), n)
}

func TestRateLimiter_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	mr.Close()

	_, _, err := rl.Allow(context.Background(), "k", 1, time.Minute)
	require.Error(t, err)
}
