//go:build integration

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(addr)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLock(t *testing.T) {
	client := newRedis(t)
	ctx := context.Background()

	t.Run("a second holder is refused until release", func(t *testing.T) {
		first := NewRedisLock(client, "test:lock:a")
		second := NewRedisLock(client, "test:lock:a")

		release, ok, err := first.TryLock(ctx, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = second.TryLock(ctx, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, release(ctx))
		_, ok, err = second.TryLock(ctx, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("a stale release leaves the new holder's lock alone", func(t *testing.T) {
		lock := NewRedisLock(client, "test:lock:b")

		staleRelease, ok, err := lock.TryLock(ctx, 50*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)
		time.Sleep(100 * time.Millisecond)

		_, ok, err = lock.TryLock(ctx, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, staleRelease(ctx))
		assert.Equal(t, int64(1), client.Exists(ctx, "test:lock:b").Val())
	})
}
