package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SweepLockKey is the redis key guarding the confirmation sweep.
const SweepLockKey = "crew-planner:lock:confirmation-sweep"

// Locker grants exclusive runs across replicas. TryLock returns ok=false
// without error when another holder has the lock.
type Locker interface {
	TryLock(ctx context.Context, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken over is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a single-instance redis lock (SET NX PX plus a checked
// delete).
type RedisLock struct {
	client redis.UniversalClient
	key    string
}

func NewRedisLock(client redis.UniversalClient, key string) *RedisLock {
	return &RedisLock{client: client, key: key}
}

func (l *RedisLock) TryLock(ctx context.Context, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock %s: %w", l.key, err)
		}
		return nil
	}
	return release, true, nil
}

// LocalLock serialises runs inside one process. The ttl is ignored.
type LocalLock struct {
	mu sync.Mutex
}

func (l *LocalLock) TryLock(_ context.Context, _ time.Duration) (func(context.Context) error, bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.mu.Unlock()
		return nil
	}, true, nil
}
