package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker guards a sweep run. TryLock returns ErrSweepInProgress when the
// lock is held elsewhere; otherwise the returned function releases it.
type Locker interface {
	TryLock(ctx context.Context) (func(), error)
}

// LocalLocker allows one run at a time within the process.
type LocalLocker struct {
	held atomic.Bool
}

func (l *LocalLocker) TryLock(context.Context) (func(), error) {
	if !l.held.CompareAndSwap(false, true) {
		return nil, ErrSweepInProgress
	}
	return func() { l.held.Store(false) }, nil
}

// DefaultLockKey is the Redis key of the sweep lock.
const DefaultLockKey = "classquiz:sweep:lock"

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is an advisory lock shared by every instance using the same
// Redis. The TTL bounds how long a crashed holder blocks others.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLocker connects to the Redis at url, for example
// redis://localhost:6379/0.
func NewRedisLocker(ctx context.Context, url string, ttl time.Duration) (*RedisLocker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisLocker{client: client, key: DefaultLockKey, ttl: ttl}, nil
}

func (l *RedisLocker) TryLock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return nil, ErrSweepInProgress
	}
	return func() {
		// The run's context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			slog.Warn("failed to release sweep lock", "key", l.key, "error", err)
		}
	}, nil
}

// Close closes the Redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
