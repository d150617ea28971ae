package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLocker implements Locker using Redis SET NX with a key TTL.
// Locks are shared across all server instances pointed at the same Redis.
type RedisLocker struct {
	rdb *redis.Client
}

// NewRedisLocker creates a new Redis-based locker.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

// Acquire attempts to acquire a lock.
// Returns true if the lock was acquired, false if it's held by another process.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := l.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return acquired, nil
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (l *RedisLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return acquireWithRetry(ctx, l, key, ttl, maxRetries, retryDelay)
}

// Release releases a lock.
func (l *RedisLocker) Release(ctx context.Context, key string) (bool, error) {
	deleted, err := l.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to release lock: %w", err)
	}
	return deleted > 0, nil
}

// Extend extends the TTL of a held lock.
func (l *RedisLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	extended, err := l.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock: %w", err)
	}
	return extended, nil
}

// IsHeld checks if the lock is currently held.
func (l *RedisLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	n, err := l.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lock: %w", err)
	}
	return n > 0, nil
}

// Ensure RedisLocker implements Locker.
var _ Locker = (*RedisLocker)(nil)
