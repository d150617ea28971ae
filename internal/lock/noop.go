package lock

import (
	"context"
	"time"
)

// NoOpLocker grants every request and tracks nothing. It stands in for a
// real locker where book-level contention cannot happen, such as
// single-goroutine tests.
type NoOpLocker struct{}

// NewNoOpLocker creates a no-op locker.
func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

func (n *NoOpLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, ctx.Err()
}

func (n *NoOpLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return true, ctx.Err()
}

func (n *NoOpLocker) Release(ctx context.Context, key string) (bool, error) {
	return true, ctx.Err()
}

func (n *NoOpLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, ctx.Err()
}

// IsHeld reports false: nothing is ever held.
func (n *NoOpLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	return false, ctx.Err()
}

var _ Locker = (*NoOpLocker)(nil)
