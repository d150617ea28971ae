package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker implements Locker using in-memory locks.
// This is suitable for single-node deployments where distributed locking is not needed.
// The locks are NOT shared across process restarts or multiple instances.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// lockEntry represents a single lock.
type lockEntry struct {
	expiresAt time.Time
}

// NewMemoryLocker creates a new in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	ml := &MemoryLocker{
		locks: make(map[string]*lockEntry),
	}

	// Start a background goroutine to clean up expired locks.
	go ml.cleanupLoop()

	return ml
}

// cleanupLoop periodically removes expired locks.
func (m *MemoryLocker) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.cleanup()
	}
}

// cleanup removes expired locks.
func (m *MemoryLocker) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, entry := range m.locks {
		if now.After(entry.expiresAt) {
			delete(m.locks, key)
		}
	}
}

// Acquire attempts to acquire a lock.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	// An unexpired entry means the lock is held by someone else.
	if entry, exists := m.locks[key]; exists {
		if now.Before(entry.expiresAt) {
			return false, nil
		}
	}

	m.locks[key] = &lockEntry{
		expiresAt: now.Add(ttl),
	}

	return true, nil
}

// AcquireWithRetry attempts to acquire a lock with retries.
func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	return acquireWithRetry(ctx, m, key, ttl, maxRetries, retryDelay)
}

// Release releases a lock.
func (m *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.locks[key]; exists {
		delete(m.locks, key)
		return true, nil
	}

	return false, nil
}

// Extend extends the TTL of a held lock.
func (m *MemoryLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(m.locks, key)
		return false, nil
	}

	entry.expiresAt = time.Now().Add(ttl)
	return true, nil
}

// IsHeld checks if a lock is currently held.
func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(m.locks, key)
		return false, nil
	}

	return true, nil
}

// acquireWithRetry is the shared retry loop for all lockers.
func acquireWithRetry(ctx context.Context, l Locker, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := l.Acquire(ctx, key, ttl)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}

		// Don't sleep on the last attempt.
		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}

// Ensure MemoryLocker implements Locker.
var _ Locker = (*MemoryLocker)(nil)
