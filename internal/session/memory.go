package session

import (
	"context"
	"sync"
	"time"

	"github.com/bodleian-io/bodleian/internal/domain"
)

// MemoryStore implements Store using an in-memory map.
// Sessions are NOT shared across process restarts or multiple instances.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		sessions: make(map[string]*Session),
	}

	// Start a background goroutine to clean up expired sessions.
	go ms.cleanupLoop()

	return ms
}

// cleanupLoop periodically removes expired sessions.
func (m *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.cleanup()
	}
}

// cleanup removes expired sessions.
func (m *MemoryStore) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for token, sess := range m.sessions {
		if sess.Expired(now) {
			delete(m.sessions, token)
		}
	}
}

// Create stores a new session for the user.
func (m *MemoryStore) Create(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}

	m.mu.Lock()
	m.sessions[token] = sess
	m.mu.Unlock()

	return sess, nil
}

// Get retrieves a session by token.
func (m *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.RLock()
	sess, exists := m.sessions[token]
	m.mu.RUnlock()

	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	if sess.Expired(time.Now()) {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return nil, domain.ErrSessionNotFound
	}

	copied := *sess
	return &copied, nil
}

// Delete removes a session by token.
func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()

	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
