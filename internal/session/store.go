// Package session provides the server-side session store backing cookie
// authentication. For single-node deployments an in-memory store is used.
// For distributed deployments a Redis-based store can be used.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Session represents a logged-in user's server-side session.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store defines the interface for session persistence.
// This abstraction allows switching between in-memory sessions (single-node)
// and Redis-based sessions (distributed) without changing business logic.
type Store interface {
	// Create stores a new session for the user and returns it. The token
	// is generated by the store.
	Create(ctx context.Context, userID string, ttl time.Duration) (*Session, error)

	// Get retrieves a session by token. Expired or unknown tokens return
	// domain.ErrSessionNotFound.
	Get(ctx context.Context, token string) (*Session, error)

	// Delete removes a session by token. Deleting an unknown token is not
	// an error.
	Delete(ctx context.Context, token string) error
}

// newToken generates a cryptographically random session token.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}
