package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bodleian-io/bodleian/internal/domain"
)

const sessionKeyPrefix = "session:"

// RedisStore implements Store using Redis. Sessions survive process
// restarts and are shared across server instances. Expiry is enforced by
// the Redis key TTL.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a new Redis-backed session store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Create stores a new session for the user.
func (r *RedisStore) Create(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.rdb.Set(ctx, sessionKeyPrefix+token, payload, ttl).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return sess, nil
}

// Get retrieves a session by token.
func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	payload, err := r.rdb.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess := &Session{}
	if err := json.Unmarshal(payload, sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return sess, nil
}

// Delete removes a session by token.
func (r *RedisStore) Delete(ctx context.Context, token string) error {
	if err := r.rdb.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
