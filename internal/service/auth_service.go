package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/session"
)

// AuthService handles login, logout and session validation.
type AuthService struct {
	users    *UserService
	sessions session.Store
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users *UserService, sessions session.Store, ttl time.Duration, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger.With().Str("service", "auth").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// LoginInput contains the credentials for a login attempt.
type LoginInput struct {
	Username string
	Password string
}

// LoginOutput contains the result of a successful login.
type LoginOutput struct {
	User    *domain.User
	Session *session.Session
}

// =============================================================================
// Service Methods
// =============================================================================

// Login verifies credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	user, err := s.users.Authenticate(ctx, input.Username, input.Password)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, user.ID, s.ttl)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to create session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("user logged in")

	return &LoginOutput{User: user, Session: sess}, nil
}

// Logout destroys the session for the given token. Unknown tokens are
// ignored so that logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		s.logger.Error().Err(err).Msg("failed to delete session")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return nil
}

// Validate resolves a session token to the logged-in user.
// Returns domain.ErrSessionNotFound for missing or expired sessions.
func (s *AuthService) Validate(ctx context.Context, token string) (*domain.User, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Msg("failed to get session")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user, err := s.users.GetUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrBorrowerNotFound) {
			// The account behind the session is gone; treat the session
			// as dead.
			_ = s.sessions.Delete(ctx, token)
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	return user, nil
}
