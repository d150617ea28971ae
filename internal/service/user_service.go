package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/repository"
)

// UserService handles registration and user management operations.
type UserService struct {
	userRepo repository.UserRepository
	logger   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger.With().Str("service", "user").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// RegisterInput contains the data needed to register a new user.
type RegisterInput struct {
	Username string
	Email    string
	Phone    string
	Password string
	Role     domain.Role // Defaults to borrower when empty.
}

// RegisterOutput contains the result of registering a user.
type RegisterOutput struct {
	User *domain.User
}

// =============================================================================
// Service Methods
// =============================================================================

// Register creates a new user account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	if err := s.validateRegisterInput(input); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error().Err(err).Str("email", input.Email).Msg("failed to check email existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email '%s'", domain.ErrUserAlreadyExists, input.Email)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(uuid.NewString(), input.Username, input.Email, input.Phone, string(passwordHash))
	if input.Role != "" {
		user.Role = input.Role
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Msg("user registered")

	return &RegisterOutput{User: user}, nil
}

// Authenticate verifies user credentials and returns the user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrBorrowerNotFound) {
			// Log but don't expose whether the username exists.
			s.logger.Debug().Str("username", username).Msg("user not found during authentication")
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug().Str("username", username).Msg("password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrBorrowerNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// ListBorrowers returns all non-admin users.
func (s *UserService) ListBorrowers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.ListBorrowers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list borrowers")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return users, nil
}

// validateRegisterInput validates the input for registering a user.
func (s *UserService) validateRegisterInput(input RegisterInput) error {
	if len(input.Username) < 3 || len(input.Username) > 255 {
		return ErrInvalidUsername
	}

	if _, err := mail.ParseAddress(input.Email); err != nil {
		return ErrInvalidEmail
	}

	if input.Phone == "" {
		return ErrInvalidPhone
	}

	if len(input.Password) < 8 {
		return ErrInvalidPassword
	}

	return nil
}
