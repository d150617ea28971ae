package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/bodleian-io/bodleian/internal/domain"
)

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		setup   func(*MockUserRepository)
		wantErr error
	}{
		{
			name: "success",
			input: RegisterInput{
				Username: "alice",
				Email:    "alice@example.com",
				Phone:    "555-0100",
				Password: "correct-horse",
			},
		},
		{
			name: "username too short",
			input: RegisterInput{
				Username: "al",
				Email:    "alice@example.com",
				Password: "correct-horse",
			},
			wantErr: ErrInvalidUsername,
		},
		{
			name: "bad email",
			input: RegisterInput{
				Username: "alice",
				Email:    "not-an-email",
				Phone:    "555-0100",
				Password: "correct-horse",
			},
			wantErr: ErrInvalidEmail,
		},
		{
			name: "missing phone",
			input: RegisterInput{
				Username: "alice",
				Email:    "alice@example.com",
				Password: "correct-horse",
			},
			wantErr: ErrInvalidPhone,
		},
		{
			name: "password too short",
			input: RegisterInput{
				Username: "alice",
				Email:    "alice@example.com",
				Phone:    "555-0100",
				Password: "short",
			},
			wantErr: ErrInvalidPassword,
		},
		{
			name: "duplicate email",
			input: RegisterInput{
				Username: "alice2",
				Email:    "alice@example.com",
				Phone:    "555-0101",
				Password: "correct-horse",
			},
			setup: func(m *MockUserRepository) {
				m.users["u1"] = &domain.User{
					ID:    "u1",
					Email: "alice@example.com",
				}
			},
			wantErr: domain.ErrUserAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			if tt.setup != nil {
				tt.setup(repo)
			}

			svc := NewUserService(repo, zerolog.Nop())
			output, err := svc.Register(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			user := output.User
			if user.Role != domain.RoleBorrower {
				t.Errorf("expected borrower role, got %s", user.Role)
			}
			if user.ID == "" {
				t.Error("expected generated user ID")
			}
			if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(tt.input.Password)); err != nil {
				t.Error("stored hash does not match password")
			}
		})
	}
}

func TestUserService_Register_AdminRole(t *testing.T) {
	repo := NewMockUserRepository()
	svc := NewUserService(repo, zerolog.Nop())

	output, err := svc.Register(context.Background(), RegisterInput{
		Username: "librarian",
		Email:    "librarian@example.com",
		Phone:    "555-0199",
		Password: "opensesame",
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !output.User.CanAdminister() {
		t.Error("expected admin capabilities")
	}
}

func TestUserService_Authenticate(t *testing.T) {
	repo := NewMockUserRepository()
	svc := NewUserService(repo, zerolog.Nop())

	if _, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Phone:    "555-0100",
		Password: "correct-horse",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	t.Run("success", func(t *testing.T) {
		user, err := svc.Authenticate(context.Background(), "alice", "correct-horse")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Username != "alice" {
			t.Errorf("expected alice, got %s", user.Username)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "alice", "wrong")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown username", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "mallory", "whatever")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
