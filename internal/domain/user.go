package domain

import (
	"time"
)

// Role determines what a user is allowed to do.
type Role string

const (
	// RoleBorrower is the default role for registered users.
	RoleBorrower Role = "borrower"

	// RoleAdmin grants catalog and user management capabilities.
	RoleAdmin Role = "admin"
)

// User represents a registered borrower (or administrator).
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`

	// Username is the display name used for login.
	Username string `json:"username"`

	// Email is the unique email address for the user.
	Email string `json:"email"`

	// Phone is the contact number given at registration.
	Phone string `json:"phone,omitempty"`

	// PasswordHash is the bcrypt hash of the user's password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"-"`

	// Role determines the user's capabilities.
	Role Role `json:"role"`

	// CreatedAt is the timestamp when the user registered.
	CreatedAt time.Time `json:"created_at"`

	// BorrowedBooks holds the IDs of books currently checked out by the
	// user. Invariant: a book ID appears here if and only if there is an
	// active transaction linking this user and that book.
	BorrowedBooks []string `json:"borrowed_books,omitempty"`
}

// NewUser creates a new User with the borrower role.
func NewUser(id, username, email, phone, passwordHash string) *User {
	return &User{
		ID:           id,
		Username:     username,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		Role:         RoleBorrower,
		CreatedAt:    time.Now().UTC(),
	}
}

// CanAdminister reports whether the user may perform administrative
// operations such as adding books or listing borrowers.
func (u *User) CanAdminister() bool {
	return u.Role == RoleAdmin
}

// HasBorrowed reports whether the book is in the user's borrowed set.
func (u *User) HasBorrowed(bookID string) bool {
	for _, id := range u.BorrowedBooks {
		if id == bookID {
			return true
		}
	}
	return false
}

// UserSummary is the compact user representation embedded in transaction
// listings.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Summary returns the compact representation of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}
