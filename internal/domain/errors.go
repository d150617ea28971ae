package domain

import (
	"errors"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// Lookup Errors
	// ===========================================

	// ErrBookNotFound indicates the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrBorrowerNotFound indicates the requested user does not exist.
	ErrBorrowerNotFound = errors.New("borrower not found")

	// ErrTransactionNotFound indicates no matching ledger entry exists.
	// In particular, a return with no active borrow transaction fails with
	// this error.
	ErrTransactionNotFound = errors.New("no active borrowing transaction found")

	// ===========================================
	// Ledger Errors
	// ===========================================

	// ErrDuplicateBorrow indicates the borrower already holds the book.
	ErrDuplicateBorrow = errors.New("book is already borrowed by this user")

	// ErrNoCopiesAvailable indicates every copy is checked out.
	ErrNoCopiesAvailable = errors.New("no available copies left for borrowing")

	// ErrNotBorrowed indicates the book is not in the borrower's set.
	ErrNotBorrowed = errors.New("book was not borrowed by this user")

	// ErrConflict indicates a concurrent operation on the same book
	// prevented this one from completing. Callers may retry.
	ErrConflict = errors.New("conflicting operation in progress")

	// ===========================================
	// Catalog / User Errors
	// ===========================================

	// ErrBookAlreadyExists indicates a book with the same ISBN exists.
	ErrBookAlreadyExists = errors.New("book already exists")

	// ErrUserAlreadyExists indicates a user with the same email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrSessionNotFound indicates the session token is missing or expired.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAccessDenied indicates the user lacks the required capability.
	ErrAccessDenied = errors.New("access denied")
)
