// Package repository defines data access interfaces for Bodleian.
// These interfaces abstract database operations, allowing for different
// implementations (SQLite for embedded deployments, PostgreSQL for
// production) while keeping the service layer clean.
package repository

import (
	"context"

	"github.com/bodleian-io/bodleian/internal/domain"
)

// =============================================================================
// Book Repository
// =============================================================================

// BookRepository defines the interface for book data access.
type BookRepository interface {
	// Create creates a new book.
	Create(ctx context.Context, book *domain.Book) error

	// GetByID retrieves a book by ID, including its current borrower set.
	GetByID(ctx context.Context, id string) (*domain.Book, error)

	// GetByISBN retrieves a book by its catalog number.
	GetByISBN(ctx context.Context, isbn string) (*domain.Book, error)

	// List returns all books in the catalog.
	List(ctx context.Context) ([]*domain.Book, error)

	// Update updates the book's catalog fields (not its copy counters).
	Update(ctx context.Context, book *domain.Book) error

	// DecrementAvailable atomically takes one copy off the shelf.
	// Returns domain.ErrNoCopiesAvailable when no copy is available;
	// the counter never goes negative.
	DecrementAvailable(ctx context.Context, id string) error

	// IncrementAvailable atomically puts one copy back on the shelf.
	// Returns domain.ErrConflict if the counter is already at TotalCopies.
	IncrementAvailable(ctx context.Context, id string) error

	// AddBorrower records that the user currently holds a copy.
	AddBorrower(ctx context.Context, bookID, userID string) error

	// RemoveBorrower removes the user from the book's borrower set.
	RemoveBorrower(ctx context.Context, bookID, userID string) error

	// ExistsByISBN checks if a book with the given ISBN exists.
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
}

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID, including their borrowed-book set.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// ListBorrowers returns all users without the admin role.
	ListBorrowers(ctx context.Context) ([]*domain.User, error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// =============================================================================
// Transaction Repository
// =============================================================================

// TransactionFilter narrows transaction listings. Zero values match all.
type TransactionFilter struct {
	// UserID filters by borrowing user.
	UserID string

	// BookID filters by borrowed book.
	BookID string

	// Type filters by transaction type.
	Type domain.TransactionType

	// Status filters by transaction status.
	Status domain.TransactionStatus
}

// TransactionRepository defines the interface for ledger data access.
type TransactionRepository interface {
	// Create creates a new ledger entry.
	Create(ctx context.Context, txn *domain.Transaction) error

	// GetByID retrieves a ledger entry by ID.
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)

	// FindActive retrieves the single active borrow transaction for the
	// (user, book) pair, or domain.ErrTransactionNotFound.
	FindActive(ctx context.Context, userID, bookID string) (*domain.Transaction, error)

	// List returns ledger entries matching the filter, newest first.
	List(ctx context.Context, filter TransactionFilter) ([]*domain.Transaction, error)

	// Update rewrites an existing ledger entry in place.
	Update(ctx context.Context, txn *domain.Transaction) error

	// CountActiveByBook returns the number of active loans for a book.
	CountActiveByBook(ctx context.Context, bookID string) (int64, error)
}

// =============================================================================
// Bundles & Transaction Support
// =============================================================================

// Repositories holds all repository instances for one backend.
type Repositories struct {
	Books        BookRepository
	Users        UserRepository
	Transactions TransactionRepository
	Tx           TxManager
}

// TxManager defines the interface for transaction management.
// A ledger operation mutates book, user, and transaction records together;
// WithTx makes those writes atomic.
type TxManager interface {
	// WithTx executes the given function within a database transaction.
	// The transaction is carried in the context so that repository calls
	// made inside fn share it. If fn returns an error, the transaction is
	// rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
