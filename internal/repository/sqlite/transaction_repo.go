package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/repository"
)

// transactionRepository implements repository.TransactionRepository for SQLite.
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new SQLite transaction repository.
func NewTransactionRepository(db *DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

// Create creates a new ledger entry.
func (r *transactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, book_id, type, transaction_date, due_date, return_date, status, fine_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.q(ctx).ExecContext(ctx, query,
		txn.ID,
		txn.UserID,
		txn.BookID,
		string(txn.Type),
		txn.TransactionDate.Format(time.RFC3339),
		txn.DueDate.Format(time.RFC3339),
		formatNullTime(txn.ReturnDate),
		string(txn.Status),
		txn.FineAmount,
	)

	if err != nil {
		if isUniqueViolation(err) {
			// The partial unique index rejects a second active entry for
			// the same (user, book) pair.
			return domain.ErrDuplicateBorrow
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger entry by ID.
func (r *transactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := selectTransaction + ` WHERE id = ?`

	txn, err := scanTransaction(r.db.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return txn, nil
}

// FindActive retrieves the single active borrow transaction for the
// (user, book) pair.
func (r *transactionRepository) FindActive(ctx context.Context, userID, bookID string) (*domain.Transaction, error) {
	query := selectTransaction + `
		WHERE user_id = ? AND book_id = ? AND type = ? AND status = ?
	`

	txn, err := scanTransaction(r.db.q(ctx).QueryRowContext(ctx, query,
		userID, bookID, string(domain.TransactionBorrow), string(domain.StatusActive)))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find active transaction: %w", err)
	}

	return txn, nil
}

// List returns ledger entries matching the filter, newest first.
func (r *transactionRepository) List(ctx context.Context, filter repository.TransactionFilter) ([]*domain.Transaction, error) {
	query := selectTransaction + ` WHERE 1=1`
	var args []interface{}

	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.BookID != "" {
		query += ` AND book_id = ?`
		args = append(args, filter.BookID)
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY transaction_date DESC`

	rows, err := r.db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

// Update rewrites an existing ledger entry in place.
func (r *transactionRepository) Update(ctx context.Context, txn *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET type = ?, status = ?, return_date = ?, fine_amount = ?
		WHERE id = ?
	`

	result, err := r.db.q(ctx).ExecContext(ctx, query,
		string(txn.Type),
		string(txn.Status),
		formatNullTime(txn.ReturnDate),
		txn.FineAmount,
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// CountActiveByBook returns the number of active loans for a book.
func (r *transactionRepository) CountActiveByBook(ctx context.Context, bookID string) (int64, error) {
	var count int64
	err := r.db.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE book_id = ? AND status = ?`,
		bookID, string(domain.StatusActive)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active transactions: %w", err)
	}
	return count, nil
}

const selectTransaction = `
	SELECT id, user_id, book_id, type, transaction_date, due_date, return_date, status, fine_amount
	FROM transactions
`

// scanTransaction reads one ledger row.
func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	var txnType, status, transactionDate, dueDate string
	var returnDate sql.NullString

	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.BookID,
		&txnType,
		&transactionDate,
		&dueDate,
		&returnDate,
		&status,
		&txn.FineAmount,
	)
	if err != nil {
		return nil, err
	}

	txn.Type = domain.TransactionType(txnType)
	txn.Status = domain.TransactionStatus(status)
	txn.TransactionDate, _ = time.Parse(time.RFC3339, transactionDate)
	txn.DueDate, _ = time.Parse(time.RFC3339, dueDate)
	if returnDate.Valid {
		t, _ := time.Parse(time.RFC3339, returnDate.String)
		txn.ReturnDate = &t
	}

	return txn, nil
}

// formatNullTime maps a nil time to NULL.
func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

// Ensure transactionRepository implements repository.TransactionRepository.
var _ repository.TransactionRepository = (*transactionRepository)(nil)
