package postgres

import (
	"context"
	"fmt"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/repository"
)

// transactionRepository implements repository.TransactionRepository for
// PostgreSQL.
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(db *DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

// Create creates a new ledger entry.
func (r *transactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, book_id, type, transaction_date, due_date, return_date, status, fine_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.q(ctx).Exec(ctx, query,
		txn.ID,
		txn.UserID,
		txn.BookID,
		string(txn.Type),
		txn.TransactionDate,
		txn.DueDate,
		txn.ReturnDate,
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
	query := selectTransaction + ` WHERE id = $1`

	txn, err := scanTransaction(r.db.q(ctx).QueryRow(ctx, query, id))
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
		WHERE user_id = $1 AND book_id = $2 AND type = $3 AND status = $4
	`

	txn, err := scanTransaction(r.db.q(ctx).QueryRow(ctx, query,
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
		args = append(args, filter.UserID)
		query += fmt.Sprintf(` AND user_id = $%d`, len(args))
	}
	if filter.BookID != "" {
		args = append(args, filter.BookID)
		query += fmt.Sprintf(` AND book_id = $%d`, len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += fmt.Sprintf(` AND type = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY transaction_date DESC`

	rows, err := r.db.q(ctx).Query(ctx, query, args...)
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
		SET type = $1, status = $2, return_date = $3, fine_amount = $4
		WHERE id = $5
	`

	tag, err := r.db.q(ctx).Exec(ctx, query,
		string(txn.Type),
		string(txn.Status),
		txn.ReturnDate,
		txn.FineAmount,
		txn.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// CountActiveByBook returns the number of active loans for a book.
func (r *transactionRepository) CountActiveByBook(ctx context.Context, bookID string) (int64, error) {
	var count int64
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE book_id = $1 AND status = $2`,
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
	var txnType, status string

	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.BookID,
		&txnType,
		&txn.TransactionDate,
		&txn.DueDate,
		&txn.ReturnDate,
		&status,
		&txn.FineAmount,
	)
	if err != nil {
		return nil, err
	}

	txn.Type = domain.TransactionType(txnType)
	txn.Status = domain.TransactionStatus(status)

	return txn, nil
}

// Ensure transactionRepository implements repository.TransactionRepository.
var _ repository.TransactionRepository = (*transactionRepository)(nil)
