package domain

import (
	"time"
)

// TransactionType distinguishes borrow records from settled returns.
type TransactionType string

const (
	// TransactionBorrow marks an outstanding loan.
	TransactionBorrow TransactionType = "borrow"

	// TransactionReturn marks a settled loan. A borrow record is rewritten
	// in place when the book comes back; no second row is created.
	TransactionReturn TransactionType = "return"
)

// TransactionStatus tracks whether a loan is outstanding.
type TransactionStatus string

const (
	// StatusActive means the book is still out.
	StatusActive TransactionStatus = "active"

	// StatusCompleted means the book has been returned.
	StatusCompleted TransactionStatus = "completed"
)

// Transaction is one entry in the borrow/return ledger.
// Invariant: at most one active transaction exists per (user, book) pair.
type Transaction struct {
	// ID is the unique identifier for the transaction.
	ID string `json:"id"`

	// UserID references the borrowing user.
	UserID string `json:"user_id"`

	// BookID references the borrowed book.
	BookID string `json:"book_id"`

	// Type is borrow while the loan is open, return once settled.
	Type TransactionType `json:"type"`

	// TransactionDate is when the book was borrowed.
	TransactionDate time.Time `json:"transaction_date"`

	// DueDate is TransactionDate plus the loan period.
	DueDate time.Time `json:"due_date"`

	// ReturnDate is set when the loan is settled.
	ReturnDate *time.Time `json:"return_date,omitempty"`

	// Status is active while the loan is open.
	Status TransactionStatus `json:"status"`

	// FineAmount is the late fee assessed at return time, in currency
	// units. Zero for on-time returns.
	FineAmount int64 `json:"fine_amount"`
}

// NewBorrowTransaction creates an active borrow entry due loanPeriod after now.
func NewBorrowTransaction(id, userID, bookID string, now time.Time, loanPeriod time.Duration) *Transaction {
	return &Transaction{
		ID:              id,
		UserID:          userID,
		BookID:          bookID,
		Type:            TransactionBorrow,
		TransactionDate: now,
		DueDate:         now.Add(loanPeriod),
		Status:          StatusActive,
	}
}

// IsActive reports whether the loan is still outstanding.
func (t *Transaction) IsActive() bool {
	return t.Status == StatusActive
}

// Settle rewrites the transaction in place as a completed return.
func (t *Transaction) Settle(returnedAt time.Time, fine int64) {
	t.Type = TransactionReturn
	t.Status = StatusCompleted
	t.ReturnDate = &returnedAt
	t.FineAmount = fine
}
