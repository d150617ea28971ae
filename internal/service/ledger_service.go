package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/lock"
	"github.com/bodleian-io/bodleian/internal/metrics"
	"github.com/bodleian-io/bodleian/internal/repository"
)

// Lock acquisition retry parameters for contended books.
const (
	lockMaxRetries = 3
	lockRetryDelay = 50 * time.Millisecond
)

// DefaultLoanPeriod is how long a borrower may keep a book.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// LedgerConfig holds the lending business rules for the ledger.
type LedgerConfig struct {
	// LoanPeriod determines the due date of a new loan.
	LoanPeriod time.Duration

	// DailyFineRate is the late fee per whole day past the due date.
	DailyFineRate int64

	// LockTTL bounds how long a per-book lock may be held.
	LockTTL time.Duration
}

// withDefaults fills in zero values.
func (c LedgerConfig) withDefaults() LedgerConfig {
	if c.LoanPeriod <= 0 {
		c.LoanPeriod = DefaultLoanPeriod
	}
	if c.DailyFineRate <= 0 {
		c.DailyFineRate = DefaultDailyFineRate
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 5 * time.Second
	}
	return c
}

// LedgerService handles borrow and return operations. Each operation
// mutates the book's copy counter, the borrower links and the transaction
// ledger together; a per-book lock plus a database transaction keep those
// writes consistent under concurrency.
type LedgerService struct {
	bookRepo repository.BookRepository
	userRepo repository.UserRepository
	txnRepo  repository.TransactionRepository
	tx       repository.TxManager
	locker   lock.Locker
	metrics  *metrics.Metrics
	cfg      LedgerConfig
	now      func() time.Time
	logger   zerolog.Logger
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	repos *repository.Repositories,
	locker lock.Locker,
	m *metrics.Metrics,
	cfg LedgerConfig,
	logger zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		bookRepo: repos.Books,
		userRepo: repos.Users,
		txnRepo:  repos.Transactions,
		tx:       repos.Tx,
		locker:   locker,
		metrics:  m,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		logger:   logger.With().Str("service", "ledger").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// BorrowInput identifies the borrower and the book to check out.
type BorrowInput struct {
	UserID string
	BookID string
}

// BorrowOutput contains the result of a successful borrow.
type BorrowOutput struct {
	Transaction *domain.Transaction
}

// ReturnInput identifies the borrower and the book to check in.
type ReturnInput struct {
	UserID string
	BookID string
}

// ReturnOutput contains the result of a successful return.
type ReturnOutput struct {
	Transaction *domain.Transaction

	// Fine is the late fee charged for this return, zero if on time.
	Fine int64
}

// BorrowListEntry is one active loan joined with its book.
type BorrowListEntry struct {
	Transaction *domain.Transaction `json:"transaction"`
	Book        domain.BookSummary  `json:"book"`

	// AccruedFine is the fee the loan would cost if returned now.
	// Zero while the loan is not yet overdue.
	AccruedFine int64 `json:"accrued_fine,omitempty"`
}

// =============================================================================
// Service Methods
// =============================================================================

// Borrow checks a book out to a user. It fails when the user or book does
// not exist, the user already holds the book, or no copy is available.
func (s *LedgerService) Borrow(ctx context.Context, input BorrowInput) (*BorrowOutput, error) {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, s.rejectBorrow(err, input, "failed to get user")
	}

	book, err := s.bookRepo.GetByID(ctx, input.BookID)
	if err != nil {
		return nil, s.rejectBorrow(err, input, "failed to get book")
	}

	if book.IsBorrowedBy(user.ID) {
		s.countBorrow(metrics.ResultRejected)
		return nil, domain.ErrDuplicateBorrow
	}
	if book.AvailableCopies < 1 {
		s.countBorrow(metrics.ResultRejected)
		return nil, domain.ErrNoCopiesAvailable
	}

	acquired, err := s.locker.AcquireWithRetry(ctx, lock.Keys.Book(book.ID), s.cfg.LockTTL, lockMaxRetries, lockRetryDelay)
	if err != nil {
		return nil, s.rejectBorrow(err, input, "failed to acquire book lock")
	}
	if !acquired {
		s.countBorrow(metrics.ResultRejected)
		return nil, domain.ErrConflict
	}
	defer func() {
		_, _ = s.locker.Release(ctx, lock.Keys.Book(book.ID))
	}()

	var txn *domain.Transaction
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		// The conditional update is authoritative; the availability check
		// above only short-circuits the common case.
		if err := s.bookRepo.DecrementAvailable(ctx, book.ID); err != nil {
			return err
		}

		txn = domain.NewBorrowTransaction(uuid.NewString(), user.ID, book.ID, s.now().UTC(), s.cfg.LoanPeriod)
		if err := s.txnRepo.Create(ctx, txn); err != nil {
			return err
		}

		return s.bookRepo.AddBorrower(ctx, book.ID, user.ID)
	})
	if err != nil {
		return nil, s.rejectBorrow(err, input, "borrow transaction failed")
	}

	s.countBorrow(metrics.ResultOK)
	s.logger.Info().
		Str("user_id", user.ID).
		Str("book_id", book.ID).
		Str("transaction_id", txn.ID).
		Time("due_date", txn.DueDate).
		Msg("book borrowed")

	return &BorrowOutput{Transaction: txn}, nil
}

// Return checks a book back in, settling the active transaction and
// charging a late fee when past due.
func (s *LedgerService) Return(ctx context.Context, input ReturnInput) (*ReturnOutput, error) {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, s.rejectReturn(err, input, "failed to get user")
	}

	book, err := s.bookRepo.GetByID(ctx, input.BookID)
	if err != nil {
		return nil, s.rejectReturn(err, input, "failed to get book")
	}

	if !user.HasBorrowed(book.ID) {
		s.countReturn(metrics.ResultRejected)
		return nil, domain.ErrNotBorrowed
	}

	acquired, err := s.locker.AcquireWithRetry(ctx, lock.Keys.Book(book.ID), s.cfg.LockTTL, lockMaxRetries, lockRetryDelay)
	if err != nil {
		return nil, s.rejectReturn(err, input, "failed to acquire book lock")
	}
	if !acquired {
		s.countReturn(metrics.ResultRejected)
		return nil, domain.ErrConflict
	}
	defer func() {
		_, _ = s.locker.Release(ctx, lock.Keys.Book(book.ID))
	}()

	var txn *domain.Transaction
	var fine int64
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		txn, err = s.txnRepo.FindActive(ctx, user.ID, book.ID)
		if err != nil {
			return err
		}

		returnedAt := s.now().UTC()
		fine = Fine(txn.DueDate, returnedAt, s.cfg.DailyFineRate)
		txn.Settle(returnedAt, fine)

		if err := s.txnRepo.Update(ctx, txn); err != nil {
			return err
		}
		if err := s.bookRepo.IncrementAvailable(ctx, book.ID); err != nil {
			return err
		}
		return s.bookRepo.RemoveBorrower(ctx, book.ID, user.ID)
	})
	if err != nil {
		return nil, s.rejectReturn(err, input, "return transaction failed")
	}

	s.countReturn(metrics.ResultOK)
	if s.metrics != nil && fine > 0 {
		s.metrics.FinesAssessedTotal.Add(float64(fine))
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("book_id", book.ID).
		Str("transaction_id", txn.ID).
		Int64("fine", fine).
		Msg("book returned")

	return &ReturnOutput{Transaction: txn, Fine: fine}, nil
}

// BorrowList returns the user's active loans joined with book summaries,
// newest first. Settled returns are not listed; they stay visible through
// the admin history routes. Overdue loans carry the fee they would cost
// if returned now.
func (s *LedgerService) BorrowList(ctx context.Context, userID string) ([]*BorrowListEntry, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrBorrowerNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	txns, err := s.txnRepo.List(ctx, repository.TransactionFilter{
		UserID: user.ID,
		Type:   domain.TransactionBorrow,
		Status: domain.StatusActive,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list transactions")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := s.now().UTC()
	entries := make([]*BorrowListEntry, 0, len(txns))
	for _, txn := range txns {
		entry := &BorrowListEntry{
			Transaction: txn,
			AccruedFine: Fine(txn.DueDate, now, s.cfg.DailyFineRate),
		}

		book, err := s.bookRepo.GetByID(ctx, txn.BookID)
		switch {
		case err == nil:
			entry.Book = book.Summary()
		case errors.Is(err, domain.ErrBookNotFound):
			// The title was removed from the catalog after the loan.
			entry.Book = domain.BookSummary{ID: txn.BookID}
		default:
			s.logger.Error().Err(err).Str("book_id", txn.BookID).Msg("failed to get book")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// =============================================================================
// Helpers
// =============================================================================

// ledgerReject reports whether the error is a business rule violation
// rather than an infrastructure failure.
func ledgerReject(err error) bool {
	return errors.Is(err, domain.ErrBookNotFound) ||
		errors.Is(err, domain.ErrBorrowerNotFound) ||
		errors.Is(err, domain.ErrTransactionNotFound) ||
		errors.Is(err, domain.ErrDuplicateBorrow) ||
		errors.Is(err, domain.ErrNoCopiesAvailable) ||
		errors.Is(err, domain.ErrNotBorrowed) ||
		errors.Is(err, domain.ErrConflict)
}

// rejectBorrow classifies a borrow failure, counts it and returns the
// error the caller should see.
func (s *LedgerService) rejectBorrow(err error, input BorrowInput, msg string) error {
	if ledgerReject(err) {
		s.countBorrow(metrics.ResultRejected)
		return err
	}
	s.countBorrow(metrics.ResultError)
	s.logger.Error().Err(err).
		Str("user_id", input.UserID).
		Str("book_id", input.BookID).
		Msg(msg)
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}

// rejectReturn classifies a return failure, counts it and returns the
// error the caller should see.
func (s *LedgerService) rejectReturn(err error, input ReturnInput, msg string) error {
	if ledgerReject(err) {
		s.countReturn(metrics.ResultRejected)
		return err
	}
	s.countReturn(metrics.ResultError)
	s.logger.Error().Err(err).
		Str("user_id", input.UserID).
		Str("book_id", input.BookID).
		Msg(msg)
	return fmt.Errorf("%w: %v", ErrInternalError, err)
}

func (s *LedgerService) countBorrow(result string) {
	if s.metrics != nil {
		s.metrics.BorrowsTotal.WithLabelValues(result).Inc()
	}
}

func (s *LedgerService) countReturn(result string) {
	if s.metrics != nil {
		s.metrics.ReturnsTotal.WithLabelValues(result).Inc()
	}
}
