package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/repository"
)

// CatalogService handles the book catalog and lending histories.
type CatalogService struct {
	bookRepo repository.BookRepository
	userRepo repository.UserRepository
	txnRepo  repository.TransactionRepository
	fineRate int64
	now      func() time.Time
	logger   zerolog.Logger
}

// NewCatalogService creates a new CatalogService. fineRate is the daily
// late fee used for accrued fines in listings; zero selects the default.
func NewCatalogService(
	bookRepo repository.BookRepository,
	userRepo repository.UserRepository,
	txnRepo repository.TransactionRepository,
	fineRate int64,
	logger zerolog.Logger,
) *CatalogService {
	if fineRate <= 0 {
		fineRate = DefaultDailyFineRate
	}
	return &CatalogService{
		bookRepo: bookRepo,
		userRepo: userRepo,
		txnRepo:  txnRepo,
		fineRate: fineRate,
		now:      time.Now,
		logger:   logger.With().Str("service", "catalog").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// AddBookInput contains the data needed to add a book to the catalog.
type AddBookInput struct {
	Title         string
	Author        string
	ISBN          string
	Genre         string
	PublishedDate time.Time
	TotalCopies   int
}

// AddBookOutput contains the result of adding a book.
type AddBookOutput struct {
	Book *domain.Book
}

// BookHistoryEntry is one ledger entry for a book joined with the
// borrowing user.
type BookHistoryEntry struct {
	Transaction *domain.Transaction `json:"transaction"`
	Borrower    domain.UserSummary  `json:"borrower"`
}

// BorrowerHistoryEntry is one ledger entry for a user joined with the
// borrowed book.
type BorrowerHistoryEntry struct {
	Transaction *domain.Transaction `json:"transaction"`
	Book        domain.BookSummary  `json:"book"`

	// AccruedFine is the fee an active overdue loan would cost if
	// returned now. Zero for settled or on-time loans.
	AccruedFine int64 `json:"accrued_fine,omitempty"`
}

// =============================================================================
// Service Methods
// =============================================================================

// AddBook adds a new title to the catalog with all copies available.
func (s *CatalogService) AddBook(ctx context.Context, input AddBookInput) (*AddBookOutput, error) {
	if err := s.validateAddBookInput(input); err != nil {
		return nil, err
	}

	exists, err := s.bookRepo.ExistsByISBN(ctx, input.ISBN)
	if err != nil {
		s.logger.Error().Err(err).Str("isbn", input.ISBN).Msg("failed to check isbn existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: isbn '%s'", domain.ErrBookAlreadyExists, input.ISBN)
	}

	book := domain.NewBook(
		uuid.NewString(),
		input.Title,
		input.Author,
		input.ISBN,
		input.Genre,
		input.TotalCopies,
		input.PublishedDate,
	)

	if err := s.bookRepo.Create(ctx, book); err != nil {
		if errors.Is(err, domain.ErrBookAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("isbn", input.ISBN).Msg("failed to create book")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("book_id", book.ID).
		Str("title", book.Title).
		Str("isbn", book.ISBN).
		Int("total_copies", book.TotalCopies).
		Msg("book added to catalog")

	return &AddBookOutput{Book: book}, nil
}

// ListBooks returns all books in the catalog.
func (s *CatalogService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.bookRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list books")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return books, nil
}

// GetBook retrieves a book by ID.
func (s *CatalogService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("book_id", id).Msg("failed to get book")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return book, nil
}

// BookHistory returns the full ledger for one book joined with each
// borrowing user, newest first.
func (s *CatalogService) BookHistory(ctx context.Context, bookID string) ([]*BookHistoryEntry, error) {
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("book_id", bookID).Msg("failed to get book")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	txns, err := s.txnRepo.List(ctx, repository.TransactionFilter{BookID: bookID})
	if err != nil {
		s.logger.Error().Err(err).Str("book_id", bookID).Msg("failed to list transactions")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	// A book's history repeats the same users; look each up once.
	users := make(map[string]domain.UserSummary)
	entries := make([]*BookHistoryEntry, 0, len(txns))
	for _, txn := range txns {
		entry := &BookHistoryEntry{Transaction: txn}

		summary, seen := users[txn.UserID]
		if !seen {
			user, err := s.userRepo.GetByID(ctx, txn.UserID)
			switch {
			case err == nil:
				summary = user.Summary()
			case errors.Is(err, domain.ErrBorrowerNotFound):
				// The account was removed after the loan.
				summary = domain.UserSummary{ID: txn.UserID}
			default:
				s.logger.Error().Err(err).Str("user_id", txn.UserID).Msg("failed to get user")
				return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
			}
			users[txn.UserID] = summary
		}
		entry.Borrower = summary

		entries = append(entries, entry)
	}
	return entries, nil
}

// BorrowerHistory returns the full ledger for one user joined with each
// borrowed book, newest first. Active overdue loans carry the fee they
// would cost if returned now.
func (s *CatalogService) BorrowerHistory(ctx context.Context, userID string) ([]*BorrowerHistoryEntry, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrBorrowerNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	txns, err := s.txnRepo.List(ctx, repository.TransactionFilter{UserID: userID})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list transactions")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	now := s.now().UTC()
	entries := make([]*BorrowerHistoryEntry, 0, len(txns))
	for _, txn := range txns {
		entry := &BorrowerHistoryEntry{Transaction: txn}

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

		if txn.IsActive() {
			entry.AccruedFine = Fine(txn.DueDate, now, s.fineRate)
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

// validateAddBookInput validates the input for adding a book.
func (s *CatalogService) validateAddBookInput(input AddBookInput) error {
	if input.Title == "" {
		return ErrInvalidTitle
	}
	if input.Author == "" {
		return ErrInvalidAuthor
	}
	if input.ISBN == "" {
		return ErrInvalidISBN
	}
	if input.TotalCopies < 1 {
		return ErrInvalidCopyCount
	}
	return nil
}
