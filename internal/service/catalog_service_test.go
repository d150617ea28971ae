package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bodleian-io/bodleian/internal/domain"
)

func newTestCatalog() (*CatalogService, *MockBookRepository, *MockUserRepository, *MockTransactionRepository) {
	books := NewMockBookRepository()
	users := NewMockUserRepository()
	txns := NewMockTransactionRepository()
	svc := NewCatalogService(books, users, txns, 0, zerolog.Nop())
	return svc, books, users, txns
}

func TestCatalogService_AddBook(t *testing.T) {
	published := time.Date(2015, 11, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		input   AddBookInput
		setup   func(*MockBookRepository)
		wantErr error
	}{
		{
			name: "success",
			input: AddBookInput{
				Title:         "The Go Programming Language",
				Author:        "Alan A. A. Donovan",
				ISBN:          "9780134190440",
				Genre:         "programming",
				PublishedDate: published,
				TotalCopies:   3,
			},
		},
		{
			name: "missing title",
			input: AddBookInput{
				Author:      "Anonymous",
				ISBN:        "123",
				TotalCopies: 1,
			},
			wantErr: ErrInvalidTitle,
		},
		{
			name: "missing author",
			input: AddBookInput{
				Title:       "Untitled",
				ISBN:        "123",
				TotalCopies: 1,
			},
			wantErr: ErrInvalidAuthor,
		},
		{
			name: "missing isbn",
			input: AddBookInput{
				Title:       "Untitled",
				Author:      "Anonymous",
				TotalCopies: 1,
			},
			wantErr: ErrInvalidISBN,
		},
		{
			name: "zero copies",
			input: AddBookInput{
				Title:  "Untitled",
				Author: "Anonymous",
				ISBN:   "123",
			},
			wantErr: ErrInvalidCopyCount,
		},
		{
			name: "duplicate isbn",
			input: AddBookInput{
				Title:       "Duplicate",
				Author:      "Anonymous",
				ISBN:        "existing",
				TotalCopies: 1,
			},
			setup: func(m *MockBookRepository) {
				m.books["b1"] = &domain.Book{ID: "b1", ISBN: "existing"}
			},
			wantErr: domain.ErrBookAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, books, _, _ := newTestCatalog()
			if tt.setup != nil {
				tt.setup(books)
			}

			output, err := svc.AddBook(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			book := output.Book
			if book.ID == "" {
				t.Error("expected generated book ID")
			}
			if book.AvailableCopies != tt.input.TotalCopies {
				t.Errorf("expected all %d copies available, got %d", tt.input.TotalCopies, book.AvailableCopies)
			}
		})
	}
}

func TestCatalogService_Histories(t *testing.T) {
	svc, books, users, txns := newTestCatalog()
	ctx := context.Background()

	books.books["b1"] = &domain.Book{ID: "b1", Title: "One", Author: "A", ISBN: "1"}
	users.users["u1"] = &domain.User{ID: "u1", Username: "alice", Email: "a@example.com"}

	older := domain.NewBorrowTransaction("t1", "u1", "b1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 14*24*time.Hour)
	newer := domain.NewBorrowTransaction("t2", "u1", "b1", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), 14*24*time.Hour)
	older.Settle(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 0)
	if err := txns.Create(ctx, older); err != nil {
		t.Fatalf("seed older: %v", err)
	}
	if err := txns.Create(ctx, newer); err != nil {
		t.Fatalf("seed newer: %v", err)
	}

	// Six whole days past t2's due date of 2026-02-15.
	svc.now = func() time.Time { return time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC) }

	t.Run("book history joined with borrowers", func(t *testing.T) {
		history, err := svc.BookHistory(ctx, "b1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(history))
		}
		if history[0].Transaction.ID != "t2" {
			t.Errorf("expected newest entry first, got %s", history[0].Transaction.ID)
		}
		for _, e := range history {
			if e.Borrower.Username != "alice" || e.Borrower.Email != "a@example.com" {
				t.Errorf("expected borrower join on %s, got %+v", e.Transaction.ID, e.Borrower)
			}
		}
	})

	t.Run("borrower history joined with books and accrued fine", func(t *testing.T) {
		history, err := svc.BorrowerHistory(ctx, "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(history))
		}
		for _, e := range history {
			if e.Book.Title != "One" {
				t.Errorf("expected book join on %s, got %+v", e.Transaction.ID, e.Book)
			}
		}

		active, settled := history[0], history[1]
		if active.Transaction.ID != "t2" || settled.Transaction.ID != "t1" {
			t.Fatalf("expected t2 then t1, got %s then %s", active.Transaction.ID, settled.Transaction.ID)
		}
		if active.AccruedFine != 300 {
			t.Errorf("expected accrued fine 300 on the overdue loan, got %d", active.AccruedFine)
		}
		if settled.AccruedFine != 0 {
			t.Errorf("expected no accrued fine on the settled loan, got %d", settled.AccruedFine)
		}
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := svc.BookHistory(ctx, "ghost")
		if !errors.Is(err, domain.ErrBookNotFound) {
			t.Fatalf("expected ErrBookNotFound, got %v", err)
		}
	})

	t.Run("unknown borrower", func(t *testing.T) {
		_, err := svc.BorrowerHistory(ctx, "ghost")
		if !errors.Is(err, domain.ErrBorrowerNotFound) {
			t.Fatalf("expected ErrBorrowerNotFound, got %v", err)
		}
	})
}
