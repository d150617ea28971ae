package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/repository"
)

// bookRepository implements repository.BookRepository for SQLite.
type bookRepository struct {
	db *DB
}

// NewBookRepository creates a new SQLite book repository.
func NewBookRepository(db *DB) repository.BookRepository {
	return &bookRepository{db: db}
}

// Create creates a new book.
func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	query := `
		INSERT INTO books (id, title, author, isbn, published_date, total_copies, available_copies, genre)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.q(ctx).ExecContext(ctx, query,
		book.ID,
		book.Title,
		book.Author,
		book.ISBN,
		book.PublishedDate.Format(time.RFC3339),
		book.TotalCopies,
		book.AvailableCopies,
		book.Genre,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: isbn %s", domain.ErrBookAlreadyExists, book.ISBN)
		}
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

// GetByID retrieves a book by ID, including its current borrower set.
func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	return r.getBy(ctx, "id", id, domain.ErrBookNotFound)
}

// GetByISBN retrieves a book by its catalog number.
func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return r.getBy(ctx, "isbn", isbn, domain.ErrBookNotFound)
}

func (r *bookRepository) getBy(ctx context.Context, column, value string, notFound error) (*domain.Book, error) {
	query := fmt.Sprintf(`
		SELECT id, title, author, isbn, published_date, total_copies, available_copies, genre
		FROM books
		WHERE %s = ?
	`, column)

	book := &domain.Book{}
	var publishedDate string

	err := r.db.q(ctx).QueryRowContext(ctx, query, value).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.ISBN,
		&publishedDate,
		&book.TotalCopies,
		&book.AvailableCopies,
		&book.Genre,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	book.PublishedDate, _ = time.Parse(time.RFC3339, publishedDate)

	borrowers, err := r.borrowers(ctx, book.ID)
	if err != nil {
		return nil, err
	}
	book.Borrowers = borrowers

	return book, nil
}

// borrowers loads the IDs of users currently holding a copy.
func (r *bookRepository) borrowers(ctx context.Context, bookID string) ([]string, error) {
	rows, err := r.db.q(ctx).QueryContext(ctx,
		`SELECT user_id FROM book_borrowers WHERE book_id = ?`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to load borrowers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan borrower: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating borrowers: %w", err)
	}

	return ids, nil
}

// List returns all books in the catalog.
func (r *bookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	query := `
		SELECT id, title, author, isbn, published_date, total_copies, available_copies, genre
		FROM books
		ORDER BY title
	`

	rows, err := r.db.q(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book := &domain.Book{}
		var publishedDate string

		err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Author,
			&book.ISBN,
			&publishedDate,
			&book.TotalCopies,
			&book.AvailableCopies,
			&book.Genre,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}

		book.PublishedDate, _ = time.Parse(time.RFC3339, publishedDate)
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}

// Update updates the book's catalog fields.
func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	query := `
		UPDATE books
		SET title = ?, author = ?, isbn = ?, published_date = ?, total_copies = ?, genre = ?
		WHERE id = ?
	`

	result, err := r.db.q(ctx).ExecContext(ctx, query,
		book.Title,
		book.Author,
		book.ISBN,
		book.PublishedDate.Format(time.RFC3339),
		book.TotalCopies,
		book.Genre,
		book.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: isbn %s", domain.ErrBookAlreadyExists, book.ISBN)
		}
		return fmt.Errorf("failed to update book: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// DecrementAvailable atomically takes one copy off the shelf.
// The WHERE clause makes the decrement conditional, so two concurrent
// borrows of the last copy cannot overdraw the counter.
func (r *bookRepository) DecrementAvailable(ctx context.Context, id string) error {
	result, err := r.db.q(ctx).ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1
		WHERE id = ? AND available_copies > 0
	`, id)
	if err != nil {
		return fmt.Errorf("failed to decrement available copies: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrNoCopiesAvailable
	}

	return nil
}

// IncrementAvailable atomically puts one copy back on the shelf.
func (r *bookRepository) IncrementAvailable(ctx context.Context, id string) error {
	result, err := r.db.q(ctx).ExecContext(ctx, `
		UPDATE books
		SET available_copies = available_copies + 1
		WHERE id = ? AND available_copies < total_copies
	`, id)
	if err != nil {
		return fmt.Errorf("failed to increment available copies: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrConflict
	}

	return nil
}

// AddBorrower records that the user currently holds a copy.
func (r *bookRepository) AddBorrower(ctx context.Context, bookID, userID string) error {
	_, err := r.db.q(ctx).ExecContext(ctx,
		`INSERT INTO book_borrowers (book_id, user_id) VALUES (?, ?)`, bookID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateBorrow
		}
		return fmt.Errorf("failed to add borrower: %w", err)
	}
	return nil
}

// RemoveBorrower removes the user from the book's borrower set.
func (r *bookRepository) RemoveBorrower(ctx context.Context, bookID, userID string) error {
	result, err := r.db.q(ctx).ExecContext(ctx,
		`DELETE FROM book_borrowers WHERE book_id = ? AND user_id = ?`, bookID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove borrower: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrNotBorrowed
	}

	return nil
}

// ExistsByISBN checks if a book with the given ISBN exists.
func (r *bookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var count int
	err := r.db.q(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE isbn = ?`, isbn).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check isbn existence: %w", err)
	}
	return count > 0, nil
}

// Ensure bookRepository implements repository.BookRepository.
var _ repository.BookRepository = (*bookRepository)(nil)
