package postgres

import (
	"context"
	"fmt"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/repository"
)

// bookRepository implements repository.BookRepository for PostgreSQL.
type bookRepository struct {
	db *DB
}

// NewBookRepository creates a new PostgreSQL book repository.
func NewBookRepository(db *DB) repository.BookRepository {
	return &bookRepository{db: db}
}

// Create creates a new book.
func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	query := `
		INSERT INTO books (id, title, author, isbn, published_date, total_copies, available_copies, genre)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.q(ctx).Exec(ctx, query,
		book.ID,
		book.Title,
		book.Author,
		book.ISBN,
		book.PublishedDate,
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
	return r.getBy(ctx, "id", id)
}

// GetByISBN retrieves a book by its catalog number.
func (r *bookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	return r.getBy(ctx, "isbn", isbn)
}

func (r *bookRepository) getBy(ctx context.Context, column, value string) (*domain.Book, error) {
	query := fmt.Sprintf(`
		SELECT id, title, author, isbn, published_date, total_copies, available_copies, genre
		FROM books
		WHERE %s = $1
	`, column)

	book := &domain.Book{}
	err := r.db.q(ctx).QueryRow(ctx, query, value).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.ISBN,
		&book.PublishedDate,
		&book.TotalCopies,
		&book.AvailableCopies,
		&book.Genre,
	)

	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrBookNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	rows, err := r.db.q(ctx).Query(ctx,
		`SELECT user_id FROM book_borrowers WHERE book_id = $1`, book.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load borrowers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan borrower: %w", err)
		}
		book.Borrowers = append(book.Borrowers, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating borrowers: %w", err)
	}

	return book, nil
}

// List returns all books in the catalog.
func (r *bookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	rows, err := r.db.q(ctx).Query(ctx, `
		SELECT id, title, author, isbn, published_date, total_copies, available_copies, genre
		FROM books
		ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book := &domain.Book{}
		err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Author,
			&book.ISBN,
			&book.PublishedDate,
			&book.TotalCopies,
			&book.AvailableCopies,
			&book.Genre,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
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
		SET title = $1, author = $2, isbn = $3, published_date = $4, total_copies = $5, genre = $6
		WHERE id = $7
	`

	tag, err := r.db.q(ctx).Exec(ctx, query,
		book.Title,
		book.Author,
		book.ISBN,
		book.PublishedDate,
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

	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}

	return nil
}

// DecrementAvailable atomically takes one copy off the shelf.
func (r *bookRepository) DecrementAvailable(ctx context.Context, id string) error {
	tag, err := r.db.q(ctx).Exec(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1
		WHERE id = $1 AND available_copies > 0
	`, id)
	if err != nil {
		return fmt.Errorf("failed to decrement available copies: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNoCopiesAvailable
	}

	return nil
}

// IncrementAvailable atomically puts one copy back on the shelf.
func (r *bookRepository) IncrementAvailable(ctx context.Context, id string) error {
	tag, err := r.db.q(ctx).Exec(ctx, `
		UPDATE books
		SET available_copies = available_copies + 1
		WHERE id = $1 AND available_copies < total_copies
	`, id)
	if err != nil {
		return fmt.Errorf("failed to increment available copies: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}

	return nil
}

// AddBorrower records that the user currently holds a copy.
func (r *bookRepository) AddBorrower(ctx context.Context, bookID, userID string) error {
	_, err := r.db.q(ctx).Exec(ctx,
		`INSERT INTO book_borrowers (book_id, user_id) VALUES ($1, $2)`, bookID, userID)
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
	tag, err := r.db.q(ctx).Exec(ctx,
		`DELETE FROM book_borrowers WHERE book_id = $1 AND user_id = $2`, bookID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove borrower: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrNotBorrowed
	}

	return nil
}

// ExistsByISBN checks if a book with the given ISBN exists.
func (r *bookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var exists bool
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1)`, isbn).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check isbn existence: %w", err)
	}
	return exists, nil
}

// Ensure bookRepository implements repository.BookRepository.
var _ repository.BookRepository = (*bookRepository)(nil)
