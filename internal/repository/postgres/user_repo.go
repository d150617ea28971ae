package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/repository"
)

// userRepository implements repository.UserRepository for PostgreSQL.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, email, phone, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.q(ctx).Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		nullString(user.Phone),
		user.PasswordHash,
		string(user.Role),
		user.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s", domain.ErrUserAlreadyExists, user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID, including their borrowed-book set.
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByUsername retrieves a user by username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username", username)
}

// GetByEmail retrieves a user by email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *userRepository) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, email, phone, password_hash, role, created_at
		FROM users
		WHERE %s = $1
	`, column)

	user, err := scanUser(r.db.q(ctx).QueryRow(ctx, query, value))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrBorrowerNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	borrowed, err := r.borrowedBooks(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.BorrowedBooks = borrowed

	return user, nil
}

// borrowedBooks loads the IDs of books the user currently holds.
func (r *userRepository) borrowedBooks(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.q(ctx).Query(ctx,
		`SELECT book_id FROM book_borrowers WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load borrowed books: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan borrowed book: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating borrowed books: %w", err)
	}

	return ids, nil
}

// Update updates an existing user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, phone = $3, password_hash = $4, role = $5
		WHERE id = $6
	`

	tag, err := r.db.q(ctx).Exec(ctx, query,
		user.Username,
		user.Email,
		nullString(user.Phone),
		user.PasswordHash,
		string(user.Role),
		user.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email %s", domain.ErrUserAlreadyExists, user.Email)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBorrowerNotFound
	}

	return nil
}

// ListBorrowers returns all users without the admin role.
func (r *userRepository) ListBorrowers(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT id, username, email, phone, password_hash, role, created_at
		FROM users
		WHERE role != $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.q(ctx).Query(ctx, query, string(domain.RoleAdmin))
	if err != nil {
		return nil, fmt.Errorf("failed to list borrowers: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// ExistsByEmail checks if a user with the given email exists.
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUser reads one user row.
func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var phone sql.NullString
	var role string

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&phone,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if phone.Valid {
		user.Phone = phone.String
	}
	user.Role = domain.Role(role)

	return user, nil
}

// nullString maps "" to NULL for optional columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
