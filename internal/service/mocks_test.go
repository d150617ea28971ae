package service

import (
	"context"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/repository"
)

// MockBookRepository is a mock implementation of repository.BookRepository.
// When users is set, borrower links are mirrored into each user's
// BorrowedBooks set, matching what the real backends derive from the
// book_borrowers table.
type MockBookRepository struct {
	books     map[string]*domain.Book
	users     *MockUserRepository
	createErr error
	getErr    error
}

func NewMockBookRepository() *MockBookRepository {
	return &MockBookRepository{books: make(map[string]*domain.Book)}
}

func (m *MockBookRepository) Create(ctx context.Context, book *domain.Book) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, b := range m.books {
		if b.ISBN == book.ISBN {
			return domain.ErrBookAlreadyExists
		}
	}
	m.books[book.ID] = book
	return nil
}

func (m *MockBookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if b, exists := m.books[id]; exists {
		return b, nil
	}
	return nil, domain.ErrBookNotFound
}

func (m *MockBookRepository) GetByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	for _, b := range m.books {
		if b.ISBN == isbn {
			return b, nil
		}
	}
	return nil, domain.ErrBookNotFound
}

func (m *MockBookRepository) List(ctx context.Context) ([]*domain.Book, error) {
	var result []*domain.Book
	for _, b := range m.books {
		result = append(result, b)
	}
	return result, nil
}

func (m *MockBookRepository) Update(ctx context.Context, book *domain.Book) error {
	if _, exists := m.books[book.ID]; !exists {
		return domain.ErrBookNotFound
	}
	m.books[book.ID] = book
	return nil
}

func (m *MockBookRepository) DecrementAvailable(ctx context.Context, id string) error {
	b, exists := m.books[id]
	if !exists || b.AvailableCopies < 1 {
		return domain.ErrNoCopiesAvailable
	}
	b.AvailableCopies--
	return nil
}

func (m *MockBookRepository) IncrementAvailable(ctx context.Context, id string) error {
	b, exists := m.books[id]
	if !exists || b.AvailableCopies >= b.TotalCopies {
		return domain.ErrConflict
	}
	b.AvailableCopies++
	return nil
}

func (m *MockBookRepository) AddBorrower(ctx context.Context, bookID, userID string) error {
	b, exists := m.books[bookID]
	if !exists {
		return domain.ErrBookNotFound
	}
	if b.IsBorrowedBy(userID) {
		return domain.ErrDuplicateBorrow
	}
	b.Borrowers = append(b.Borrowers, userID)
	if m.users != nil {
		if u, exists := m.users.users[userID]; exists {
			u.BorrowedBooks = append(u.BorrowedBooks, bookID)
		}
	}
	return nil
}

func (m *MockBookRepository) RemoveBorrower(ctx context.Context, bookID, userID string) error {
	b, exists := m.books[bookID]
	if !exists {
		return domain.ErrBookNotFound
	}
	for i, id := range b.Borrowers {
		if id == userID {
			b.Borrowers = append(b.Borrowers[:i], b.Borrowers[i+1:]...)
			if m.users != nil {
				if u, exists := m.users.users[userID]; exists {
					for j, bid := range u.BorrowedBooks {
						if bid == bookID {
							u.BorrowedBooks = append(u.BorrowedBooks[:j], u.BorrowedBooks[j+1:]...)
							break
						}
					}
				}
			}
			return nil
		}
	}
	return domain.ErrNotBorrowed
}

func (m *MockBookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	for _, b := range m.books {
		if b.ISBN == isbn {
			return true, nil
		}
	}
	return false, nil
}

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	users     map[string]*domain.User
	createErr error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, exists := m.users[id]; exists {
		return u, nil
	}
	return nil, domain.ErrBorrowerNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrBorrowerNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrBorrowerNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.ID]; !exists {
		return domain.ErrBorrowerNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) ListBorrowers(ctx context.Context) ([]*domain.User, error) {
	var result []*domain.User
	for _, u := range m.users {
		if u.Role != domain.RoleAdmin {
			result = append(result, u)
		}
	}
	return result, nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// MockTransactionRepository is a mock implementation of
// repository.TransactionRepository.
type MockTransactionRepository struct {
	txns      map[string]*domain.Transaction
	order     []string
	createErr error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{txns: make(map[string]*domain.Transaction)}
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, t := range m.txns {
		if t.UserID == txn.UserID && t.BookID == txn.BookID && t.Status == domain.StatusActive {
			return domain.ErrDuplicateBorrow
		}
	}
	m.txns[txn.ID] = txn
	m.order = append(m.order, txn.ID)
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if t, exists := m.txns[id]; exists {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) FindActive(ctx context.Context, userID, bookID string) (*domain.Transaction, error) {
	for _, t := range m.txns {
		if t.UserID == userID && t.BookID == bookID &&
			t.Type == domain.TransactionBorrow && t.Status == domain.StatusActive {
			return t, nil
		}
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) List(ctx context.Context, filter repository.TransactionFilter) ([]*domain.Transaction, error) {
	var result []*domain.Transaction
	// Newest first.
	for i := len(m.order) - 1; i >= 0; i-- {
		t := m.txns[m.order[i]]
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if filter.BookID != "" && t.BookID != filter.BookID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (m *MockTransactionRepository) Update(ctx context.Context, txn *domain.Transaction) error {
	if _, exists := m.txns[txn.ID]; !exists {
		return domain.ErrTransactionNotFound
	}
	m.txns[txn.ID] = txn
	return nil
}

func (m *MockTransactionRepository) CountActiveByBook(ctx context.Context, bookID string) (int64, error) {
	var count int64
	for _, t := range m.txns {
		if t.BookID == bookID && t.Status == domain.StatusActive {
			count++
		}
	}
	return count, nil
}

// mockTxManager runs the function directly; the mocks have no real
// transactions to coordinate.
type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// newMockRepositories bundles fresh mocks.
func newMockRepositories() (*repository.Repositories, *MockBookRepository, *MockUserRepository, *MockTransactionRepository) {
	books := NewMockBookRepository()
	users := NewMockUserRepository()
	books.users = users
	txns := NewMockTransactionRepository()
	repos := &repository.Repositories{
		Books:        books,
		Users:        users,
		Transactions: txns,
		Tx:           mockTxManager{},
	}
	return repos, books, users, txns
}
