package postgres

import (
	"github.com/bodleian-io/bodleian/internal/repository"
)

// NewRepositories bundles all PostgreSQL repositories over one pool.
func NewRepositories(db *DB) *repository.Repositories {
	return &repository.Repositories{
		Books:        NewBookRepository(db),
		Users:        NewUserRepository(db),
		Transactions: NewTransactionRepository(db),
		Tx:           db,
	}
}

// Ensure DB implements repository.TxManager.
var _ repository.TxManager = (*DB)(nil)
