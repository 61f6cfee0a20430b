// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"time"

	"cargopay/internal/domain"
)

// TransactionRepository defines the interface for wallet ledger entries.
// Entries are append-only; there is no update or delete.
type TransactionRepository interface {
	// CreateTransaction appends a new ledger entry using the provided DBExecutor.
	CreateTransaction(ctx context.Context, q DBExecutor, tx *domain.WalletTransaction) error
	// GetTransactionsByUserID retrieves a user's ledger entries within a time
	// range, newest first, with the total count for pagination. Zero from/to
	// disable the corresponding bound.
	GetTransactionsByUserID(ctx context.Context, q DBExecutor, userID int64, from, to time.Time, limit, offset int) ([]domain.WalletTransaction, int64, error)
}
