// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"cargopay/internal/domain"
	"cargopay/internal/repository"
)

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct{}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) repository.TransactionRepository {
	return &TransactionRepository{}
}

// CreateTransaction appends a new ledger entry using the provided DBExecutor.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, tx *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (id, wallet_id, user_id, type, amount, balance_before, balance_after,
                                               reference_id, description, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := q.ExecContext(ctx, query,
		tx.ID, tx.WalletID, tx.UserID, tx.Type, tx.Amount, tx.BalanceBefore, tx.BalanceAfter,
		tx.ReferenceID, tx.Description, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create wallet transaction: %w", err)
	}
	return nil
}

// GetTransactionsByUserID retrieves a paginated, time-bounded list of ledger
// entries for a user, newest first, together with the total count.
func (r *TransactionRepository) GetTransactionsByUserID(ctx context.Context, q repository.DBExecutor, userID int64, from, to time.Time, limit, offset int) ([]domain.WalletTransaction, int64, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}

	transactions := []domain.WalletTransaction{}
	query := `
		SELECT id, wallet_id, user_id, type, amount, balance_before, balance_after, reference_id, description, created_at
		FROM wallet_transactions
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`
	if err := q.SelectContext(ctx, &transactions, query, userID, from, to, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions for user %d: %w", userID, err)
	}

	var totalCount int64
	countQuery := `
		SELECT COUNT(*)
		FROM wallet_transactions
		WHERE user_id = $1 AND created_at >= $2 AND created_at <= $3`
	if err := q.GetContext(ctx, &totalCount, countQuery, userID, from, to); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions for user %d: %w", userID, err)
	}

	return transactions, totalCount, nil
}
