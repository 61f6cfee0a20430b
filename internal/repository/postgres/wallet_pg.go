// internal/repository/postgres/wallet_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"cargopay/internal/domain"
	"cargopay/internal/repository"
	"cargopay/internal/util"
)

// WalletRepository implements repository.WalletRepository for PostgreSQL.
type WalletRepository struct{}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db *sqlx.DB) repository.WalletRepository {
	return &WalletRepository{}
}

// CreateWallet inserts a new wallet using the provided DBExecutor.
func (r *WalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	query := `INSERT INTO wallets (user_id, currency, balance, max_balance, daily_limit, daily_used, daily_reset_at,
                                   is_active, is_frozen, last_transaction_at, version, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		wallet.UserID, wallet.Currency, wallet.Balance, wallet.MaxBalance, wallet.DailyLimit,
		wallet.DailyUsed, wallet.DailyResetAt, wallet.IsActive, wallet.IsFrozen,
		wallet.LastTransactionAt, wallet.CreatedAt, wallet.UpdatedAt,
	).Scan(&wallet.ID)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// GetWalletByUserID retrieves the wallet owned by a user.
func (r *WalletRepository) GetWalletByUserID(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT id, user_id, currency, balance, max_balance, daily_limit, daily_used, daily_reset_at,
                     is_active, is_frozen, last_transaction_at, version, created_at, updated_at
              FROM wallets WHERE user_id = $1`
	err := q.GetContext(ctx, &wallet, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wallet for user %d: %w", userID, err)
	}
	return &wallet, nil
}

// UpdateWalletCAS writes the wallet back conditioned on the version it was
// read at. Zero rows affected means another writer won the race; the caller
// re-reads and retries.
func (r *WalletRepository) UpdateWalletCAS(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet, expectedVersion int64) error {
	query := `UPDATE wallets
              SET balance = $1, daily_used = $2, daily_reset_at = $3, last_transaction_at = $4,
                  updated_at = $5, version = version + 1
              WHERE id = $6 AND version = $7`
	result, err := q.ExecContext(ctx, query,
		wallet.Balance, wallet.DailyUsed, wallet.DailyResetAt, wallet.LastTransactionAt,
		wallet.UpdatedAt, wallet.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet %d: %w", wallet.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for wallet %d: %w", wallet.ID, err)
	}
	if rowsAffected == 0 {
		return util.ErrConcurrentUpdate
	}
	wallet.Version = expectedVersion + 1
	return nil
}

// SetFrozen flips the frozen flag for a user's wallet.
func (r *WalletRepository) SetFrozen(ctx context.Context, q repository.DBExecutor, userID int64, frozen bool) error {
	query := `UPDATE wallets SET is_frozen = $1, updated_at = NOW() WHERE user_id = $2`
	result, err := q.ExecContext(ctx, query, frozen, userID)
	if err != nil {
		return fmt.Errorf("failed to set frozen for user %d: %w", userID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for user %d: %w", userID, err)
	}
	if rowsAffected == 0 {
		return util.ErrWalletNotFound
	}
	return nil
}
