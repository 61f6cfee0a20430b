// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"cargopay/internal/domain"
)

// WalletRepository defines the interface for wallet data operations.
type WalletRepository interface {
	// CreateWallet adds a new wallet using the provided DBExecutor.
	CreateWallet(ctx context.Context, q DBExecutor, wallet *domain.Wallet) error
	// GetWalletByUserID retrieves the wallet owned by a user.
	GetWalletByUserID(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// UpdateWalletCAS writes the mutated wallet back conditioned on the
	// version the wallet was read at. Returns util.ErrConcurrentUpdate when
	// another writer got there first; callers retry the read-compute-write
	// cycle.
	UpdateWalletCAS(ctx context.Context, q DBExecutor, wallet *domain.Wallet, expectedVersion int64) error
	// SetFrozen flips the frozen flag for a user's wallet.
	SetFrozen(ctx context.Context, q DBExecutor, userID int64, frozen bool) error
}
