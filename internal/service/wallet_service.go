// internal/service/wallet_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cargopay/internal/domain"
	"cargopay/internal/metrics"
	"cargopay/internal/repository"
	"cargopay/internal/util"
	"cargopay/pkg/db"
)

// casRetryAttempts bounds the read-compute-write retry loop on version
// conflicts.
const casRetryAttempts = 3

// SettleFunc runs caller-side writes inside the wallet's ledger transaction.
// The executor it receives is the same transaction the balance mutation and
// ledger entry run on.
type SettleFunc func(ctx context.Context, q repository.DBExecutor) error

// WalletLimits seeds new wallets created lazily on first use.
type WalletLimits struct {
	Currency   string
	MaxBalance decimal.Decimal
	DailyLimit decimal.Decimal
}

// WalletService is the wallet ledger: balance state plus an append-only
// transaction log. It is the sole owner of wallet and ledger records; no
// other component mutates balance fields.
type WalletService interface {
	// Credit adds funds. txType distinguishes top-ups, refund credits and
	// admin adjustments in the ledger.
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, txType domain.WalletTransactionType, referenceID *string, description string) (*domain.Wallet, *domain.WalletTransaction, error)
	// CreditTx behaves like Credit and additionally runs settle inside the
	// same database transaction as the balance write and ledger entry, so the
	// caller's rows commit or roll back with the ledger.
	CreditTx(ctx context.Context, userID int64, amount decimal.Decimal, txType domain.WalletTransactionType, referenceID *string, description string, settle SettleFunc) (*domain.Wallet, *domain.WalletTransaction, error)
	// Debit removes funds, enforcing balance and daily-limit invariants.
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, referenceID *string, description string) (*domain.Wallet, *domain.WalletTransaction, error)
	// DebitTx is Debit with a settle hook in the same transaction.
	DebitTx(ctx context.Context, userID int64, amount decimal.Decimal, referenceID *string, description string, settle SettleFunc) (*domain.Wallet, *domain.WalletTransaction, error)
	// GetWallet returns the user's wallet, creating it on first use.
	GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	// GetStatement returns ledger entries for a user within a time range.
	GetStatement(ctx context.Context, userID int64, from, to time.Time, limit, offset int) ([]domain.WalletTransaction, int64, error)
	// SetFrozen freezes or unfreezes a wallet (admin action).
	SetFrozen(ctx context.Context, userID int64, frozen bool) error
}

type walletService struct {
	dbBeginner      db.DBTxBeginner
	dbExecutor      repository.DBExecutor
	walletRepo      repository.WalletRepository
	transactionRepo repository.TransactionRepository
	limits          WalletLimits
	metrics         *metrics.Metrics
	logger          *slog.Logger
	beginTx         db.BeginTxFunc
	commitTx        db.CommitTxFunc
	rollbackTx      db.RollbackTxFunc
}

// NewWalletService creates a new instance of WalletService.
func NewWalletService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	limits WalletLimits,
	m *metrics.Metrics,
	logger *slog.Logger,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
) WalletService {
	return &walletService{
		dbBeginner:      dbBeginner,
		dbExecutor:      dbExecutor,
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		limits:          limits,
		metrics:         m,
		logger:          logger,
		beginTx:         beginTx,
		commitTx:        commitTx,
		rollbackTx:      rollbackTx,
	}
}

// Credit adds funds to a user's wallet.
func (s *walletService) Credit(ctx context.Context, userID int64, amount decimal.Decimal, txType domain.WalletTransactionType, referenceID *string, description string) (*domain.Wallet, *domain.WalletTransaction, error) {
	return s.CreditTx(ctx, userID, amount, txType, referenceID, description, nil)
}

// CreditTx adds funds and runs settle in the same database transaction.
func (s *walletService) CreditTx(ctx context.Context, userID int64, amount decimal.Decimal, txType domain.WalletTransactionType, referenceID *string, description string, settle SettleFunc) (*domain.Wallet, *domain.WalletTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, util.ErrInvalidInput
	}
	if txType == domain.WalletTxDeduct {
		return nil, nil, util.ErrInvalidInput
	}
	return s.applyWithRetry(ctx, userID, func(w *domain.Wallet, now time.Time) (*domain.WalletTransaction, error) {
		if w.Balance.Add(amount).GreaterThan(w.MaxBalance) {
			return nil, util.ErrMaxBalanceExceeded
		}
		before := w.Balance
		w.Balance = w.Balance.Add(amount)
		return newLedgerEntry(w, userID, txType, amount, before, referenceID, description, now), nil
	}, settle)
}

// Debit removes funds from a user's wallet. Insufficient balance and the
// daily cap are distinct failures so callers can react differently.
func (s *walletService) Debit(ctx context.Context, userID int64, amount decimal.Decimal, referenceID *string, description string) (*domain.Wallet, *domain.WalletTransaction, error) {
	return s.DebitTx(ctx, userID, amount, referenceID, description, nil)
}

// DebitTx removes funds and runs settle in the same database transaction.
func (s *walletService) DebitTx(ctx context.Context, userID int64, amount decimal.Decimal, referenceID *string, description string, settle SettleFunc) (*domain.Wallet, *domain.WalletTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, nil, util.ErrInvalidInput
	}
	return s.applyWithRetry(ctx, userID, func(w *domain.Wallet, now time.Time) (*domain.WalletTransaction, error) {
		if w.Balance.LessThan(amount) {
			return nil, util.ErrInsufficientFunds
		}
		if w.DailyUsed.Add(amount).GreaterThan(w.DailyLimit) {
			return nil, util.ErrDailyLimitExceeded
		}
		before := w.Balance
		w.Balance = w.Balance.Sub(amount)
		w.DailyUsed = w.DailyUsed.Add(amount)
		return newLedgerEntry(w, userID, domain.WalletTxDeduct, amount, before, referenceID, description, now), nil
	}, settle)
}

// applyWithRetry runs one read-compute-write cycle per attempt. The balance
// mutation and its ledger entry commit in the same database transaction, and
// the write is conditioned on the version the wallet was read at; a conflict
// restarts the whole cycle with fresh state.
func (s *walletService) applyWithRetry(ctx context.Context, userID int64, mutate func(w *domain.Wallet, now time.Time) (*domain.WalletTransaction, error), settle SettleFunc) (*domain.Wallet, *domain.WalletTransaction, error) {
	var lastErr error
	for attempt := 0; attempt < casRetryAttempts; attempt++ {
		wallet, entry, err := s.applyOnce(ctx, userID, mutate, settle)
		if err == nil {
			return wallet, entry, nil
		}
		if !errors.Is(err, util.ErrConcurrentUpdate) {
			return nil, nil, err
		}
		s.metrics.WalletConflicts.Inc()
		lastErr = err
	}
	return nil, nil, fmt.Errorf("wallet update for user %d: %w", userID, lastErr)
}

func (s *walletService) applyOnce(ctx context.Context, userID int64, mutate func(w *domain.Wallet, now time.Time) (*domain.WalletTransaction, error), settle SettleFunc) (*domain.Wallet, *domain.WalletTransaction, error) {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("wallet: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("wallet: transaction controller does not implement DBExecutor")
	}

	wallet, err := s.getOrCreateWallet(ctx, txExecutor, userID)
	if err != nil {
		return nil, nil, err
	}
	if !wallet.IsActive {
		return nil, nil, util.ErrWalletInactive
	}
	if wallet.IsFrozen {
		return nil, nil, util.ErrWalletFrozen
	}

	now := time.Now().UTC()
	wallet.ResetDailyWindowIfDue(now)

	entry, err := mutate(wallet, now)
	if err != nil {
		return nil, nil, err
	}

	expectedVersion := wallet.Version
	wallet.LastTransactionAt = &now
	wallet.UpdatedAt = now
	if err := s.walletRepo.UpdateWalletCAS(ctx, txExecutor, wallet, expectedVersion); err != nil {
		return nil, nil, err
	}
	if err := s.transactionRepo.CreateTransaction(ctx, txExecutor, entry); err != nil {
		return nil, nil, fmt.Errorf("wallet: failed to create ledger entry: %w", err)
	}
	if settle != nil {
		if err := settle(ctx, txExecutor); err != nil {
			return nil, nil, err
		}
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("wallet: failed to commit transaction: %w", err)
	}
	return wallet, entry, nil
}

// getOrCreateWallet loads the user's wallet, creating it lazily on first use.
// A creation race on the unique user_id index surfaces as a conflict so the
// caller's retry loop re-reads the winner's row.
func (s *walletService) getOrCreateWallet(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetWalletByUserID(ctx, q, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}

	wallet = domain.NewWallet(userID, s.limits.Currency, s.limits.MaxBalance, s.limits.DailyLimit)
	if err := s.walletRepo.CreateWallet(ctx, q, wallet); err != nil {
		s.logger.Warn("wallet lazy-create lost a race", "user_id", userID, "error", err)
		return nil, util.ErrConcurrentUpdate
	}
	return wallet, nil
}

// GetWallet returns the user's wallet, creating it lazily on first use.
func (s *walletService) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	wallet = domain.NewWallet(userID, s.limits.Currency, s.limits.MaxBalance, s.limits.DailyLimit)
	if err := s.walletRepo.CreateWallet(ctx, s.dbExecutor, wallet); err != nil {
		// Lost a creation race; the winner's row is authoritative.
		winner, readErr := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID)
		if readErr != nil {
			return nil, fmt.Errorf("get wallet: lazy create: %w", err)
		}
		return winner, nil
	}
	return wallet, nil
}

// GetStatement returns ledger entries for a user within a time range.
func (s *walletService) GetStatement(ctx context.Context, userID int64, from, to time.Time, limit, offset int) ([]domain.WalletTransaction, int64, error) {
	transactions, totalCount, err := s.transactionRepo.GetTransactionsByUserID(ctx, s.dbExecutor, userID, from, to, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("get statement: %w", err)
	}
	return transactions, totalCount, nil
}

// SetFrozen freezes or unfreezes a wallet.
func (s *walletService) SetFrozen(ctx context.Context, userID int64, frozen bool) error {
	if err := s.walletRepo.SetFrozen(ctx, s.dbExecutor, userID, frozen); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return util.ErrWalletNotFound
		}
		return fmt.Errorf("set frozen: %w", err)
	}
	s.logger.Info("wallet frozen flag changed", "user_id", userID, "frozen", frozen)
	return nil
}

func newLedgerEntry(w *domain.Wallet, userID int64, txType domain.WalletTransactionType, amount, before decimal.Decimal, referenceID *string, description string, now time.Time) *domain.WalletTransaction {
	return &domain.WalletTransaction{
		ID:            uuid.NewString(),
		WalletID:      w.ID,
		UserID:        userID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		ReferenceID:   referenceID,
		Description:   description,
		CreatedAt:     now,
	}
}
