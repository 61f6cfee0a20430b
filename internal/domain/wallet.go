// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// Wallet is a per-user stored-value balance. Wallets are created lazily on
// the first wallet operation for a user and are never deleted, only
// deactivated or frozen.
type Wallet struct {
	ID                int64           `db:"id" json:"id"`                                   // Primary key, BIGSERIAL in DB
	UserID            int64           `db:"user_id" json:"user_id"`                         // External user identifier, one wallet per user
	Currency          string          `db:"currency" json:"currency"`                       // e.g. "INR"
	Balance           decimal.Decimal `db:"balance" json:"balance"`                         // Current balance, NUMERIC(20, 2) in DB
	MaxBalance        decimal.Decimal `db:"max_balance" json:"max_balance"`                 // Upper bound on balance
	DailyLimit        decimal.Decimal `db:"daily_limit" json:"daily_limit"`                 // Maximum total debits per daily window
	DailyUsed         decimal.Decimal `db:"daily_used" json:"daily_used"`                   // Debits accumulated in the current window
	DailyResetAt      time.Time       `db:"daily_reset_at" json:"daily_reset_at"`           // Next daily-window boundary
	IsActive          bool            `db:"is_active" json:"is_active"`
	IsFrozen          bool            `db:"is_frozen" json:"is_frozen"`
	LastTransactionAt *time.Time      `db:"last_transaction_at" json:"last_transaction_at"` // Nil until the first transaction
	Version           int64           `db:"version" json:"-"`                               // Optimistic-concurrency counter
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// NewWallet creates a new Wallet for a user with the given limits.
func NewWallet(userID int64, currency string, maxBalance, dailyLimit decimal.Decimal) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		UserID:       userID,
		Currency:     currency,
		Balance:      decimal.Zero,
		MaxBalance:   maxBalance,
		DailyLimit:   dailyLimit,
		DailyUsed:    decimal.Zero,
		DailyResetAt: NextDailyReset(now),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NextDailyReset returns the next local-day boundary after t.
func NextDailyReset(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

// ResetDailyWindowIfDue zeroes daily_used once now has crossed the reset
// boundary. Must be applied before any daily-limit check.
func (w *Wallet) ResetDailyWindowIfDue(now time.Time) {
	if !now.Before(w.DailyResetAt) {
		w.DailyUsed = decimal.Zero
		w.DailyResetAt = NextDailyReset(now)
	}
}
