// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// WalletTransactionType defines the type of a ledger entry.
type WalletTransactionType string

const (
	WalletTxLoad       WalletTransactionType = "load"        // Credit from a top-up
	WalletTxDeduct     WalletTransactionType = "deduct"      // Debit for a payment
	WalletTxRefundLoad WalletTransactionType = "refund_load" // Credit from a refund
	WalletTxAdjustment WalletTransactionType = "adjustment"  // Manual admin credit
)

// WalletTransaction is an immutable ledger entry. Entries are append-only;
// replaying the signed amounts of all entries for a wallet must reconstruct
// its current balance.
type WalletTransaction struct {
	ID            string                `db:"id" json:"id"`                         // UUID primary key
	WalletID      int64                 `db:"wallet_id" json:"wallet_id"`
	UserID        int64                 `db:"user_id" json:"user_id"`
	Type          WalletTransactionType `db:"type" json:"type"`
	Amount        decimal.Decimal       `db:"amount" json:"amount"`                 // Positive magnitude; sign comes from Type
	BalanceBefore decimal.Decimal       `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal       `db:"balance_after" json:"balance_after"`
	ReferenceID   *string               `db:"reference_id" json:"reference_id"`     // Payment id this entry settles, if any
	Description   string                `db:"description" json:"description"`
	CreatedAt     time.Time             `db:"created_at" json:"created_at"`
}

// SignedAmount returns the amount with the sign implied by the entry type.
func (t *WalletTransaction) SignedAmount() decimal.Decimal {
	if t.Type == WalletTxDeduct {
		return t.Amount.Neg()
	}
	return t.Amount
}
