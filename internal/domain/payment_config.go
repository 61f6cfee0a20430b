// internal/domain/payment_config.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CODParams drives the cash-on-delivery charge formula.
type CODParams struct {
	BaseCharge       decimal.Decimal `json:"base_charge"`
	PercentageCharge decimal.Decimal `json:"percentage_charge"` // Fraction, e.g. 0.02 for 2%
	MinimumCharge    decimal.Decimal `json:"minimum_charge"`
	MaximumCharge    decimal.Decimal `json:"maximum_charge"`
	FreeThreshold    decimal.Decimal `json:"free_threshold"` // Zero disables free COD
}

// PaymentConfig is the read-mostly payment configuration singleton, updated
// only by an admin action.
type PaymentConfig struct {
	Provider              string          `json:"provider"`
	FeePercentage         decimal.Decimal `json:"fee_percentage"` // Fraction, applied to gateway payments only
	TaxRate               decimal.Decimal `json:"tax_rate"`       // Fraction, 0.18 for INR
	MinPaymentAmount      decimal.Decimal `json:"min_payment_amount"`
	MaxPaymentAmount      decimal.Decimal `json:"max_payment_amount"`
	WalletBonusPercent    decimal.Decimal `json:"wallet_bonus_percent"` // Whole percent, e.g. 2 for 2%
	WalletMaxBalance      decimal.Decimal `json:"wallet_max_balance"`
	WalletDailyLimit      decimal.Decimal `json:"wallet_daily_limit"`
	COD                   CODParams       `json:"cod"`
	UPIEnabled            bool            `json:"upi_enabled"`
	CardsEnabled          bool            `json:"cards_enabled"`
	NetBankingEnabled     bool            `json:"net_banking_enabled"`
	EMIEnabled            bool            `json:"emi_enabled"`
	CODEnabled            bool            `json:"cod_enabled"`
	PaymentTimeoutMinutes int             `json:"payment_timeout_minutes"`
	MaxPaymentAttempts    int             `json:"max_payment_attempts"`
}

// MethodEnabled reports whether a method is currently accepted.
func (c *PaymentConfig) MethodEnabled(m PaymentMethod) bool {
	switch m {
	case MethodWallet:
		return true
	case MethodCOD:
		return c.CODEnabled
	case MethodUPI:
		return c.UPIEnabled
	case MethodCard:
		return c.CardsEnabled
	case MethodNetBanking:
		return c.NetBankingEnabled
	case MethodEMI:
		return c.EMIEnabled
	}
	return false
}

// PaymentTimeout returns the window a gateway payment remains actionable.
func (c *PaymentConfig) PaymentTimeout() time.Duration {
	return time.Duration(c.PaymentTimeoutMinutes) * time.Minute
}
