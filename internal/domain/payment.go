// internal/domain/payment.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of supported payment methods.
type PaymentMethod string

const (
	MethodWallet     PaymentMethod = "WALLET"
	MethodCOD        PaymentMethod = "COD"
	MethodCard       PaymentMethod = "CARD"
	MethodUPI        PaymentMethod = "UPI"
	MethodNetBanking PaymentMethod = "NETBANKING"
	MethodEMI        PaymentMethod = "EMI"
)

// IsGateway reports whether the method settles through the external gateway.
func (m PaymentMethod) IsGateway() bool {
	switch m {
	case MethodCard, MethodUPI, MethodNetBanking, MethodEMI:
		return true
	}
	return false
}

// Valid reports whether m is one of the known methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodWallet, MethodCOD, MethodCard, MethodUPI, MethodNetBanking, MethodEMI:
		return true
	}
	return false
}

// PaymentStatus defines the lifecycle state of a payment attempt.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentProcessing        PaymentStatus = "processing"
	PaymentCompleted         PaymentStatus = "completed"
	PaymentFailed            PaymentStatus = "failed"
	PaymentCancelled         PaymentStatus = "cancelled"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// paymentTransitions is the single authority on legal status changes.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:           {PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentCancelled},
	PaymentProcessing:        {PaymentCompleted, PaymentFailed, PaymentCancelled},
	PaymentCompleted:         {PaymentRefunded, PaymentPartiallyRefunded},
	PaymentPartiallyRefunded: {PaymentRefunded, PaymentPartiallyRefunded},
}

// CanTransition reports whether a payment may move from one status to another.
func CanTransition(from, to PaymentStatus) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PaymentPurpose records what a payment pays for.
type PaymentPurpose string

const (
	PurposeShipment   PaymentPurpose = "shipment"
	PurposeWalletLoad PaymentPurpose = "wallet_load"
)

// Payment is one payment attempt. It is created on CreatePayment and mutated
// only by its owning subsystem: the wallet ledger for wallet payments, the
// webhook reconciler for gateway payments, the refund orchestrator for
// refunds. Never deleted.
type Payment struct {
	ID                string          `db:"id" json:"id"` // UUID primary key
	UserID            int64           `db:"user_id" json:"user_id"`
	Amount            decimal.Decimal `db:"amount" json:"amount"` // Base amount, before fee/tax
	Currency          string          `db:"currency" json:"currency"`
	Provider          string          `db:"provider" json:"provider"` // Gateway name, "wallet" or "cod"
	Method            PaymentMethod   `db:"method" json:"method"`
	Status            PaymentStatus   `db:"status" json:"status"`
	ProviderOrderID   *string         `db:"provider_order_id" json:"provider_order_id"`
	ProviderPaymentID *string         `db:"provider_payment_id" json:"provider_payment_id"`
	ProviderSignature *string         `db:"provider_signature" json:"-"`
	Purpose           PaymentPurpose  `db:"purpose" json:"purpose"`
	ShipmentID        *string         `db:"shipment_id" json:"shipment_id"`
	GatewayFee        decimal.Decimal `db:"gateway_fee" json:"gateway_fee"`
	TaxAmount         decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	TotalAmount       decimal.Decimal `db:"total_amount" json:"total_amount"`
	RefundedAmount    decimal.Decimal `db:"refunded_amount" json:"refunded_amount"`
	RefundReason      *string         `db:"refund_reason" json:"refund_reason"`
	FailureReason     *string         `db:"failure_reason" json:"failure_reason"`
	Attempts          int             `db:"attempts" json:"attempts"`
	ExpiresAt         *time.Time      `db:"expires_at" json:"expires_at"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Refundable reports whether the payment can accept a new refund request.
func (p *Payment) Refundable() bool {
	return p.Status == PaymentCompleted || p.Status == PaymentPartiallyRefunded
}

// RemainingRefundable is the amount still available to refund.
func (p *Payment) RemainingRefundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}

// RefundStatus is the lifecycle state of a refund.
type RefundStatus string

const (
	RefundProcessing RefundStatus = "processing" // Awaiting gateway confirmation
	RefundCompleted  RefundStatus = "completed"
	RefundFailed     RefundStatus = "failed"
)

// Refund records one refund against a payment.
type Refund struct {
	ID               string          `db:"id" json:"id"` // UUID primary key
	PaymentID        string          `db:"payment_id" json:"payment_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Reason           string          `db:"reason" json:"reason"`
	Status           RefundStatus    `db:"status" json:"status"`
	ProviderRefundID *string         `db:"provider_refund_id" json:"provider_refund_id"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// RefundRequest is the command accepted by the refund orchestrator.
type RefundRequest struct {
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// RefundResponse reports the outcome of a refund request.
type RefundResponse struct {
	RefundID      string          `json:"refund_id"`
	PaymentID     string          `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        RefundStatus    `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}
