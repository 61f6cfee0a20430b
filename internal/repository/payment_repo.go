// internal/repository/payment_repo.go
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cargopay/internal/domain"
)

// PaymentRepository defines the interface for payment data operations.
type PaymentRepository interface {
	// CreatePayment inserts a new payment attempt.
	CreatePayment(ctx context.Context, q DBExecutor, payment *domain.Payment) error
	// GetPaymentByID retrieves a payment by its id.
	GetPaymentByID(ctx context.Context, q DBExecutor, id string) (*domain.Payment, error)
	// GetPaymentByProviderOrderID resolves a payment from the gateway's order id.
	GetPaymentByProviderOrderID(ctx context.Context, q DBExecutor, orderID string) (*domain.Payment, error)
	// UpdatePayment writes back a mutated payment row.
	UpdatePayment(ctx context.Context, q DBExecutor, payment *domain.Payment) error
	// ListPaymentsByUserID retrieves a user's payments, newest first.
	ListPaymentsByUserID(ctx context.Context, q DBExecutor, userID int64, limit, offset int) ([]domain.Payment, int64, error)
	// ReserveRefund increments refunded_amount by amount and derives the
	// payment's refund status in a single conditional statement. The increment
	// only applies while refunded_amount + amount stays within the payment's
	// amount; when it does not, util.ErrRefundExceedsPayment is returned, so
	// two concurrent refunds over the same remainder cannot both settle.
	ReserveRefund(ctx context.Context, q DBExecutor, paymentID string, amount decimal.Decimal, reason string, now time.Time) error
	// ReleaseRefundReservation gives a reserved refund amount back to the
	// payment after a failed gateway refund, restoring the implied status.
	ReleaseRefundReservation(ctx context.Context, q DBExecutor, paymentID string, amount decimal.Decimal, now time.Time) error
	// CountAttempts counts payment attempts for a user against a shipment.
	CountAttempts(ctx context.Context, q DBExecutor, userID int64, shipmentID string) (int, error)
	// CancelExpired moves pending/processing payments whose expires_at has
	// passed to cancelled and returns how many rows changed. Idempotent.
	CancelExpired(ctx context.Context, q DBExecutor, now time.Time) (int64, error)
}
