// internal/repository/postgres/payment_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"cargopay/internal/domain"
	"cargopay/internal/repository"
	"cargopay/internal/util"
)

const paymentColumns = `id, user_id, amount, currency, provider, method, status, provider_order_id,
                        provider_payment_id, provider_signature, purpose, shipment_id, gateway_fee,
                        tax_amount, total_amount, refunded_amount, refund_reason, failure_reason,
                        attempts, expires_at, created_at, updated_at`

// PaymentRepository implements repository.PaymentRepository for PostgreSQL.
type PaymentRepository struct{}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &PaymentRepository{}
}

// CreatePayment inserts a new payment attempt.
func (r *PaymentRepository) CreatePayment(ctx context.Context, q repository.DBExecutor, p *domain.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`
	_, err := q.ExecContext(ctx, query,
		p.ID, p.UserID, p.Amount, p.Currency, p.Provider, p.Method, p.Status, p.ProviderOrderID,
		p.ProviderPaymentID, p.ProviderSignature, p.Purpose, p.ShipmentID, p.GatewayFee,
		p.TaxAmount, p.TotalAmount, p.RefundedAmount, p.RefundReason, p.FailureReason,
		p.Attempts, p.ExpiresAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPaymentByID retrieves a payment by its id.
func (r *PaymentRepository) GetPaymentByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Payment, error) {
	var p domain.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	if err := q.GetContext(ctx, &p, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment %s: %w", id, err)
	}
	return &p, nil
}

// GetPaymentByProviderOrderID resolves a payment from the gateway's order id.
func (r *PaymentRepository) GetPaymentByProviderOrderID(ctx context.Context, q repository.DBExecutor, orderID string) (*domain.Payment, error) {
	var p domain.Payment
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_order_id = $1`
	if err := q.GetContext(ctx, &p, query, orderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment by order %s: %w", orderID, err)
	}
	return &p, nil
}

// UpdatePayment writes back a mutated payment row.
func (r *PaymentRepository) UpdatePayment(ctx context.Context, q repository.DBExecutor, p *domain.Payment) error {
	query := `UPDATE payments
              SET status = $1, provider_order_id = $2, provider_payment_id = $3, provider_signature = $4,
                  refunded_amount = $5, refund_reason = $6, failure_reason = $7, attempts = $8,
                  expires_at = $9, updated_at = $10
              WHERE id = $11`
	result, err := q.ExecContext(ctx, query,
		p.Status, p.ProviderOrderID, p.ProviderPaymentID, p.ProviderSignature,
		p.RefundedAmount, p.RefundReason, p.FailureReason, p.Attempts,
		p.ExpiresAt, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment %s: %w", p.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for payment %s: %w", p.ID, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

// ListPaymentsByUserID retrieves a user's payments, newest first.
func (r *PaymentRepository) ListPaymentsByUserID(ctx context.Context, q repository.DBExecutor, userID int64, limit, offset int) ([]domain.Payment, int64, error) {
	payments := []domain.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &payments, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list payments for user %d: %w", userID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM payments WHERE user_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments for user %d: %w", userID, err)
	}
	return payments, totalCount, nil
}

// ReserveRefund conditionally increments refunded_amount. The guard in the
// WHERE clause makes concurrent refunds serialize on the row: a stale reader
// whose increment would overdraw the payment matches zero rows.
func (r *PaymentRepository) ReserveRefund(ctx context.Context, q repository.DBExecutor, paymentID string, amount decimal.Decimal, reason string, now time.Time) error {
	query := `UPDATE payments
              SET refunded_amount = refunded_amount + $1,
                  status = CASE WHEN refunded_amount + $1 >= amount THEN $2 ELSE $3 END,
                  refund_reason = $4, updated_at = $5
              WHERE id = $6 AND refunded_amount + $1 <= amount AND status IN ($7, $8)`
	result, err := q.ExecContext(ctx, query,
		amount, domain.PaymentRefunded, domain.PaymentPartiallyRefunded,
		reason, now, paymentID, domain.PaymentCompleted, domain.PaymentPartiallyRefunded,
	)
	if err != nil {
		return fmt.Errorf("failed to reserve refund on payment %s: %w", paymentID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for payment %s: %w", paymentID, err)
	}
	if rowsAffected == 0 {
		return util.ErrRefundExceedsPayment
	}
	return nil
}

// ReleaseRefundReservation decrements refunded_amount and restores the status
// implied by what remains refunded.
func (r *PaymentRepository) ReleaseRefundReservation(ctx context.Context, q repository.DBExecutor, paymentID string, amount decimal.Decimal, now time.Time) error {
	query := `UPDATE payments
              SET refunded_amount = refunded_amount - $1,
                  status = CASE WHEN refunded_amount - $1 <= 0 THEN $2 ELSE $3 END,
                  updated_at = $4
              WHERE id = $5 AND refunded_amount >= $1`
	result, err := q.ExecContext(ctx, query,
		amount, domain.PaymentCompleted, domain.PaymentPartiallyRefunded, now, paymentID,
	)
	if err != nil {
		return fmt.Errorf("failed to release refund reservation on payment %s: %w", paymentID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for payment %s: %w", paymentID, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

// CountAttempts counts payment attempts for a user against a shipment.
func (r *PaymentRepository) CountAttempts(ctx context.Context, q repository.DBExecutor, userID int64, shipmentID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM payments WHERE user_id = $1 AND shipment_id = $2`
	if err := q.GetContext(ctx, &count, query, userID, shipmentID); err != nil {
		return 0, fmt.Errorf("failed to count attempts for user %d shipment %s: %w", userID, shipmentID, err)
	}
	return count, nil
}

// CancelExpired moves stale pending/processing payments to cancelled.
// Safe to run repeatedly; already-cancelled rows no longer match.
func (r *PaymentRepository) CancelExpired(ctx context.Context, q repository.DBExecutor, now time.Time) (int64, error) {
	query := `UPDATE payments
              SET status = $1, updated_at = $2
              WHERE status IN ($3, $4) AND expires_at IS NOT NULL AND expires_at < $2`
	result, err := q.ExecContext(ctx, query, domain.PaymentCancelled, now, domain.PaymentPending, domain.PaymentProcessing)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel expired payments: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for expiry sweep: %w", err)
	}
	return rowsAffected, nil
}
