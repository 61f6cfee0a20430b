// internal/repository/postgres/refund_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"cargopay/internal/domain"
	"cargopay/internal/repository"
	"cargopay/internal/util"
)

// RefundRepository implements repository.RefundRepository for PostgreSQL.
type RefundRepository struct{}

// NewRefundRepository creates a new RefundRepository.
func NewRefundRepository(db *sqlx.DB) repository.RefundRepository {
	return &RefundRepository{}
}

// CreateRefund inserts a new refund row.
func (r *RefundRepository) CreateRefund(ctx context.Context, q repository.DBExecutor, refund *domain.Refund) error {
	query := `INSERT INTO refunds (id, payment_id, amount, reason, status, provider_refund_id, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.ExecContext(ctx, query,
		refund.ID, refund.PaymentID, refund.Amount, refund.Reason, refund.Status,
		refund.ProviderRefundID, refund.CreatedAt, refund.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

// GetRefundByProviderRefundID resolves a refund from the gateway's refund id.
func (r *RefundRepository) GetRefundByProviderRefundID(ctx context.Context, q repository.DBExecutor, providerRefundID string) (*domain.Refund, error) {
	var refund domain.Refund
	query := `SELECT id, payment_id, amount, reason, status, provider_refund_id, created_at, updated_at
              FROM refunds WHERE provider_refund_id = $1`
	if err := q.GetContext(ctx, &refund, query, providerRefundID); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get refund by provider id %s: %w", providerRefundID, err)
	}
	return &refund, nil
}

// SetProviderRefundID attaches the gateway's refund id to a refund.
func (r *RefundRepository) SetProviderRefundID(ctx context.Context, q repository.DBExecutor, id, providerRefundID string) error {
	query := `UPDATE refunds SET provider_refund_id = $1, updated_at = $2 WHERE id = $3`
	result, err := q.ExecContext(ctx, query, providerRefundID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set provider refund id on refund %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for refund %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

// UpdateRefundStatus moves a refund to a new status.
func (r *RefundRepository) UpdateRefundStatus(ctx context.Context, q repository.DBExecutor, id string, status domain.RefundStatus) error {
	query := `UPDATE refunds SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := q.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update refund %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for refund %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

// ListRefundsByPaymentID retrieves refunds recorded against a payment.
func (r *RefundRepository) ListRefundsByPaymentID(ctx context.Context, q repository.DBExecutor, paymentID string) ([]domain.Refund, error) {
	refunds := []domain.Refund{}
	query := `SELECT id, payment_id, amount, reason, status, provider_refund_id, created_at, updated_at
              FROM refunds WHERE payment_id = $1 ORDER BY created_at DESC`
	if err := q.SelectContext(ctx, &refunds, query, paymentID); err != nil {
		return nil, fmt.Errorf("failed to list refunds for payment %s: %w", paymentID, err)
	}
	return refunds, nil
}
