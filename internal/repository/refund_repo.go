// internal/repository/refund_repo.go
package repository

import (
	"context"

	"cargopay/internal/domain"
)

// RefundRepository defines the interface for refund records.
type RefundRepository interface {
	// CreateRefund inserts a new refund row.
	CreateRefund(ctx context.Context, q DBExecutor, refund *domain.Refund) error
	// GetRefundByProviderRefundID resolves a refund from the gateway's refund id.
	GetRefundByProviderRefundID(ctx context.Context, q DBExecutor, providerRefundID string) (*domain.Refund, error)
	// SetProviderRefundID attaches the gateway's refund id to a refund once
	// the gateway request has been accepted.
	SetProviderRefundID(ctx context.Context, q DBExecutor, id, providerRefundID string) error
	// UpdateRefundStatus moves a refund to a new status.
	UpdateRefundStatus(ctx context.Context, q DBExecutor, id string, status domain.RefundStatus) error
	// ListRefundsByPaymentID retrieves refunds recorded against a payment.
	ListRefundsByPaymentID(ctx context.Context, q DBExecutor, paymentID string) ([]domain.Refund, error)
}
