// internal/repository/webhook_repo.go
package repository

import (
	"context"

	"cargopay/internal/domain"
)

// WebhookRepository defines the interface for webhook reconciliation records.
type WebhookRepository interface {
	// ClaimEvent inserts the event if no row exists for its identity key
	// (provider, event_type, provider_payment_id). Returns claimed=false when
	// the event was already recorded, which makes re-delivery a no-op. The
	// insert-if-absent must be atomic.
	ClaimEvent(ctx context.Context, q DBExecutor, event *domain.WebhookEvent) (claimed bool, err error)
	// MarkProcessed sets the processed flag, the processing timestamp and an
	// optional anomaly note on a claimed event.
	MarkProcessed(ctx context.Context, q DBExecutor, id string, anomaly *string) error
	// ReleaseEvent removes a claimed event so the provider's redelivery can
	// retry after an infrastructure failure mid-processing.
	ReleaseEvent(ctx context.Context, q DBExecutor, id string) error
}
