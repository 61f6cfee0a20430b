// internal/repository/postgres/webhook_pg.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"cargopay/internal/domain"
	"cargopay/internal/repository"
	"cargopay/internal/util"
)

// WebhookRepository implements repository.WebhookRepository for PostgreSQL.
type WebhookRepository struct{}

// NewWebhookRepository creates a new WebhookRepository.
func NewWebhookRepository(db *sqlx.DB) repository.WebhookRepository {
	return &WebhookRepository{}
}

// ClaimEvent atomically records the event unless a row already exists for
// its identity key. ON CONFLICT DO NOTHING makes the claim a single
// statement, so two concurrent deliveries cannot both win.
func (r *WebhookRepository) ClaimEvent(ctx context.Context, q repository.DBExecutor, event *domain.WebhookEvent) (bool, error) {
	query := `INSERT INTO webhook_events (id, provider, event_type, provider_payment_id, provider_order_id,
                                          payload, signature, processed, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
              ON CONFLICT (provider, event_type, provider_payment_id) DO NOTHING`
	result, err := q.ExecContext(ctx, query,
		event.ID, event.Provider, event.EventType, event.ProviderPaymentID, event.ProviderOrderID,
		event.Payload, event.Signature, event.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for webhook claim: %w", err)
	}
	return rowsAffected == 1, nil
}

// MarkProcessed finalizes a claimed event, optionally with an anomaly note.
func (r *WebhookRepository) MarkProcessed(ctx context.Context, q repository.DBExecutor, id string, anomaly *string) error {
	query := `UPDATE webhook_events SET processed = TRUE, processed_at = $1, anomaly = $2 WHERE id = $3`
	result, err := q.ExecContext(ctx, query, time.Now().UTC(), anomaly, id)
	if err != nil {
		return fmt.Errorf("failed to mark webhook event %s processed: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for webhook event %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

// ReleaseEvent removes a claimed event after a processing failure so the
// provider's redelivery gets a clean retry.
func (r *WebhookRepository) ReleaseEvent(ctx context.Context, q repository.DBExecutor, id string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM webhook_events WHERE id = $1 AND processed = FALSE`, id)
	if err != nil {
		return fmt.Errorf("failed to release webhook event %s: %w", id, err)
	}
	return nil
}
