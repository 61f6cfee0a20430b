// internal/domain/webhook.go
package domain

import "time"

// WebhookEvent stores a received gateway event together with deduplication
// metadata. The unique key (provider, event_type, provider_payment_id) is the
// idempotency boundary: re-delivery of the same event maps onto an existing
// row and is a no-op.
type WebhookEvent struct {
	ID                string     `db:"id" json:"id"` // UUID primary key
	Provider          string     `db:"provider" json:"provider"`
	EventType         string     `db:"event_type" json:"event_type"`
	ProviderPaymentID string     `db:"provider_payment_id" json:"provider_payment_id"`
	ProviderOrderID   string     `db:"provider_order_id" json:"provider_order_id"`
	Payload           []byte     `db:"payload" json:"-"` // Raw body as received, byte-for-byte
	Signature         string     `db:"signature" json:"-"`
	Processed         bool       `db:"processed" json:"processed"`
	ProcessedAt       *time.Time `db:"processed_at" json:"processed_at"`
	Anomaly           *string    `db:"anomaly" json:"anomaly"` // Set when the event was recorded but not applied
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}
