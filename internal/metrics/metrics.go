// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the operational counters for the payment subsystem.
type Metrics struct {
	PaymentsCreated   *prometheus.CounterVec
	PaymentsCompleted prometheus.Counter
	PaymentsFailed    prometheus.Counter
	WebhooksReceived  prometheus.Counter
	WebhooksDuplicate prometheus.Counter
	WebhooksAnomalous prometheus.Counter
	WalletConflicts   prometheus.Counter
}

// New registers the payment counters with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PaymentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cargopay_payments_created_total",
			Help: "Payments created, by method.",
		}, []string{"method"}),
		PaymentsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "cargopay_payments_completed_total",
			Help: "Payments that reached completed state.",
		}),
		PaymentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "cargopay_payments_failed_total",
			Help: "Payments that reached failed state.",
		}),
		WebhooksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "cargopay_webhooks_received_total",
			Help: "Webhook deliveries received.",
		}),
		WebhooksDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Name: "cargopay_webhooks_duplicate_total",
			Help: "Webhook deliveries skipped as duplicates.",
		}),
		WebhooksAnomalous: factory.NewCounter(prometheus.CounterOpts{
			Name: "cargopay_webhooks_anomalous_total",
			Help: "Webhook deliveries recorded but not applied.",
		}),
		WalletConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "cargopay_wallet_cas_conflicts_total",
			Help: "Optimistic-concurrency conflicts on wallet updates.",
		}),
	}
}
