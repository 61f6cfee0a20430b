// internal/service/notifier.go
package service

import (
	"log/slog"

	"cargopay/internal/domain"
)

// Notifier receives payment lifecycle events. Implementations deliver email
// or SMS out of band; calls are fire-and-forget and never awaited for
// correctness.
type Notifier interface {
	PaymentCompleted(payment *domain.Payment)
	PaymentFailed(payment *domain.Payment)
	RefundCompleted(payment *domain.Payment, refund *domain.Refund)
}

// LogNotifier is the default Notifier; it only logs.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a Notifier that writes events to the logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) PaymentCompleted(p *domain.Payment) {
	n.logger.Info("payment completed", "payment_id", p.ID, "user_id", p.UserID, "method", p.Method, "total", p.TotalAmount)
}

func (n *LogNotifier) PaymentFailed(p *domain.Payment) {
	n.logger.Info("payment failed", "payment_id", p.ID, "user_id", p.UserID, "method", p.Method)
}

func (n *LogNotifier) RefundCompleted(p *domain.Payment, r *domain.Refund) {
	n.logger.Info("refund completed", "payment_id", p.ID, "refund_id", r.ID, "amount", r.Amount)
}
