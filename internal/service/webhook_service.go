// internal/service/webhook_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cargopay/internal/domain"
	"cargopay/internal/gateway"
	"cargopay/internal/metrics"
	"cargopay/internal/money"
	"cargopay/internal/repository"
	"cargopay/internal/util"
)

// Gateway event types the reconciler maps to local state.
const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
	eventRefundProcessed = "refund.processed"
	eventRefundFailed    = "refund.failed"
)

// WebhookResult reports how a delivery was handled.
type WebhookResult struct {
	EventType string
	Duplicate bool
	Anomaly   string // Non-empty when the event was recorded but not applied
}

// WebhookService is the reconciler for asynchronous gateway events. It is
// the idempotency boundary: the same delivery applied twice produces one
// state effect.
type WebhookService interface {
	// HandleWebhook verifies the signature over the raw body, claims the
	// event and reconciles payment or refund state. Safe under concurrent
	// and repeated delivery.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error)
}

type webhookService struct {
	dbExecutor  repository.DBExecutor
	webhookRepo repository.WebhookRepository
	paymentRepo repository.PaymentRepository
	paymentSvc  PaymentService
	refundSvc   RefundService
	gw          gateway.Client
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewWebhookService creates a new instance of WebhookService.
func NewWebhookService(
	dbExecutor repository.DBExecutor,
	webhookRepo repository.WebhookRepository,
	paymentRepo repository.PaymentRepository,
	paymentSvc PaymentService,
	refundSvc RefundService,
	gw gateway.Client,
	m *metrics.Metrics,
	logger *slog.Logger,
) WebhookService {
	return &webhookService{
		dbExecutor:  dbExecutor,
		webhookRepo: webhookRepo,
		paymentRepo: paymentRepo,
		paymentSvc:  paymentSvc,
		refundSvc:   refundSvc,
		gw:          gw,
		metrics:     m,
		logger:      logger,
	}
}

// webhookEnvelope is the provider's event shape. The signature is computed
// over the raw body, so parsing happens only after verification.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Status    string `json:"status"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

// HandleWebhook verifies, claims and dispatches one delivery.
func (s *webhookService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error) {
	s.metrics.WebhooksReceived.Inc()

	if !s.gw.VerifyWebhookSignature(rawBody, signature) {
		s.logger.Warn("webhook signature verification failed")
		return nil, util.ErrSignatureInvalid
	}

	var env webhookEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, fmt.Errorf("%w: webhook body: %v", util.ErrInvalidInput, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: webhook event type missing", util.ErrInvalidInput)
	}

	providerPaymentID := env.Payload.Payment.Entity.ID
	if providerPaymentID == "" {
		providerPaymentID = env.Payload.Refund.Entity.PaymentID
	}

	event := &domain.WebhookEvent{
		ID:                uuid.NewString(),
		Provider:          s.gw.Provider(),
		EventType:         env.Event,
		ProviderPaymentID: providerPaymentID,
		ProviderOrderID:   env.Payload.Payment.Entity.OrderID,
		Payload:           rawBody,
		Signature:         signature,
		CreatedAt:         time.Now().UTC(),
	}

	claimed, err := s.webhookRepo.ClaimEvent(ctx, s.dbExecutor, event)
	if err != nil {
		return nil, fmt.Errorf("webhook claim: %w", err)
	}
	if !claimed {
		s.metrics.WebhooksDuplicate.Inc()
		s.logger.Info("duplicate webhook delivery skipped", "event", env.Event, "provider_payment_id", providerPaymentID)
		return &WebhookResult{EventType: env.Event, Duplicate: true}, nil
	}

	anomaly, err := s.dispatch(ctx, &env)
	if err != nil {
		// Infrastructure failure mid-processing: release the claim so the
		// provider's redelivery gets a clean retry.
		if relErr := s.webhookRepo.ReleaseEvent(ctx, s.dbExecutor, event.ID); relErr != nil {
			s.logger.Error("failed to release webhook claim", "event_id", event.ID, "error", relErr)
		}
		return nil, err
	}

	var anomalyNote *string
	if anomaly != "" {
		anomalyNote = &anomaly
		s.metrics.WebhooksAnomalous.Inc()
		s.logger.Warn("webhook recorded but not applied", "event", env.Event, "anomaly", anomaly)
	}
	if err := s.webhookRepo.MarkProcessed(ctx, s.dbExecutor, event.ID, anomalyNote); err != nil {
		return nil, fmt.Errorf("webhook mark processed: %w", err)
	}
	return &WebhookResult{EventType: env.Event, Anomaly: anomaly}, nil
}

// dispatch applies one claimed event. It returns an anomaly note for events
// that are recorded for review rather than applied; only infrastructure
// failures return an error.
func (s *webhookService) dispatch(ctx context.Context, env *webhookEnvelope) (string, error) {
	switch env.Event {
	case eventPaymentCaptured:
		return s.applyPaymentEvent(ctx, env, domain.PaymentCompleted)
	case eventPaymentFailed:
		return s.applyPaymentEvent(ctx, env, domain.PaymentFailed)
	case eventRefundProcessed:
		return s.applyRefundEvent(ctx, env, true)
	case eventRefundFailed:
		return s.applyRefundEvent(ctx, env, false)
	default:
		return "unmapped event type", nil
	}
}

func (s *webhookService) applyPaymentEvent(ctx context.Context, env *webhookEnvelope, status domain.PaymentStatus) (string, error) {
	entity := env.Payload.Payment.Entity
	if entity.OrderID == "" {
		return "payment event without order id", nil
	}

	payment, err := s.paymentRepo.GetPaymentByProviderOrderID(ctx, s.dbExecutor, entity.OrderID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return fmt.Sprintf("no local payment for order %s", entity.OrderID), nil
		}
		return "", fmt.Errorf("webhook payment lookup: %w", err)
	}
	if payment.Status == domain.PaymentCancelled {
		// Advisory cancellation never reopens financial state.
		return fmt.Sprintf("late %s for cancelled payment %s", env.Event, payment.ID), nil
	}

	if status == domain.PaymentCompleted {
		// Cross-check the gateway's own record before applying money
		// movement; the webhook body alone is not authoritative for amounts.
		details, err := s.gw.FetchPayment(ctx, entity.ID)
		if err != nil {
			return "", fmt.Errorf("webhook payment fetch: %w", err)
		}
		if details.AmountMinor != money.ToMinorUnits(payment.TotalAmount) {
			return fmt.Sprintf("captured amount %d does not match payment %s total %s", details.AmountMinor, payment.ID, payment.TotalAmount), nil
		}
	}

	data := ProviderData{ProviderPaymentID: &entity.ID}
	if status == domain.PaymentFailed && entity.ErrorDescription != "" {
		reason := entity.ErrorDescription
		data.FailureReason = &reason
	}
	if _, err := s.paymentSvc.UpdateStatus(ctx, payment.ID, status, data); err != nil {
		if errors.Is(err, util.ErrInvalidStatusTransition) {
			return fmt.Sprintf("event %s not applicable to payment %s in %s", env.Event, payment.ID, payment.Status), nil
		}
		return "", fmt.Errorf("webhook status update: %w", err)
	}
	return "", nil
}

func (s *webhookService) applyRefundEvent(ctx context.Context, env *webhookEnvelope, succeeded bool) (string, error) {
	entity := env.Payload.Refund.Entity
	if entity.ID == "" {
		return "refund event without refund id", nil
	}
	if err := s.refundSvc.FinalizeGatewayRefund(ctx, entity.ID, succeeded); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return fmt.Sprintf("no local refund for provider refund %s", entity.ID), nil
		}
		return "", fmt.Errorf("webhook refund finalize: %w", err)
	}
	return "", nil
}
