// internal/service/payment_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cargopay/internal/domain"
	"cargopay/internal/gateway"
	"cargopay/internal/metrics"
	"cargopay/internal/money"
	"cargopay/internal/repository"
	"cargopay/internal/util"
)

// CreatePaymentSpec is the validated command accepted by CreatePayment.
type CreatePaymentSpec struct {
	UserID      int64
	Amount      decimal.Decimal
	Currency    string
	Method      domain.PaymentMethod
	Purpose     domain.PaymentPurpose
	ShipmentID  *string
	TaxAmount   decimal.Decimal // Informational, carried over from the quoted breakdown
	Description string
	Notes       map[string]string
}

// PaymentResult is what CreatePayment hands back to the transport layer.
type PaymentResult struct {
	Payment *domain.Payment
	// Order is set for gateway payments; its OrderID is the checkout token
	// the client needs to complete payment. Nil for wallet and COD.
	Order *gateway.OrderRef
}

// ProviderData carries gateway facts into a status update.
type ProviderData struct {
	ProviderPaymentID *string
	Signature         *string
	FailureReason     *string
}

// PaymentService is the payment lifecycle manager. It creates payment
// intents, routes them to the wallet ledger or the external gateway, and is
// the single mutation point for reconciliation-driven status changes.
type PaymentService interface {
	CreatePayment(ctx context.Context, spec CreatePaymentSpec) (*PaymentResult, error)
	// ConfirmCODCollection transitions a pending COD payment to completed
	// once cash is collected at delivery.
	ConfirmCODCollection(ctx context.Context, paymentID string) (*domain.Payment, error)
	// UpdateStatus applies a reconciled state. Used by the webhook reconciler;
	// illegal transitions are rejected, never silently applied.
	UpdateStatus(ctx context.Context, paymentID string, newStatus domain.PaymentStatus, data ProviderData) (*domain.Payment, error)
	// CancelExpired sweeps stale pending/processing payments. Idempotent.
	CancelExpired(ctx context.Context) (int64, error)
	GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error)
	ListPayments(ctx context.Context, userID int64, limit, offset int) ([]domain.Payment, int64, error)
	// Quote computes the itemized breakdown and wallet-coverage summary for
	// a prospective payment without creating one.
	Quote(ctx context.Context, userID int64, subtotal, shipping decimal.Decimal, method domain.PaymentMethod) (*money.Summary, error)
	// Config returns a copy of the current payment configuration.
	Config() domain.PaymentConfig
	// UpdateConfig replaces the payment configuration (admin action).
	UpdateConfig(cfg domain.PaymentConfig) error
}

type paymentService struct {
	dbExecutor  repository.DBExecutor
	paymentRepo repository.PaymentRepository
	walletSvc   WalletService
	gw          gateway.Client
	notifier    Notifier
	metrics     *metrics.Metrics
	logger      *slog.Logger

	mu  sync.RWMutex // Guards cfg
	cfg domain.PaymentConfig
}

// NewPaymentService creates a new instance of PaymentService.
func NewPaymentService(
	dbExecutor repository.DBExecutor,
	paymentRepo repository.PaymentRepository,
	walletSvc WalletService,
	gw gateway.Client,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg domain.PaymentConfig,
) PaymentService {
	return &paymentService{
		dbExecutor:  dbExecutor,
		paymentRepo: paymentRepo,
		walletSvc:   walletSvc,
		gw:          gw,
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
		cfg:         cfg,
	}
}

// Config returns a copy of the current payment configuration.
func (s *paymentService) Config() domain.PaymentConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// UpdateConfig replaces the payment configuration.
func (s *paymentService) UpdateConfig(cfg domain.PaymentConfig) error {
	if cfg.MinPaymentAmount.IsNegative() || cfg.MaxPaymentAmount.LessThan(cfg.MinPaymentAmount) {
		return util.ErrInvalidInput
	}
	if cfg.PaymentTimeoutMinutes <= 0 || cfg.MaxPaymentAttempts <= 0 {
		return util.ErrInvalidInput
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.logger.Info("payment configuration updated")
	return nil
}

// CreatePayment validates the command, computes the fee breakdown and routes
// the payment by method. The method switch is exhaustive over the closed
// enum; adding a method is a compile-visible change here.
func (s *paymentService) CreatePayment(ctx context.Context, spec CreatePaymentSpec) (*PaymentResult, error) {
	cfg := s.Config()

	if !spec.Method.Valid() {
		return nil, util.ErrInvalidInput
	}
	if !cfg.MethodEnabled(spec.Method) {
		return nil, util.ErrMethodDisabled
	}
	if spec.Amount.LessThan(cfg.MinPaymentAmount) || spec.Amount.GreaterThan(cfg.MaxPaymentAmount) {
		return nil, fmt.Errorf("%w: amount %s outside [%s, %s]", util.ErrInvalidInput,
			spec.Amount, cfg.MinPaymentAmount, cfg.MaxPaymentAmount)
	}
	if spec.Purpose == "" {
		spec.Purpose = domain.PurposeShipment
	}
	if spec.Currency == "" {
		spec.Currency = "INR"
	}
	if spec.Purpose == domain.PurposeWalletLoad {
		// A load that could never be credited is rejected up front; the
		// capture-time credit re-checks under the ledger transaction.
		wallet, err := s.walletSvc.GetWallet(ctx, spec.UserID)
		if err != nil {
			return nil, fmt.Errorf("create payment: %w", err)
		}
		if wallet.Balance.Add(spec.Amount).GreaterThan(wallet.MaxBalance) {
			return nil, util.ErrMaxBalanceExceeded
		}
	}

	attempts := 1
	if spec.ShipmentID != nil {
		prior, err := s.paymentRepo.CountAttempts(ctx, s.dbExecutor, spec.UserID, *spec.ShipmentID)
		if err != nil {
			return nil, fmt.Errorf("create payment: %w", err)
		}
		if prior >= cfg.MaxPaymentAttempts {
			return nil, util.ErrTooManyAttempts
		}
		attempts = prior + 1
	}

	fee := money.GatewayFee(spec.Amount, spec.Method, &cfg)
	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:             uuid.NewString(),
		UserID:         spec.UserID,
		Amount:         money.Round(spec.Amount),
		Currency:       spec.Currency,
		Method:         spec.Method,
		Status:         domain.PaymentPending,
		Purpose:        spec.Purpose,
		ShipmentID:     spec.ShipmentID,
		GatewayFee:     fee,
		TaxAmount:      money.Round(spec.TaxAmount),
		TotalAmount:    money.Round(spec.Amount.Add(fee)),
		RefundedAmount: decimal.Zero,
		Attempts:       attempts,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	switch {
	case spec.Method == domain.MethodWallet:
		payment.Provider = "wallet"
		return s.createWalletPayment(ctx, payment, spec.Description)
	case spec.Method == domain.MethodCOD:
		payment.Provider = "cod"
		return s.createCODPayment(ctx, payment)
	case spec.Method.IsGateway():
		payment.Provider = s.gw.Provider()
		return s.createGatewayPayment(ctx, payment, spec.Notes, cfg.PaymentTimeout())
	default:
		return nil, util.ErrInvalidInput
	}
}

// createWalletPayment settles synchronously against the wallet ledger. The
// debit, its ledger entry and the payment's completion commit in one database
// transaction; a failure on any of them rolls back all three, so money never
// leaves the wallet for a payment that does not read completed.
func (s *paymentService) createWalletPayment(ctx context.Context, payment *domain.Payment, description string) (*PaymentResult, error) {
	if err := s.paymentRepo.CreatePayment(ctx, s.dbExecutor, payment); err != nil {
		return nil, fmt.Errorf("create wallet payment: %w", err)
	}
	s.metrics.PaymentsCreated.WithLabelValues(string(payment.Method)).Inc()

	payment.Status = domain.PaymentCompleted
	payment.UpdatedAt = time.Now().UTC()
	_, _, err := s.walletSvc.DebitTx(ctx, payment.UserID, payment.TotalAmount, &payment.ID, description,
		func(ctx context.Context, q repository.DBExecutor) error {
			return s.paymentRepo.UpdatePayment(ctx, q, payment)
		})
	if err != nil {
		reason := err.Error()
		payment.Status = domain.PaymentFailed
		payment.FailureReason = &reason
		payment.UpdatedAt = time.Now().UTC()
		if updErr := s.paymentRepo.UpdatePayment(ctx, s.dbExecutor, payment); updErr != nil {
			s.logger.Error("failed to record wallet payment failure", "payment_id", payment.ID, "error", updErr)
		}
		s.metrics.PaymentsFailed.Inc()
		go s.notifier.PaymentFailed(payment)
		return nil, err
	}

	s.metrics.PaymentsCompleted.Inc()
	go s.notifier.PaymentCompleted(payment)
	return &PaymentResult{Payment: payment}, nil
}

// createCODPayment records the intent; collection is confirmed later by
// ConfirmCODCollection.
func (s *paymentService) createCODPayment(ctx context.Context, payment *domain.Payment) (*PaymentResult, error) {
	if err := s.paymentRepo.CreatePayment(ctx, s.dbExecutor, payment); err != nil {
		return nil, fmt.Errorf("create cod payment: %w", err)
	}
	s.metrics.PaymentsCreated.WithLabelValues(string(payment.Method)).Inc()
	return &PaymentResult{Payment: payment}, nil
}

// createGatewayPayment obtains an order from the gateway and parks the
// payment in processing until the webhook decides its final state. The
// expiry is stamped before the gateway call so an order that never confirms
// is swept eventually.
func (s *paymentService) createGatewayPayment(ctx context.Context, payment *domain.Payment, notes map[string]string, timeout time.Duration) (*PaymentResult, error) {
	expiresAt := time.Now().UTC().Add(timeout)
	payment.ExpiresAt = &expiresAt
	if err := s.paymentRepo.CreatePayment(ctx, s.dbExecutor, payment); err != nil {
		return nil, fmt.Errorf("create gateway payment: %w", err)
	}
	s.metrics.PaymentsCreated.WithLabelValues(string(payment.Method)).Inc()

	order, err := s.gw.CreateOrder(ctx, payment.TotalAmount, payment.Currency, payment.ID, notes)
	if err != nil {
		if errors.Is(err, util.ErrGatewayUnavailable) {
			// Transient: leave the payment pending for a retry; the expiry
			// sweep cancels it if the caller never comes back.
			return nil, err
		}
		reason := err.Error()
		payment.Status = domain.PaymentFailed
		payment.FailureReason = &reason
		payment.UpdatedAt = time.Now().UTC()
		if updErr := s.paymentRepo.UpdatePayment(ctx, s.dbExecutor, payment); updErr != nil {
			s.logger.Error("failed to record gateway rejection", "payment_id", payment.ID, "error", updErr)
		}
		s.metrics.PaymentsFailed.Inc()
		return nil, err
	}

	payment.ProviderOrderID = &order.OrderID
	payment.Status = domain.PaymentProcessing
	payment.UpdatedAt = time.Now().UTC()
	if err := s.paymentRepo.UpdatePayment(ctx, s.dbExecutor, payment); err != nil {
		return nil, fmt.Errorf("create gateway payment: store order: %w", err)
	}
	return &PaymentResult{Payment: payment, Order: order}, nil
}

// ConfirmCODCollection transitions a pending COD payment to completed.
func (s *paymentService) ConfirmCODCollection(ctx context.Context, paymentID string) (*domain.Payment, error) {
	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Method != domain.MethodCOD {
		return nil, util.ErrInvalidInput
	}
	if payment.Status == domain.PaymentCompleted {
		return payment, nil // Already confirmed; idempotent
	}
	return s.UpdateStatus(ctx, paymentID, domain.PaymentCompleted, ProviderData{})
}

// UpdateStatus is the single mutation point used by reconciliation. It
// enforces the status machine and fires notification hooks on terminal
// outcomes.
func (s *paymentService) UpdateStatus(ctx context.Context, paymentID string, newStatus domain.PaymentStatus, data ProviderData) (*domain.Payment, error) {
	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == newStatus {
		return payment, nil // Re-applied event; nothing to do
	}
	if !domain.CanTransition(payment.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", util.ErrInvalidStatusTransition, payment.Status, newStatus)
	}

	if data.ProviderPaymentID != nil {
		payment.ProviderPaymentID = data.ProviderPaymentID
	}
	if data.Signature != nil {
		payment.ProviderSignature = data.Signature
	}
	if data.FailureReason != nil {
		payment.FailureReason = data.FailureReason
	}
	payment.Status = newStatus
	payment.UpdatedAt = time.Now().UTC()
	if newStatus == domain.PaymentCompleted && payment.Purpose == domain.PurposeWalletLoad {
		// The credit and the status flip commit together. A failed credit
		// leaves the payment row untouched, so the provider's redelivery
		// finds it still uncompleted and retries the credit instead of
		// hitting the re-applied no-op above.
		if _, _, err := s.walletSvc.CreditTx(ctx, payment.UserID, payment.Amount, domain.WalletTxLoad, &payment.ID, "wallet top-up",
			func(ctx context.Context, q repository.DBExecutor) error {
				return s.paymentRepo.UpdatePayment(ctx, q, payment)
			}); err != nil {
			s.logger.Error("wallet load credit failed after capture", "payment_id", payment.ID, "error", err)
			return nil, fmt.Errorf("update status: wallet load credit: %w", err)
		}
	} else if err := s.paymentRepo.UpdatePayment(ctx, s.dbExecutor, payment); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	switch newStatus {
	case domain.PaymentCompleted:
		s.metrics.PaymentsCompleted.Inc()
		go s.notifier.PaymentCompleted(payment)
	case domain.PaymentFailed:
		s.metrics.PaymentsFailed.Inc()
		go s.notifier.PaymentFailed(payment)
	}
	return payment, nil
}

// CancelExpired moves stale payments to cancelled. Advisory bookkeeping
// only; a late webhook for a swept payment is ignored by the reconciler.
func (s *paymentService) CancelExpired(ctx context.Context) (int64, error) {
	n, err := s.paymentRepo.CancelExpired(ctx, s.dbExecutor, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cancel expired: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired payments cancelled", "count", n)
	}
	return n, nil
}

// GetPayment retrieves a payment by id.
func (s *paymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetPaymentByID(ctx, s.dbExecutor, paymentID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, util.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return payment, nil
}

// ListPayments retrieves a user's payments, newest first.
func (s *paymentService) ListPayments(ctx context.Context, userID int64, limit, offset int) ([]domain.Payment, int64, error) {
	payments, totalCount, err := s.paymentRepo.ListPaymentsByUserID(ctx, s.dbExecutor, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	return payments, totalCount, nil
}

// Quote computes the breakdown and wallet-coverage summary for a prospective
// payment. The same COD formula backs quoting and final computation.
func (s *paymentService) Quote(ctx context.Context, userID int64, subtotal, shipping decimal.Decimal, method domain.PaymentMethod) (*money.Summary, error) {
	if !method.Valid() || subtotal.IsNegative() || shipping.IsNegative() {
		return nil, util.ErrInvalidInput
	}
	cfg := s.Config()
	wallet, err := s.walletSvc.GetWallet(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	breakdown := money.ComputeBreakdown(subtotal, shipping, method, &cfg)
	summary := money.Summarize(breakdown, wallet.Balance)
	return &summary, nil
}
