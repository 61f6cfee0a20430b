// internal/service/refund_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cargopay/internal/domain"
	"cargopay/internal/gateway"
	"cargopay/internal/money"
	"cargopay/internal/repository"
	"cargopay/internal/util"
	"cargopay/pkg/db"
)

// RefundService orchestrates refunds. Wallet and COD payments refund
// synchronously into the wallet; gateway payments go through a gateway-side
// refund that a later webhook finalizes. In both flows the refunded amount is
// reserved on the payment row with a conditional increment, never written
// back from a prior read, so concurrent refunds cannot overdraw a payment.
type RefundService interface {
	CreateRefund(ctx context.Context, req domain.RefundRequest) (*domain.RefundResponse, error)
	// FinalizeGatewayRefund resolves a processing refund from a gateway
	// event. Called by the webhook reconciler.
	FinalizeGatewayRefund(ctx context.Context, providerRefundID string, succeeded bool) error
	ListRefunds(ctx context.Context, paymentID string) ([]domain.Refund, error)
}

type refundService struct {
	dbBeginner  db.DBTxBeginner
	dbExecutor  repository.DBExecutor
	paymentRepo repository.PaymentRepository
	refundRepo  repository.RefundRepository
	walletSvc   WalletService
	gw          gateway.Client
	notifier    Notifier
	logger      *slog.Logger
	beginTx     db.BeginTxFunc
	commitTx    db.CommitTxFunc
	rollbackTx  db.RollbackTxFunc
}

// NewRefundService creates a new instance of RefundService.
func NewRefundService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	paymentRepo repository.PaymentRepository,
	refundRepo repository.RefundRepository,
	walletSvc WalletService,
	gw gateway.Client,
	notifier Notifier,
	logger *slog.Logger,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
) RefundService {
	return &refundService{
		dbBeginner:  dbBeginner,
		dbExecutor:  dbExecutor,
		paymentRepo: paymentRepo,
		refundRepo:  refundRepo,
		walletSvc:   walletSvc,
		gw:          gw,
		notifier:    notifier,
		logger:      logger,
		beginTx:     beginTx,
		commitTx:    commitTx,
		rollbackTx:  rollbackTx,
	}
}

// CreateRefund validates and applies a refund against a payment. The total
// of all refunds for a payment can never exceed the payment's amount.
func (s *refundService) CreateRefund(ctx context.Context, req domain.RefundRequest) (*domain.RefundResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, util.ErrInvalidInput
	}

	payment, err := s.paymentRepo.GetPaymentByID(ctx, s.dbExecutor, req.PaymentID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, util.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("create refund: %w", err)
	}
	if !payment.Refundable() {
		return nil, util.ErrPaymentNotRefundable
	}
	// Early rejection on a stale read; ReserveRefund re-checks on the row.
	if req.Amount.GreaterThan(payment.RemainingRefundable()) {
		return nil, util.ErrRefundExceedsPayment
	}

	now := time.Now().UTC()
	refund := &domain.Refund{
		ID:        uuid.NewString(),
		PaymentID: payment.ID,
		Amount:    money.Round(req.Amount),
		Reason:    req.Reason,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if payment.Method.IsGateway() {
		return s.createGatewayRefund(ctx, payment, refund, req)
	}
	return s.createWalletRefund(ctx, payment, refund, req)
}

// createWalletRefund credits stored value. The wallet credit, its ledger
// entry, the refunded_amount reservation and the refund row commit in one
// database transaction.
func (s *refundService) createWalletRefund(ctx context.Context, payment *domain.Payment, refund *domain.Refund, req domain.RefundRequest) (*domain.RefundResponse, error) {
	refund.Status = domain.RefundCompleted
	_, _, err := s.walletSvc.CreditTx(ctx, payment.UserID, refund.Amount, domain.WalletTxRefundLoad, &payment.ID, "refund: "+req.Reason,
		func(ctx context.Context, q repository.DBExecutor) error {
			if err := s.paymentRepo.ReserveRefund(ctx, q, payment.ID, refund.Amount, req.Reason, refund.CreatedAt); err != nil {
				return err
			}
			return s.refundRepo.CreateRefund(ctx, q, refund)
		})
	if err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}

	payment.RefundedAmount = payment.RefundedAmount.Add(refund.Amount)
	payment.Status = refundedStatus(payment)
	go s.notifier.RefundCompleted(payment, refund)
	return &domain.RefundResponse{
		RefundID:      refund.ID,
		PaymentID:     payment.ID,
		Amount:        refund.Amount,
		Status:        refund.Status,
		PaymentStatus: payment.Status,
	}, nil
}

// createGatewayRefund reserves the refunded amount locally before asking the
// gateway; a gateway failure releases the reservation. Doing it in this order
// means a crash between the two steps leaves an over-reservation to release,
// never an untracked gateway refund.
func (s *refundService) createGatewayRefund(ctx context.Context, payment *domain.Payment, refund *domain.Refund, req domain.RefundRequest) (*domain.RefundResponse, error) {
	if payment.ProviderPaymentID == nil {
		return nil, util.ErrPaymentNotRefundable
	}

	refund.Status = domain.RefundProcessing
	err := s.inTx(ctx, func(q repository.DBExecutor) error {
		if err := s.paymentRepo.ReserveRefund(ctx, q, payment.ID, refund.Amount, req.Reason, refund.CreatedAt); err != nil {
			return err
		}
		return s.refundRepo.CreateRefund(ctx, q, refund)
	})
	if err != nil {
		return nil, fmt.Errorf("create refund: %w", err)
	}

	ref, err := s.gw.CreateRefund(ctx, *payment.ProviderPaymentID, refund.Amount, map[string]string{"reason": req.Reason})
	if err != nil {
		if relErr := s.releaseReservation(ctx, refund, payment.ID); relErr != nil {
			s.logger.Error("failed to release refund reservation after gateway error", "refund_id", refund.ID, "error", relErr)
		}
		return nil, fmt.Errorf("create refund: gateway: %w", err)
	}
	refund.ProviderRefundID = &ref.RefundID
	if err := s.refundRepo.SetProviderRefundID(ctx, s.dbExecutor, refund.ID, ref.RefundID); err != nil {
		return nil, fmt.Errorf("create refund: record provider id: %w", err)
	}

	payment.RefundedAmount = payment.RefundedAmount.Add(refund.Amount)
	payment.Status = refundedStatus(payment)
	return &domain.RefundResponse{
		RefundID:      refund.ID,
		PaymentID:     payment.ID,
		Amount:        refund.Amount,
		Status:        refund.Status,
		PaymentStatus: payment.Status,
	}, nil
}

// FinalizeGatewayRefund resolves a processing refund from a gateway event.
// A failed gateway refund releases the reserved refunded_amount so the
// caller can retry.
func (s *refundService) FinalizeGatewayRefund(ctx context.Context, providerRefundID string, succeeded bool) error {
	refund, err := s.refundRepo.GetRefundByProviderRefundID(ctx, s.dbExecutor, providerRefundID)
	if err != nil {
		return fmt.Errorf("finalize refund %s: %w", providerRefundID, err)
	}
	if refund.Status != domain.RefundProcessing {
		return nil // Already finalized; re-delivered event
	}

	payment, err := s.paymentRepo.GetPaymentByID(ctx, s.dbExecutor, refund.PaymentID)
	if err != nil {
		return fmt.Errorf("finalize refund %s: %w", providerRefundID, err)
	}

	if succeeded {
		if err := s.refundRepo.UpdateRefundStatus(ctx, s.dbExecutor, refund.ID, domain.RefundCompleted); err != nil {
			return fmt.Errorf("finalize refund %s: %w", providerRefundID, err)
		}
		go s.notifier.RefundCompleted(payment, refund)
		return nil
	}

	if err := s.releaseReservation(ctx, refund, payment.ID); err != nil {
		return fmt.Errorf("finalize refund %s: release reservation: %w", providerRefundID, err)
	}
	s.logger.Warn("gateway refund failed, reservation released", "refund_id", refund.ID, "payment_id", payment.ID)
	return nil
}

// ListRefunds retrieves refunds recorded against a payment.
func (s *refundService) ListRefunds(ctx context.Context, paymentID string) ([]domain.Refund, error) {
	return s.refundRepo.ListRefundsByPaymentID(ctx, s.dbExecutor, paymentID)
}

// releaseReservation marks the refund failed and gives the reserved amount
// back to the payment, in one transaction.
func (s *refundService) releaseReservation(ctx context.Context, refund *domain.Refund, paymentID string) error {
	return s.inTx(ctx, func(q repository.DBExecutor) error {
		if err := s.refundRepo.UpdateRefundStatus(ctx, q, refund.ID, domain.RefundFailed); err != nil {
			return err
		}
		return s.paymentRepo.ReleaseRefundReservation(ctx, q, paymentID, refund.Amount, time.Now().UTC())
	})
}

// inTx runs fn inside one database transaction.
func (s *refundService) inTx(ctx context.Context, fn func(q repository.DBExecutor) error) error {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return fmt.Errorf("refund: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("refund: transaction controller does not implement DBExecutor")
	}
	if err := fn(txExecutor); err != nil {
		return err
	}
	if err := s.commitTx(txController); err != nil {
		return fmt.Errorf("refund: failed to commit transaction: %w", err)
	}
	return nil
}

// refundedStatus derives the payment status implied by its refunded amount.
func refundedStatus(p *domain.Payment) domain.PaymentStatus {
	if p.RefundedAmount.GreaterThanOrEqual(p.Amount) {
		return domain.PaymentRefunded
	}
	return domain.PaymentPartiallyRefunded
}
