// internal/service/mocks_test.go
package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"cargopay/internal/domain"
	"cargopay/internal/gateway"
	"cargopay/internal/metrics"
	"cargopay/internal/money"
	"cargopay/internal/repository"
	"cargopay/pkg/db"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	m.Called(ctx, query, args)
	return &sql.Row{}
}

// MockDBBeginner is a mock implementation of db.DBTxBeginner.
type MockDBBeginner struct {
	mock.Mock
}

func (m *MockDBBeginner) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	return &sqlx.Tx{}, args.Error(1)
}

// MockTxController mocks db.TxController and, by embedding MockDBExecutor,
// satisfies repository.DBExecutor the way *sqlx.Tx does.
type MockTxController struct {
	mock.Mock
	MockDBExecutor
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// txFuncs returns the injected transaction triple wired to the controller.
func txFuncs(ctrl *MockTxController) (db.BeginTxFunc, db.CommitTxFunc, db.RollbackTxFunc) {
	return func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
			return ctrl, nil
		},
		func(tx db.TxController) error {
			return ctrl.Commit()
		},
		func(tx db.TxController) {
			_ = ctrl.Rollback()
		}
}

// MockWalletRepository is a mock implementation of repository.WalletRepository.
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	args := m.Called(ctx, q, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) GetWalletByUserID(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) UpdateWalletCAS(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet, expectedVersion int64) error {
	args := m.Called(ctx, q, wallet, expectedVersion)
	return args.Error(0)
}

func (m *MockWalletRepository) SetFrozen(ctx context.Context, q repository.DBExecutor, userID int64, frozen bool) error {
	args := m.Called(ctx, q, userID, frozen)
	return args.Error(0)
}

// MockTransactionRepository is a mock implementation of repository.TransactionRepository.
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, tx *domain.WalletTransaction) error {
	args := m.Called(ctx, q, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetTransactionsByUserID(ctx context.Context, q repository.DBExecutor, userID int64, from, to time.Time, limit, offset int) ([]domain.WalletTransaction, int64, error) {
	args := m.Called(ctx, q, userID, from, to, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.WalletTransaction), args.Get(1).(int64), args.Error(2)
}

// MockPaymentRepository is a mock implementation of repository.PaymentRepository.
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) CreatePayment(ctx context.Context, q repository.DBExecutor, payment *domain.Payment) error {
	args := m.Called(ctx, q, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetPaymentByID(ctx context.Context, q repository.DBExecutor, id string) (*domain.Payment, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetPaymentByProviderOrderID(ctx context.Context, q repository.DBExecutor, orderID string) (*domain.Payment, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) UpdatePayment(ctx context.Context, q repository.DBExecutor, payment *domain.Payment) error {
	args := m.Called(ctx, q, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListPaymentsByUserID(ctx context.Context, q repository.DBExecutor, userID int64, limit, offset int) ([]domain.Payment, int64, error) {
	args := m.Called(ctx, q, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) ReserveRefund(ctx context.Context, q repository.DBExecutor, paymentID string, amount decimal.Decimal, reason string, now time.Time) error {
	args := m.Called(ctx, q, paymentID, amount, reason, now)
	return args.Error(0)
}

func (m *MockPaymentRepository) ReleaseRefundReservation(ctx context.Context, q repository.DBExecutor, paymentID string, amount decimal.Decimal, now time.Time) error {
	args := m.Called(ctx, q, paymentID, amount, now)
	return args.Error(0)
}

func (m *MockPaymentRepository) CountAttempts(ctx context.Context, q repository.DBExecutor, userID int64, shipmentID string) (int, error) {
	args := m.Called(ctx, q, userID, shipmentID)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentRepository) CancelExpired(ctx context.Context, q repository.DBExecutor, now time.Time) (int64, error) {
	args := m.Called(ctx, q, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockRefundRepository is a mock implementation of repository.RefundRepository.
type MockRefundRepository struct {
	mock.Mock
}

func (m *MockRefundRepository) CreateRefund(ctx context.Context, q repository.DBExecutor, refund *domain.Refund) error {
	args := m.Called(ctx, q, refund)
	return args.Error(0)
}

func (m *MockRefundRepository) GetRefundByProviderRefundID(ctx context.Context, q repository.DBExecutor, providerRefundID string) (*domain.Refund, error) {
	args := m.Called(ctx, q, providerRefundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Refund), args.Error(1)
}

func (m *MockRefundRepository) SetProviderRefundID(ctx context.Context, q repository.DBExecutor, id, providerRefundID string) error {
	args := m.Called(ctx, q, id, providerRefundID)
	return args.Error(0)
}

func (m *MockRefundRepository) UpdateRefundStatus(ctx context.Context, q repository.DBExecutor, id string, status domain.RefundStatus) error {
	args := m.Called(ctx, q, id, status)
	return args.Error(0)
}

func (m *MockRefundRepository) ListRefundsByPaymentID(ctx context.Context, q repository.DBExecutor, paymentID string) ([]domain.Refund, error) {
	args := m.Called(ctx, q, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Refund), args.Error(1)
}

// MockWebhookRepository is a mock implementation of repository.WebhookRepository.
type MockWebhookRepository struct {
	mock.Mock
}

func (m *MockWebhookRepository) ClaimEvent(ctx context.Context, q repository.DBExecutor, event *domain.WebhookEvent) (bool, error) {
	args := m.Called(ctx, q, event)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookRepository) MarkProcessed(ctx context.Context, q repository.DBExecutor, id string, anomaly *string) error {
	args := m.Called(ctx, q, id, anomaly)
	return args.Error(0)
}

func (m *MockWebhookRepository) ReleaseEvent(ctx context.Context, q repository.DBExecutor, id string) error {
	args := m.Called(ctx, q, id)
	return args.Error(0)
}

// MockGatewayClient is a mock implementation of gateway.Client.
type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) Provider() string { return "razorpay" }

func (m *MockGatewayClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*gateway.OrderRef, error) {
	args := m.Called(ctx, amount, currency, receipt, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.OrderRef), args.Error(1)
}

func (m *MockGatewayClient) FetchPayment(ctx context.Context, providerPaymentID string) (*gateway.PaymentDetails, error) {
	args := m.Called(ctx, providerPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentDetails), args.Error(1)
}

func (m *MockGatewayClient) CreateRefund(ctx context.Context, providerPaymentID string, amount decimal.Decimal, notes map[string]string) (*gateway.RefundRef, error) {
	args := m.Called(ctx, providerPaymentID, amount, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.RefundRef), args.Error(1)
}

func (m *MockGatewayClient) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	args := m.Called(orderID, paymentID, signature)
	return args.Bool(0)
}

func (m *MockGatewayClient) VerifyWebhookSignature(body []byte, signature string) bool {
	args := m.Called(body, signature)
	return args.Bool(0)
}

// MockWalletService is a mock implementation of WalletService for the
// payment and refund service tests.
type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) Credit(ctx context.Context, userID int64, amount decimal.Decimal, txType domain.WalletTransactionType, referenceID *string, description string) (*domain.Wallet, *domain.WalletTransaction, error) {
	args := m.Called(ctx, userID, amount, txType, referenceID, description)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Wallet), args.Get(1).(*domain.WalletTransaction), args.Error(2)
}

// CreditTx mirrors the real implementation's contract: on a ledger-level
// failure settle never runs, and a settle failure aborts the whole operation.
func (m *MockWalletService) CreditTx(ctx context.Context, userID int64, amount decimal.Decimal, txType domain.WalletTransactionType, referenceID *string, description string, settle SettleFunc) (*domain.Wallet, *domain.WalletTransaction, error) {
	args := m.Called(ctx, userID, amount, txType, referenceID, description)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	if settle != nil {
		if err := settle(ctx, new(MockDBExecutor)); err != nil {
			return nil, nil, err
		}
	}
	return args.Get(0).(*domain.Wallet), args.Get(1).(*domain.WalletTransaction), args.Error(2)
}

func (m *MockWalletService) Debit(ctx context.Context, userID int64, amount decimal.Decimal, referenceID *string, description string) (*domain.Wallet, *domain.WalletTransaction, error) {
	args := m.Called(ctx, userID, amount, referenceID, description)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Wallet), args.Get(1).(*domain.WalletTransaction), args.Error(2)
}

func (m *MockWalletService) DebitTx(ctx context.Context, userID int64, amount decimal.Decimal, referenceID *string, description string, settle SettleFunc) (*domain.Wallet, *domain.WalletTransaction, error) {
	args := m.Called(ctx, userID, amount, referenceID, description)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	if settle != nil {
		if err := settle(ctx, new(MockDBExecutor)); err != nil {
			return nil, nil, err
		}
	}
	return args.Get(0).(*domain.Wallet), args.Get(1).(*domain.WalletTransaction), args.Error(2)
}

func (m *MockWalletService) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletService) GetStatement(ctx context.Context, userID int64, from, to time.Time, limit, offset int) ([]domain.WalletTransaction, int64, error) {
	args := m.Called(ctx, userID, from, to, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.WalletTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockWalletService) SetFrozen(ctx context.Context, userID int64, frozen bool) error {
	args := m.Called(ctx, userID, frozen)
	return args.Error(0)
}

// MockPaymentService is a mock implementation of PaymentService for the
// webhook reconciler tests.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreatePayment(ctx context.Context, spec CreatePaymentSpec) (*PaymentResult, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentResult), args.Error(1)
}

func (m *MockPaymentService) ConfirmCODCollection(ctx context.Context, paymentID string) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) UpdateStatus(ctx context.Context, paymentID string, newStatus domain.PaymentStatus, data ProviderData) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID, newStatus, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) CancelExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) ListPayments(ctx context.Context, userID int64, limit, offset int) ([]domain.Payment, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentService) Quote(ctx context.Context, userID int64, subtotal, shipping decimal.Decimal, method domain.PaymentMethod) (*money.Summary, error) {
	args := m.Called(ctx, userID, subtotal, shipping, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*money.Summary), args.Error(1)
}

func (m *MockPaymentService) Config() domain.PaymentConfig {
	args := m.Called()
	return args.Get(0).(domain.PaymentConfig)
}

func (m *MockPaymentService) UpdateConfig(cfg domain.PaymentConfig) error {
	args := m.Called(cfg)
	return args.Error(0)
}

// MockRefundService is a mock implementation of RefundService for the
// webhook reconciler tests.
type MockRefundService struct {
	mock.Mock
}

func (m *MockRefundService) CreateRefund(ctx context.Context, req domain.RefundRequest) (*domain.RefundResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefundResponse), args.Error(1)
}

func (m *MockRefundService) FinalizeGatewayRefund(ctx context.Context, providerRefundID string, succeeded bool) error {
	args := m.Called(ctx, providerRefundID, succeeded)
	return args.Error(0)
}

func (m *MockRefundService) ListRefunds(ctx context.Context, paymentID string) ([]domain.Refund, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Refund), args.Error(1)
}
