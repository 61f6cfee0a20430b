// internal/gateway/gateway.go
package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderRef is a gateway-side order/intent created for a pending payment.
type OrderRef struct {
	OrderID     string `json:"order_id"`
	AmountMinor int64  `json:"amount"` // Minor units (paise)
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// PaymentDetails is the gateway's view of a payment.
type PaymentDetails struct {
	PaymentID   string `json:"payment_id"`
	OrderID     string `json:"order_id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Method      string `json:"method"`
}

// RefundRef is a gateway-side refund created against a captured payment.
type RefundRef struct {
	RefundID    string `json:"refund_id"`
	PaymentID   string `json:"payment_id"`
	AmountMinor int64  `json:"amount"`
	Status      string `json:"status"`
}

// Client is the outbound contract to the external payment gateway.
// Implementations must surface transport failures as util.ErrGatewayUnavailable
// (retryable) and authoritative rejections as util.ErrGatewayRejected, so
// callers never conflate the two.
type Client interface {
	// Provider returns the gateway name used in payment and webhook records.
	Provider() string
	// CreateOrder creates a gateway order for the given amount.
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*OrderRef, error)
	// FetchPayment looks up payment details by the provider's payment id.
	FetchPayment(ctx context.Context, providerPaymentID string) (*PaymentDetails, error)
	// CreateRefund requests a gateway-side refund against a captured payment.
	CreateRefund(ctx context.Context, providerPaymentID string, amount decimal.Decimal, notes map[string]string) (*RefundRef, error)
	// VerifyPaymentSignature checks the checkout callback signature computed
	// over "orderID|paymentID". Constant-time.
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	// VerifyWebhookSignature checks the webhook signature computed over the
	// raw request body, byte-for-byte. Constant-time.
	VerifyWebhookSignature(body []byte, signature string) bool
}
