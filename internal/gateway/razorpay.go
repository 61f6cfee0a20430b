// internal/gateway/razorpay.go
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"cargopay/internal/money"
	"cargopay/internal/util"
)

const defaultHTTPTimeout = 10 * time.Second

// RazorpayClient talks to the Razorpay REST API over basic auth.
type RazorpayClient struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	httpClient    *http.Client
}

// NewRazorpayClient creates a gateway client. baseURL is overridable for tests.
func NewRazorpayClient(baseURL, keyID, keySecret, webhookSecret string) *RazorpayClient {
	return &RazorpayClient{
		baseURL:       baseURL,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Provider returns the gateway name used in payment and webhook records.
func (c *RazorpayClient) Provider() string { return "razorpay" }

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
}

type razorpayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// CreateOrder creates a gateway order. Amounts are sent in minor units.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*OrderRef, error) {
	body := map[string]interface{}{
		"amount":   money.ToMinorUnits(amount),
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	var order razorpayOrder
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}
	return &OrderRef{
		OrderID:     order.ID,
		AmountMinor: order.Amount,
		Currency:    order.Currency,
		Receipt:     order.Receipt,
		Status:      order.Status,
	}, nil
}

// FetchPayment looks up payment details by the provider's payment id.
func (c *RazorpayClient) FetchPayment(ctx context.Context, providerPaymentID string) (*PaymentDetails, error) {
	var p razorpayPayment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+providerPaymentID, nil, &p); err != nil {
		return nil, err
	}
	return &PaymentDetails{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		AmountMinor: p.Amount,
		Currency:    p.Currency,
		Status:      p.Status,
		Method:      p.Method,
	}, nil
}

// CreateRefund requests a gateway-side refund against a captured payment.
func (c *RazorpayClient) CreateRefund(ctx context.Context, providerPaymentID string, amount decimal.Decimal, notes map[string]string) (*RefundRef, error) {
	body := map[string]interface{}{
		"amount": money.ToMinorUnits(amount),
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	var r razorpayRefund
	if err := c.do(ctx, http.MethodPost, "/v1/payments/"+providerPaymentID+"/refund", body, &r); err != nil {
		return nil, err
	}
	return &RefundRef{
		RefundID:    r.ID,
		PaymentID:   r.PaymentID,
		AmountMinor: r.Amount,
		Status:      r.Status,
	}, nil
}

// VerifyPaymentSignature checks the checkout callback signature computed over
// "orderID|paymentID" with the key secret.
func (c *RazorpayClient) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC([]byte(orderID+"|"+paymentID), signature, c.keySecret)
}

// VerifyWebhookSignature checks the webhook signature computed over the raw
// request body with the webhook secret.
func (c *RazorpayClient) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHMAC(body, signature, c.webhookSecret)
}

// verifyHMAC compares an HMAC-SHA256 hex digest in constant time.
func verifyHMAC(message []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// do executes one API call. Transport failures and 5xx responses map to
// util.ErrGatewayUnavailable so callers can retry; 4xx responses are
// authoritative rejections.
func (c *RazorpayClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway request encode: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("gateway request build: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", util.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: gateway returned %d", util.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: %d %s", util.ErrGatewayRejected, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("gateway response decode: %w", err)
		}
	}
	return nil
}
