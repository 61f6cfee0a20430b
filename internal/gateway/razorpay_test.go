// internal/gateway/razorpay_test.go
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargopay/internal/util"
)

func sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpayClient_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("sends minor units with basic auth", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/orders", r.URL.Path)
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "key_id", user)
			assert.Equal(t, "key_secret", pass)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, float64(102050), body["amount"], "1020.50 rupees in paise")
			assert.Equal(t, "INR", body["currency"])
			assert.Equal(t, "pay_1", body["receipt"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": "order_abc", "amount": 102050, "currency": "INR", "receipt": "pay_1", "status": "created"}`))
		}))
		defer server.Close()

		client := NewRazorpayClient(server.URL, "key_id", "key_secret", "whsec")
		order, err := client.CreateOrder(ctx, decimal.RequireFromString("1020.50"), "INR", "pay_1", nil)

		require.NoError(t, err)
		assert.Equal(t, "order_abc", order.OrderID)
		assert.Equal(t, int64(102050), order.AmountMinor)
		assert.Equal(t, "created", order.Status)
	})

	t.Run("5xx maps to retryable unavailability", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewRazorpayClient(server.URL, "key_id", "key_secret", "whsec")
		_, err := client.CreateOrder(ctx, decimal.NewFromInt(100), "INR", "pay_1", nil)

		assert.ErrorIs(t, err, util.ErrGatewayUnavailable)
	})

	t.Run("4xx maps to authoritative rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error": {"description": "amount too small"}}`))
		}))
		defer server.Close()

		client := NewRazorpayClient(server.URL, "key_id", "key_secret", "whsec")
		_, err := client.CreateOrder(ctx, decimal.NewFromInt(100), "INR", "pay_1", nil)

		assert.ErrorIs(t, err, util.ErrGatewayRejected)
		assert.NotErrorIs(t, err, util.ErrGatewayUnavailable)
	})

	t.Run("transport failure maps to unavailability", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // Refuse all connections

		client := NewRazorpayClient(server.URL, "key_id", "key_secret", "whsec")
		_, err := client.CreateOrder(ctx, decimal.NewFromInt(100), "INR", "pay_1", nil)

		assert.ErrorIs(t, err, util.ErrGatewayUnavailable)
	})
}

func TestRazorpayClient_CreateRefund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/rzp_pay_1/refund", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(30000), body["amount"])

		_, _ = w.Write([]byte(`{"id": "rfnd_1", "payment_id": "rzp_pay_1", "amount": 30000, "status": "pending"}`))
	}))
	defer server.Close()

	client := NewRazorpayClient(server.URL, "key_id", "key_secret", "whsec")
	ref, err := client.CreateRefund(context.Background(), "rzp_pay_1", decimal.NewFromInt(300), map[string]string{"reason": "damaged"})

	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", ref.RefundID)
	assert.Equal(t, int64(30000), ref.AmountMinor)
}

func TestRazorpayClient_FetchPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/rzp_pay_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": "rzp_pay_1", "order_id": "order_abc", "amount": 102050, "currency": "INR", "status": "captured", "method": "upi"}`))
	}))
	defer server.Close()

	client := NewRazorpayClient(server.URL, "key_id", "key_secret", "whsec")
	details, err := client.FetchPayment(context.Background(), "rzp_pay_1")

	require.NoError(t, err)
	assert.Equal(t, "order_abc", details.OrderID)
	assert.Equal(t, "captured", details.Status)
}

func TestRazorpayClient_Signatures(t *testing.T) {
	client := NewRazorpayClient("http://unused", "key_id", "key_secret", "whsec")

	t.Run("payment signature over orderID|paymentID", func(t *testing.T) {
		sig := sign("order_abc|rzp_pay_1", "key_secret")
		assert.True(t, client.VerifyPaymentSignature("order_abc", "rzp_pay_1", sig))
		assert.False(t, client.VerifyPaymentSignature("order_abc", "rzp_pay_2", sig))
		assert.False(t, client.VerifyPaymentSignature("order_abc", "rzp_pay_1", "forged"))
	})

	t.Run("webhook signature over the raw body", func(t *testing.T) {
		body := []byte(`{"event": "payment.captured"}`)
		sig := sign(string(body), "whsec")
		assert.True(t, client.VerifyWebhookSignature(body, sig))
		assert.False(t, client.VerifyWebhookSignature(append(body, ' '), sig), "any body mutation must invalidate")
		assert.False(t, client.VerifyWebhookSignature(body, sign(string(body), "wrong_secret")))
	})
}
