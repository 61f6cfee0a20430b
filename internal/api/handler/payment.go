// internal/api/handler/payment.go
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"cargopay/internal/api/types"
	"cargopay/internal/domain"
	"cargopay/internal/service"
	"cargopay/internal/util"
)

// DefaultTimeout bounds request handling at the router level.
const DefaultTimeout = 30 * time.Second

// maxWebhookBody bounds the raw webhook payload we will buffer.
const maxWebhookBody = 1 << 20

// PaymentHandler handles HTTP requests for the payment subsystem.
type PaymentHandler struct {
	payments service.PaymentService
	refunds  service.RefundService
	webhooks service.WebhookService
	logger   *slog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments service.PaymentService, refunds service.RefundService, webhooks service.WebhookService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		refunds:  refunds,
		webhooks: webhooks,
		logger:   logger,
	}
}

func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, logger *slog.Logger, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput), util.IsError(err, util.ErrInvalidStatusTransition):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound), util.IsError(err, util.ErrPaymentNotFound), util.IsError(err, util.ErrWalletNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrInsufficientFunds):
		statusCode = http.StatusPaymentRequired
		message = "Insufficient funds"
	case util.IsError(err, util.ErrDailyLimitExceeded):
		statusCode = http.StatusPaymentRequired
		message = "Daily wallet limit exceeded"
	case util.IsError(err, util.ErrMaxBalanceExceeded):
		statusCode = http.StatusConflict
		message = "Wallet max balance exceeded"
	case util.IsError(err, util.ErrWalletFrozen), util.IsError(err, util.ErrWalletInactive):
		statusCode = http.StatusForbidden
		message = err.Error()
	case util.IsError(err, util.ErrMethodDisabled):
		statusCode = http.StatusUnprocessableEntity
		message = "Payment method disabled"
	case util.IsError(err, util.ErrTooManyAttempts):
		statusCode = http.StatusTooManyRequests
		message = "Max payment attempts exceeded"
	case util.IsError(err, util.ErrPaymentNotRefundable):
		statusCode = http.StatusConflict
		message = "Payment is not refundable"
	case util.IsError(err, util.ErrRefundExceedsPayment):
		statusCode = http.StatusConflict
		message = "Refund exceeds refundable amount"
	case util.IsError(err, util.ErrGatewayUnavailable):
		statusCode = http.StatusBadGateway
		message = "Payment gateway unavailable, retry later"
	case util.IsError(err, util.ErrGatewayRejected):
		statusCode = http.StatusUnprocessableEntity
		message = "Payment gateway rejected the request"
	case util.IsError(err, util.ErrSignatureInvalid):
		statusCode = http.StatusUnauthorized
		message = "Signature verification failed"
	default:
		logger.Error("Unhandled service error", "error", err)
	}

	respondWithJSON(w, logger, statusCode, types.ErrorResponse{Error: message})
}

// CreatePaymentRequest is the request body for payment creation.
type CreatePaymentRequest struct {
	UserID     int64                 `json:"user_id"`
	Amount     decimal.Decimal       `json:"amount"`
	Currency   string                `json:"currency"`
	Method     domain.PaymentMethod  `json:"method"`
	Purpose    domain.PaymentPurpose `json:"purpose"`
	ShipmentID *string               `json:"shipment_id"`
	TaxAmount  decimal.Decimal       `json:"tax_amount"`
	Notes      map[string]string     `json:"notes"`
}

// CreatePayment handles POST /payments.
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.UserID <= 0 || req.Amount.IsNegative() || req.Amount.IsZero() {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	result, err := h.payments.CreatePayment(r.Context(), service.CreatePaymentSpec{
		UserID:     req.UserID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Method:     req.Method,
		Purpose:    req.Purpose,
		ShipmentID: req.ShipmentID,
		TaxAmount:  req.TaxAmount,
		Notes:      req.Notes,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}

	body := map[string]interface{}{"payment": result.Payment}
	if result.Order != nil {
		body["order_id"] = result.Order.OrderID
	}
	respondWithJSON(w, h.logger, http.StatusCreated, body)
}

// GetPayment handles GET /payments/{paymentID}.
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.payments.GetPayment(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, payment)
}

// ListPayments handles GET /payments?user_id=&limit=&offset=.
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	limit, offset := paginationParams(r, 20)

	payments, total, err := h.payments.ListPayments(r.Context(), userID, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, types.Paginated{
		Items:      payments,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	})
}

// ConfirmCOD handles POST /payments/{paymentID}/confirm-cod.
func (h *PaymentHandler) ConfirmCOD(w http.ResponseWriter, r *http.Request) {
	payment, err := h.payments.ConfirmCODCollection(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, payment)
}

// RefundRequestBody is the request body for a refund.
type RefundRequestBody struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// CreateRefund handles POST /payments/{paymentID}/refund.
func (h *PaymentHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	resp, err := h.refunds.CreateRefund(r.Context(), domain.RefundRequest{
		PaymentID: chi.URLParam(r, "paymentID"),
		Amount:    req.Amount,
		Reason:    req.Reason,
	})
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusCreated, resp)
}

// QuoteRequest is the request body for a payment quote.
type QuoteRequest struct {
	UserID   int64                `json:"user_id"`
	Subtotal decimal.Decimal      `json:"subtotal"`
	Shipping decimal.Decimal      `json:"shipping"`
	Method   domain.PaymentMethod `json:"method"`
}

// Quote handles POST /payments/quote.
func (h *PaymentHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	if req.UserID <= 0 {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	summary, err := h.payments.Quote(r.Context(), req.UserID, req.Subtotal, req.Shipping, req.Method)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, summary)
}

// Webhook handles POST /webhooks/razorpay. The body is read raw so the
// signature check runs over the exact bytes the provider signed.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}
	signature := r.Header.Get("X-Razorpay-Signature")

	result, err := h.webhooks.HandleWebhook(r.Context(), body, signature)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"event":     result.EventType,
		"duplicate": result.Duplicate,
	})
}

func paginationParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
