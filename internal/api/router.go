// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cargopay/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(paymentHandler *handler.PaymentHandler, walletHandler *handler.WalletHandler, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Payment API routes
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", paymentHandler.CreatePayment)
		r.Get("/", paymentHandler.ListPayments)
		r.Post("/quote", paymentHandler.Quote)
		r.Get("/{paymentID}", paymentHandler.GetPayment)
		r.Post("/{paymentID}/confirm-cod", paymentHandler.ConfirmCOD)
		r.Post("/{paymentID}/refund", paymentHandler.CreateRefund)
	})

	// Wallet API routes
	r.Route("/wallets", func(r chi.Router) {
		r.Get("/{userID}", walletHandler.GetWallet)
		r.Get("/{userID}/transactions", walletHandler.GetStatement)
		r.Post("/{userID}/freeze", walletHandler.SetFrozen)
	})

	// Gateway webhooks; the handler reads the body raw for signature checks
	r.Post("/webhooks/razorpay", paymentHandler.Webhook)

	return r
}
