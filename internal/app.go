// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	router "cargopay/internal/api"
	"cargopay/internal/api/handler"
	"cargopay/internal/config"
	"cargopay/internal/gateway"
	"cargopay/internal/metrics"
	"cargopay/internal/repository"
	"cargopay/internal/repository/postgres"
	"cargopay/internal/service"
	"cargopay/internal/util"
	"cargopay/pkg/db"
)

// Application holds all the initialized components of the application.
// Lifecycle (construction, shared database handle) is owned here by the
// process bootstrap, never by first-call side effects.
type Application struct {
	Config   *config.AppConfig
	Logger   *slog.Logger
	DB       *sqlx.DB
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Repositories
	WalletRepository      repository.WalletRepository
	TransactionRepository repository.TransactionRepository
	PaymentRepository     repository.PaymentRepository
	RefundRepository      repository.RefundRepository
	WebhookRepository     repository.WebhookRepository

	// Services
	WalletService  service.WalletService
	PaymentService service.PaymentService
	RefundService  service.RefundService
	WebhookService service.WebhookService

	// Gateway
	Gateway gateway.Client

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger()
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	// 4. Metrics
	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector())
	app.Metrics = metrics.New(app.Registry)

	// 5. Initialize Repositories
	app.WalletRepository = postgres.NewWalletRepository(app.DB)
	app.TransactionRepository = postgres.NewTransactionRepository(app.DB)
	app.PaymentRepository = postgres.NewPaymentRepository(app.DB)
	app.RefundRepository = postgres.NewRefundRepository(app.DB)
	app.WebhookRepository = postgres.NewWebhookRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 6. Gateway client
	app.Gateway = gateway.NewRazorpayClient(
		app.Config.Gateway.BaseURL,
		app.Config.Gateway.KeyID,
		app.Config.Gateway.KeySecret,
		app.Config.Gateway.WebhookSecret,
	)

	// 7. Initialize Services
	notifier := service.NewLogNotifier(app.Logger)
	app.WalletService = service.NewWalletService(
		app.DB,
		app.DB,
		app.WalletRepository,
		app.TransactionRepository,
		service.WalletLimits{
			Currency:   "INR",
			MaxBalance: app.Config.Payments.WalletMaxBalance,
			DailyLimit: app.Config.Payments.WalletDailyLimit,
		},
		app.Metrics,
		app.Logger,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
	)
	app.PaymentService = service.NewPaymentService(
		app.DB,
		app.PaymentRepository,
		app.WalletService,
		app.Gateway,
		notifier,
		app.Metrics,
		app.Logger,
		app.Config.Payments,
	)
	app.RefundService = service.NewRefundService(
		app.DB,
		app.DB,
		app.PaymentRepository,
		app.RefundRepository,
		app.WalletService,
		app.Gateway,
		notifier,
		app.Logger,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
	)
	app.WebhookService = service.NewWebhookService(
		app.DB,
		app.WebhookRepository,
		app.PaymentRepository,
		app.PaymentService,
		app.RefundService,
		app.Gateway,
		app.Metrics,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 8. Initialize HTTP Handlers and Router
	paymentHandler := handler.NewPaymentHandler(app.PaymentService, app.RefundService, app.WebhookService, app.Logger)
	walletHandler := handler.NewWalletHandler(app.WalletService, app.Logger)
	app.HTTPHandler = router.NewRouter(paymentHandler, walletHandler, app.Registry, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
