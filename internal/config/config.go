// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"cargopay/internal/domain"
	"cargopay/pkg/db"
)

// GatewayConfig holds external payment-gateway credentials.
type GatewayConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string
	DB         db.Config
	Gateway    GatewayConfig
	Payments   domain.PaymentConfig
}

// LoadConfig loads configuration from the environment, reading a local .env
// file first when present. Returns an AppConfig or an error if a variable is
// set but invalid; unset variables fall back to development defaults.
func LoadConfig() (*AppConfig, error) {
	_ = godotenv.Load() // Missing .env is fine outside local development

	serverPort := envOr("SERVER_PORT", "8080")

	dbPort, err := envInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}

	feePct, err := envDecimal("PAYMENT_FEE_PERCENTAGE", "0.02")
	if err != nil {
		return nil, err
	}
	minAmount, err := envDecimal("PAYMENT_MIN_AMOUNT", "1")
	if err != nil {
		return nil, err
	}
	maxAmount, err := envDecimal("PAYMENT_MAX_AMOUNT", "500000")
	if err != nil {
		return nil, err
	}
	walletBonus, err := envDecimal("WALLET_BONUS_PERCENT", "0")
	if err != nil {
		return nil, err
	}
	walletMax, err := envDecimal("WALLET_MAX_BALANCE", "100000")
	if err != nil {
		return nil, err
	}
	walletDaily, err := envDecimal("WALLET_DAILY_LIMIT", "25000")
	if err != nil {
		return nil, err
	}
	codBase, err := envDecimal("COD_BASE_CHARGE", "50")
	if err != nil {
		return nil, err
	}
	codPct, err := envDecimal("COD_PERCENTAGE_CHARGE", "0.02")
	if err != nil {
		return nil, err
	}
	codMin, err := envDecimal("COD_MINIMUM_CHARGE", "25")
	if err != nil {
		return nil, err
	}
	codMax, err := envDecimal("COD_MAXIMUM_CHARGE", "500")
	if err != nil {
		return nil, err
	}
	codFree, err := envDecimal("COD_FREE_THRESHOLD", "0")
	if err != nil {
		return nil, err
	}
	timeoutMinutes, err := envInt("PAYMENT_TIMEOUT_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := envInt("PAYMENT_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	return &AppConfig{
		ServerPort: serverPort,
		DB: db.Config{
			Host:     envOr("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     envOr("DB_USER", "user"),
			Password: envOr("DB_PASSWORD", "password"),
			DBName:   envOr("DB_NAME", "cargopay"),
			SSLMode:  envOr("DB_SSLMODE", "disable"),
		},
		Gateway: GatewayConfig{
			BaseURL:       envOr("GATEWAY_BASE_URL", "https://api.razorpay.com"),
			KeyID:         os.Getenv("GATEWAY_KEY_ID"),
			KeySecret:     os.Getenv("GATEWAY_KEY_SECRET"),
			WebhookSecret: os.Getenv("GATEWAY_WEBHOOK_SECRET"),
		},
		Payments: domain.PaymentConfig{
			Provider:           envOr("GATEWAY_PROVIDER", "razorpay"),
			FeePercentage:      feePct,
			TaxRate:            decimal.NewFromFloat(0.18), // GST on payment charges
			MinPaymentAmount:   minAmount,
			MaxPaymentAmount:   maxAmount,
			WalletBonusPercent: walletBonus,
			WalletMaxBalance:   walletMax,
			WalletDailyLimit:   walletDaily,
			COD: domain.CODParams{
				BaseCharge:       codBase,
				PercentageCharge: codPct,
				MinimumCharge:    codMin,
				MaximumCharge:    codMax,
				FreeThreshold:    codFree,
			},
			UPIEnabled:            envBool("PAYMENT_UPI_ENABLED", true),
			CardsEnabled:          envBool("PAYMENT_CARDS_ENABLED", true),
			NetBankingEnabled:     envBool("PAYMENT_NETBANKING_ENABLED", true),
			EMIEnabled:            envBool("PAYMENT_EMI_ENABLED", false),
			CODEnabled:            envBool("PAYMENT_COD_ENABLED", true),
			PaymentTimeoutMinutes: timeoutMinutes,
			MaxPaymentAttempts:    maxAttempts,
		},
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDecimal(key, fallback string) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
