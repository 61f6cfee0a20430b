// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound                = errors.New("resource not found")
	ErrInvalidInput            = errors.New("invalid input provided")
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrWalletInactive          = errors.New("wallet is deactivated")
	ErrWalletFrozen            = errors.New("wallet is frozen")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrDailyLimitExceeded      = errors.New("daily wallet limit exceeded")
	ErrMaxBalanceExceeded      = errors.New("wallet max balance exceeded")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrMethodDisabled          = errors.New("payment method disabled")
	ErrTooManyAttempts         = errors.New("max payment attempts exceeded")
	ErrInvalidStatusTransition = errors.New("invalid payment status transition")
	ErrPaymentNotRefundable    = errors.New("payment is not refundable")
	ErrRefundExceedsPayment    = errors.New("refund exceeds refundable amount")
	ErrGatewayUnavailable      = errors.New("payment gateway unavailable") // Transient, retryable
	ErrGatewayRejected         = errors.New("payment gateway rejected the request")
	ErrSignatureInvalid        = errors.New("signature verification failed")
	ErrDuplicateEntry          = errors.New("duplicate entry")
	ErrConcurrentUpdate        = errors.New("concurrent wallet update") // CAS conflict, retried internally
)

// IsError reports whether err matches the target sentinel.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
