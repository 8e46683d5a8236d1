package errors

import "errors"

// Catalog-sync errors are recovered locally; payment errors always block the
// transaction and surface to the caller with a specific reason.
var (
	ErrNetworkUnavailable     = errors.New("network unavailable")
	ErrRemoteService          = errors.New("remote service error")
	ErrInvalidCodeFormat      = errors.New("invalid payment code format")
	ErrDuplicateCode          = errors.New("payment code already used")
	ErrAmountMismatch         = errors.New("transaction amount mismatch")
	ErrDateInvalid            = errors.New("transaction date outside allowed window")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrLocalQuotaExceeded     = errors.New("local storage quota exceeded")
	ErrReconciliationConflict = errors.New("reconciliation conflict")

	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many payment attempts")
	ErrPaymentIncomplete  = errors.New("payment incomplete")
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrOutOfStock         = errors.New("insufficient stock")
)
