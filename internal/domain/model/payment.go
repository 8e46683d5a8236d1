package model

import (
	"time"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
)

// PaymentCode is a customer-supplied transaction token, normalized to
// uppercase. Once bound to a committed order it is globally unusable by any
// other order.
type PaymentCode struct {
	Code          string    `json:"code"`
	Amount        float64   `json:"amount"`
	TransactionAt time.Time `json:"transaction_at"`
	OrderID       string    `json:"order_id,omitempty"`
}

// VerifyState enumerates the payment verifier state machine. Only
// VerifyStateVerified and VerifyStatePartial allow the checkout to proceed;
// every other terminal state blocks.
type VerifyState string

const (
	VerifyStateSubmitted     VerifyState = "SUBMITTED"
	VerifyStateLocalDupCheck VerifyState = "LOCAL_DUP_CHECK"
	VerifyStateRemoteCheck   VerifyState = "REMOTE_CHECK"

	VerifyStateVerified       VerifyState = "VERIFIED"
	VerifyStatePartial        VerifyState = "PARTIAL"
	VerifyStateInvalidFormat  VerifyState = "INVALID_FORMAT"
	VerifyStateDuplicate      VerifyState = "REJECTED_DUPLICATE"
	VerifyStateAmountMismatch VerifyState = "AMOUNT_MISMATCH"
	VerifyStateDateInvalid    VerifyState = "DATE_INVALID"
	VerifyStateNotFound       VerifyState = "NOT_FOUND"
	VerifyStateServiceError   VerifyState = "SERVICE_ERROR"
)

// Terminal reports whether the state ends the verification attempt.
func (s VerifyState) Terminal() bool {
	switch s {
	case VerifyStateSubmitted, VerifyStateLocalDupCheck, VerifyStateRemoteCheck:
		return false
	}
	return true
}

// Accepted reports whether the state credits money toward the order.
func (s VerifyState) Accepted() bool {
	return s == VerifyStateVerified || s == VerifyStatePartial
}

// Err maps a blocking terminal state onto its domain error. Accepted and
// non-terminal states carry none.
func (s VerifyState) Err() error {
	switch s {
	case VerifyStateInvalidFormat:
		return domainErrors.ErrInvalidCodeFormat
	case VerifyStateDuplicate:
		return domainErrors.ErrDuplicateCode
	case VerifyStateAmountMismatch:
		return domainErrors.ErrAmountMismatch
	case VerifyStateDateInvalid:
		return domainErrors.ErrDateInvalid
	case VerifyStateNotFound:
		return domainErrors.ErrTransactionNotFound
	case VerifyStateServiceError:
		return domainErrors.ErrRemoteService
	}
	return nil
}

// Verdict is the outcome of one verification attempt. Amount carries the
// amount actually confirmed by the remote ledger; for VerifyStatePartial it
// is less than the amount the caller expected.
type Verdict struct {
	State         VerifyState
	Code          string
	Amount        float64
	TransactionAt time.Time
	// BoundOrder names the order already holding the code when the state
	// is REJECTED_DUPLICATE.
	BoundOrder string
}

// RemoteTransaction is the remote ledger's view of a payment code.
type RemoteTransaction struct {
	Found         bool
	Amount        float64
	TransactionAt time.Time
	// AlreadyUsed is set when the ledger reports the code as consumed by a
	// previously committed order.
	AlreadyUsed bool
}
