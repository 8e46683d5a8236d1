package usecase

import (
	"fmt"
	"sync"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
)

// PartialPaymentTracker accumulates verified payment codes toward one
// order's total. The running sum always equals the sum of the accepted
// codes, and the remaining balance never goes negative.
type PartialPaymentTracker struct {
	mu          sync.Mutex
	total       float64
	paid        float64
	codes       []model.PaymentCode
	attempts    int
	maxAttempts int
}

// Application is the tracker's answer to one accepted code.
type Application struct {
	Remaining float64
	Done      bool
}

// NewPartialPaymentTracker starts a tracker for the given order total.
func NewPartialPaymentTracker(total float64, maxAttempts int) *PartialPaymentTracker {
	return &PartialPaymentTracker{total: total, maxAttempts: maxAttempts}
}

// NoteAttempt counts one code submission, accepted or not, and refuses once
// the solicitation cap is reached.
func (t *PartialPaymentTracker) NoteAttempt() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxAttempts > 0 && t.attempts >= t.maxAttempts {
		return fmt.Errorf("%d code submissions used: %w", t.attempts, domainErrors.ErrTooManyAttempts)
	}
	t.attempts++
	return nil
}

// Apply credits one accepted code and returns the updated balance.
func (t *PartialPaymentTracker) Apply(code model.PaymentCode) Application {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.codes = append(t.codes, code)
	t.paid += code.Amount
	return Application{Remaining: t.remaining(), Done: t.done()}
}

// Remaining returns how much is still owed, floored at zero.
func (t *PartialPaymentTracker) Remaining() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining()
}

// Done reports whether the total is covered within the payment tolerance.
func (t *PartialPaymentTracker) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done()
}

// Paid returns the sum of accepted code amounts.
func (t *PartialPaymentTracker) Paid() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paid
}

// Codes returns a copy of the accepted codes in submission order.
func (t *PartialPaymentTracker) Codes() []model.PaymentCode {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.PaymentCode, len(t.codes))
	copy(out, t.codes)
	return out
}

// Attempts returns how many submissions have been counted.
func (t *PartialPaymentTracker) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}

func (t *PartialPaymentTracker) remaining() float64 {
	if r := t.total - t.paid; r > 0 {
		return r
	}
	return 0
}

func (t *PartialPaymentTracker) done() bool {
	return t.total-t.paid <= model.PaymentEpsilon
}
