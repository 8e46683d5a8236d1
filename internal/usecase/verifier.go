package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dukasync/storesync/internal/domain/model"
)

const (
	codeLength = 10
	// paymentWindow bounds how old a confirmed transaction may be.
	paymentWindow = 24 * time.Hour
)

// NormalizeCode trims whitespace and uppercases a customer-supplied code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidCodeFormat reports whether a normalized code is structurally sound:
// exactly ten alphanumeric characters, at least one letter and one digit,
// and not a single repeated character.
func ValidCodeFormat(code string) bool {
	if len(code) != codeLength {
		return false
	}
	var letters, digits int
	allSame := true
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z':
			letters++
		case c >= '0' && c <= '9':
			digits++
		default:
			return false
		}
		if c != code[0] {
			allSame = false
		}
	}
	if allSame {
		return false
	}
	return letters > 0 && digits > 0
}

// TransactionChecker is the remote ledger lookup the verifier depends on.
type TransactionChecker interface {
	VerifyCode(ctx context.Context, code string, amount float64, date time.Time) (*model.RemoteTransaction, error)
}

// PaymentVerifier walks one payment code through the verification state
// machine. Any failure to obtain a positive remote confirmation blocks the
// code; unreachable never means approved.
type PaymentVerifier struct {
	registry *UsedCodeRegistry
	remote   TransactionChecker
	logger   *slog.Logger
	now      func() time.Time
}

// NewPaymentVerifier constructs a PaymentVerifier.
func NewPaymentVerifier(registry *UsedCodeRegistry, remote TransactionChecker, logger *slog.Logger) *PaymentVerifier {
	return &PaymentVerifier{
		registry: registry,
		remote:   remote,
		logger:   logger,
		now:      time.Now,
	}
}

// Verify runs the state machine for one code against the amount still owed.
// The returned verdict is always in a terminal state.
func (v *PaymentVerifier) Verify(ctx context.Context, rawCode string, expected float64) model.Verdict {
	verdict := model.Verdict{
		State: model.VerifyStateSubmitted,
		Code:  NormalizeCode(rawCode),
	}

	for !verdict.State.Terminal() {
		verdict = v.advance(ctx, verdict, expected)
	}

	if !verdict.State.Accepted() {
		v.logger.Info("payment code rejected",
			slog.String("state", string(verdict.State)))
	}
	return verdict
}

// advance performs one transition of the verification state machine.
func (v *PaymentVerifier) advance(ctx context.Context, verdict model.Verdict, expected float64) model.Verdict {
	switch verdict.State {
	case model.VerifyStateSubmitted:
		if !ValidCodeFormat(verdict.Code) {
			verdict.State = model.VerifyStateInvalidFormat
			return verdict
		}
		verdict.State = model.VerifyStateLocalDupCheck
		return verdict

	case model.VerifyStateLocalDupCheck:
		if owner, used := v.registry.IsUsed(ctx, verdict.Code); used {
			verdict.State = model.VerifyStateDuplicate
			verdict.BoundOrder = owner
			return verdict
		}
		verdict.State = model.VerifyStateRemoteCheck
		return verdict

	case model.VerifyStateRemoteCheck:
		tx, err := v.remote.VerifyCode(ctx, verdict.Code, expected, v.now())
		if err != nil {
			v.logger.Warn("remote verification unavailable, blocking code",
				slog.String("error", err.Error()))
			verdict.State = model.VerifyStateServiceError
			return verdict
		}
		return v.classify(ctx, verdict, tx, expected)

	default:
		return verdict
	}
}

// classify turns the remote ledger's answer into a terminal verdict.
// Overpayment is refused outright even when the transaction date is also
// bad; an underpayment only counts as partial when the date is valid.
func (v *PaymentVerifier) classify(ctx context.Context, verdict model.Verdict, tx *model.RemoteTransaction, expected float64) model.Verdict {
	if tx == nil || !tx.Found {
		verdict.State = model.VerifyStateNotFound
		return verdict
	}
	if tx.AlreadyUsed {
		v.registry.Observe(ctx, verdict.Code, "remote")
		verdict.State = model.VerifyStateDuplicate
		return verdict
	}

	verdict.Amount = tx.Amount
	verdict.TransactionAt = tx.TransactionAt

	diff := tx.Amount - expected
	switch {
	case diff >= model.PaymentEpsilon:
		verdict.State = model.VerifyStateAmountMismatch
	case diff > -model.PaymentEpsilon:
		verdict.State = v.dated(tx, model.VerifyStateVerified)
	default:
		verdict.State = v.dated(tx, model.VerifyStatePartial)
	}
	return verdict
}

// dated accepts the candidate state only when the transaction timestamp is
// present, not in the future and within the payment window.
func (v *PaymentVerifier) dated(tx *model.RemoteTransaction, accepted model.VerifyState) model.VerifyState {
	if tx.TransactionAt.IsZero() {
		return model.VerifyStateDateInvalid
	}
	age := v.now().Sub(tx.TransactionAt)
	if age < 0 || age > paymentWindow {
		return model.VerifyStateDateInvalid
	}
	return accepted
}
