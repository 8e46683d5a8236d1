package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
)

// RemoteStock is the remote-side inventory adjustment used after a commit.
type RemoteStock interface {
	UpdateQuantity(ctx context.Context, remoteID string, quantity int) error
}

// checkoutSession holds one in-flight checkout. Code submissions for a
// session are strictly sequential under the session lock, so two concurrent
// submissions of the same code cannot both pass verification.
type checkoutSession struct {
	mu      sync.Mutex
	order   *model.Order
	tracker *PartialPaymentTracker
}

// SessionView is the externally visible state of a checkout session.
type SessionView struct {
	ID        string
	Total     float64
	Paid      float64
	Remaining float64
	Done      bool
	Status    model.OrderStatus
	Codes     int
}

// CodeResult reports the effect of one code submission on a session.
type CodeResult struct {
	Verdict   model.Verdict
	Remaining float64
	Done      bool
}

// CheckoutUseCase drives the customer checkout: start from a cart snapshot,
// collect payment codes until the total is covered, then hand the order to
// the commit coordinator.
type CheckoutUseCase struct {
	mu       sync.Mutex
	sessions map[string]*checkoutSession

	catalog     *CatalogStore
	reconciler  *Reconciler
	verifier    *PaymentVerifier
	coordinator *OrderCommitCoordinator
	stock       RemoteStock
	maxAttempts int
	logger      *slog.Logger
	newID       func() string
}

// NewCheckoutUseCase constructs a CheckoutUseCase.
func NewCheckoutUseCase(
	catalog *CatalogStore,
	reconciler *Reconciler,
	verifier *PaymentVerifier,
	coordinator *OrderCommitCoordinator,
	stock RemoteStock,
	maxAttempts int,
	logger *slog.Logger,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		sessions:    make(map[string]*checkoutSession),
		catalog:     catalog,
		reconciler:  reconciler,
		verifier:    verifier,
		coordinator: coordinator,
		stock:       stock,
		maxAttempts: maxAttempts,
		logger:      logger,
		newID:       newOrderID,
	}
}

func newOrderID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "ORD-" + hex.EncodeToString(buf)
}

// Start validates the cart against the canonical catalog, snapshots prices
// and opens a session.
func (u *CheckoutUseCase) Start(ctx context.Context, items []model.OrderItem) (*SessionView, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty cart: %w", domainErrors.ErrNotFound)
	}

	var total float64
	snapshot := make([]model.OrderItem, 0, len(items))
	for _, item := range items {
		product, ok := u.catalog.Get(model.CompositeKey(item.Name, item.Size))
		if !ok {
			return nil, fmt.Errorf("product %q size %q: %w", item.Name, item.Size, domainErrors.ErrNotFound)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("non-positive quantity for %q: %w", item.Name, domainErrors.ErrOutOfStock)
		}
		if product.Quantity < item.Quantity {
			return nil, fmt.Errorf("%d of %q available: %w", product.Quantity, item.Name, domainErrors.ErrOutOfStock)
		}
		price := product.EffectivePrice()
		snapshot = append(snapshot, model.OrderItem{
			Name:     product.Name,
			Size:     product.Size,
			Quantity: item.Quantity,
			Price:    price,
		})
		total += price * float64(item.Quantity)
	}

	order := &model.Order{
		ID:           u.newID(),
		Items:        snapshot,
		Total:        total,
		Verification: model.VerificationPending,
		Status:       model.OrderStatusDraft,
		CreatedAt:    time.Now(),
	}

	session := &checkoutSession{
		order:   order,
		tracker: NewPartialPaymentTracker(total, u.maxAttempts),
	}

	u.mu.Lock()
	u.sessions[order.ID] = session
	u.mu.Unlock()

	u.logger.Info("checkout started",
		slog.String("order", order.ID), slog.Float64("total", total))
	return u.view(session), nil
}

// SubmitCode verifies one payment code against the session's outstanding
// balance and credits it when accepted.
func (u *CheckoutUseCase) SubmitCode(ctx context.Context, sessionID, rawCode string) (*CodeResult, error) {
	session, err := u.session(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.tracker.Done() {
		return &CodeResult{Remaining: 0, Done: true}, nil
	}
	if err := session.tracker.NoteAttempt(); err != nil {
		return nil, err
	}

	session.order.Status = model.OrderStatusVerifying
	verdict := u.verifier.Verify(ctx, rawCode, session.tracker.Remaining())
	if !verdict.State.Accepted() {
		return &CodeResult{
			Verdict:   verdict,
			Remaining: session.tracker.Remaining(),
		}, nil
	}

	applied := session.tracker.Apply(model.PaymentCode{
		Code:          verdict.Code,
		Amount:        verdict.Amount,
		TransactionAt: verdict.TransactionAt,
		OrderID:       session.order.ID,
	})
	session.order.Codes = session.tracker.Codes()
	session.order.TotalPaid = session.tracker.Paid()
	if !applied.Done {
		session.order.Status = model.OrderStatusPartiallyPaid
	}

	u.logger.Info("payment code accepted",
		slog.String("order", session.order.ID),
		slog.Float64("amount", verdict.Amount),
		slog.Float64("remaining", applied.Remaining))
	return &CodeResult{Verdict: verdict, Remaining: applied.Remaining, Done: applied.Done}, nil
}

// Commit finalizes a fully paid session. On success the session is closed
// and inventory is adjusted; a rolled-back commit resets the session so the
// customer can pay with different codes.
func (u *CheckoutUseCase) Commit(ctx context.Context, sessionID string) (*CommitResult, error) {
	session, err := u.session(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if !session.tracker.Done() {
		return nil, fmt.Errorf("%.2f still owed: %w",
			session.tracker.Remaining(), domainErrors.ErrPaymentIncomplete)
	}

	order := session.order
	order.Codes = session.tracker.Codes()
	order.TotalPaid = session.tracker.Paid()

	result, err := u.coordinator.Commit(ctx, order)
	if err != nil {
		if order.Status == model.OrderStatusRolledBack {
			session.tracker = NewPartialPaymentTracker(order.Total, u.maxAttempts)
			order.Codes = nil
			order.TotalPaid = 0
			order.Status = model.OrderStatusDraft
		}
		return nil, err
	}

	u.adjustInventory(ctx, order.Items)

	u.mu.Lock()
	delete(u.sessions, sessionID)
	u.mu.Unlock()
	return result, nil
}

// Abandon discards an uncommitted session. Nothing was registered yet, so
// there is no registry state to compensate.
func (u *CheckoutUseCase) Abandon(sessionID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.sessions[sessionID]; !ok {
		return domainErrors.ErrSessionNotFound
	}
	delete(u.sessions, sessionID)
	return nil
}

// Get returns the current state of a session.
func (u *CheckoutUseCase) Get(sessionID string) (*SessionView, error) {
	session, err := u.session(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return u.view(session), nil
}

func (u *CheckoutUseCase) session(id string) (*checkoutSession, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	session, ok := u.sessions[id]
	if !ok {
		return nil, domainErrors.ErrSessionNotFound
	}
	return session, nil
}

func (u *CheckoutUseCase) view(session *checkoutSession) *SessionView {
	return &SessionView{
		ID:        session.order.ID,
		Total:     session.order.Total,
		Paid:      session.tracker.Paid(),
		Remaining: session.tracker.Remaining(),
		Done:      session.tracker.Done(),
		Status:    session.order.Status,
		Codes:     len(session.tracker.Codes()),
	}
}

// adjustInventory decrements sold quantities in the canonical catalog,
// pushes the new counts to the remote store best-effort and republishes the
// local tiers.
func (u *CheckoutUseCase) adjustInventory(ctx context.Context, items []model.OrderItem) {
	type adjustment struct {
		remoteID string
		quantity int
	}
	var adjustments []adjustment

	u.catalog.Mutate(func(byKey map[string]model.Product) {
		for _, item := range items {
			key := model.CompositeKey(item.Name, item.Size)
			p, ok := byKey[key]
			if !ok {
				continue
			}
			p.Quantity -= item.Quantity
			if p.Quantity < 0 {
				p.Quantity = 0
			}
			byKey[key] = p
			if remoteID, ok := p.IDs.Primary().Remote(); ok {
				adjustments = append(adjustments, adjustment{remoteID: remoteID, quantity: p.Quantity})
			}
		}
	})

	for _, adj := range adjustments {
		if err := u.stock.UpdateQuantity(ctx, adj.remoteID, adj.quantity); err != nil {
			u.logger.Warn("remote stock adjustment deferred", slog.String("error", err.Error()))
		}
	}
	u.reconciler.PublishLocal(ctx)
}
