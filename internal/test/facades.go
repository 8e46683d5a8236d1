package test

import (
	"context"

	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/usecase"
)

// CatalogFacadeStub provides controllable behaviour for product endpoints.
type CatalogFacadeStub struct {
	ProductsFn func(context.Context) []model.Product
	UpsertFn   func(context.Context, model.Product) (model.Product, error)
	DeleteFn   func(context.Context, string) error
}

// Products returns the configured listing or a single default product.
func (s CatalogFacadeStub) Products(ctx context.Context) []model.Product {
	if s.ProductsFn != nil {
		return s.ProductsFn(ctx)
	}
	return []model.Product{{Name: "Wrap Dress", Size: "M", Price: 1000, Quantity: 3}}
}

// UpsertProduct delegates to the override or echoes the product back.
func (s CatalogFacadeStub) UpsertProduct(ctx context.Context, p model.Product) (model.Product, error) {
	if s.UpsertFn != nil {
		return s.UpsertFn(ctx, p)
	}
	return p, nil
}

// DeleteProduct delegates to the override or reports success.
func (s CatalogFacadeStub) DeleteProduct(ctx context.Context, key string) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, key)
	}
	return nil
}

// CheckoutFacadeStub simulates checkout session operations.
type CheckoutFacadeStub struct {
	StartFn   func(context.Context, []model.OrderItem) (*usecase.SessionView, error)
	SubmitFn  func(context.Context, string, string) (*usecase.CodeResult, error)
	CommitFn  func(context.Context, string) (*usecase.CommitResult, error)
	StatusFn  func(string) (*usecase.SessionView, error)
	AbandonFn func(string) error
}

// StartCheckout opens a default session unless overridden.
func (s CheckoutFacadeStub) StartCheckout(ctx context.Context, items []model.OrderItem) (*usecase.SessionView, error) {
	if s.StartFn != nil {
		return s.StartFn(ctx, items)
	}
	return &usecase.SessionView{ID: "ORD-1", Total: 1000, Remaining: 1000, Status: model.OrderStatusDraft}, nil
}

// SubmitCode accepts the code in full unless overridden.
func (s CheckoutFacadeStub) SubmitCode(ctx context.Context, sessionID, code string) (*usecase.CodeResult, error) {
	if s.SubmitFn != nil {
		return s.SubmitFn(ctx, sessionID, code)
	}
	return &usecase.CodeResult{
		Verdict: model.Verdict{State: model.VerifyStateVerified, Code: code, Amount: 1000},
		Done:    true,
	}, nil
}

// CommitCheckout reports a committed order unless overridden.
func (s CheckoutFacadeStub) CommitCheckout(ctx context.Context, sessionID string) (*usecase.CommitResult, error) {
	if s.CommitFn != nil {
		return s.CommitFn(ctx, sessionID)
	}
	return &usecase.CommitResult{
		Order: &model.Order{ID: sessionID, Status: model.OrderStatusCommittedRemote},
		Outcome: model.StorageOutcome{
			{Tier: model.TierA, Success: true, Count: 1},
			{Tier: model.TierB, Success: true, Count: 1},
		},
	}, nil
}

// CheckoutStatus returns a default session view unless overridden.
func (s CheckoutFacadeStub) CheckoutStatus(sessionID string) (*usecase.SessionView, error) {
	if s.StatusFn != nil {
		return s.StatusFn(sessionID)
	}
	return &usecase.SessionView{ID: sessionID, Total: 1000, Remaining: 1000, Status: model.OrderStatusDraft}, nil
}

// AbandonCheckout delegates to the override or reports success.
func (s CheckoutFacadeStub) AbandonCheckout(sessionID string) error {
	if s.AbandonFn != nil {
		return s.AbandonFn(sessionID)
	}
	return nil
}

// AdminFacadeStub simulates back-office operations.
type AdminFacadeStub struct {
	LoginFn          func(string, string) (string, error)
	ParseFn          func(string) (string, error)
	OrdersFn         func(context.Context) ([]model.Order, error)
	OrderFn          func(context.Context, string) (*model.Order, error)
	DeliveryStatusFn func(context.Context, string, string) error
}

// Login returns a deterministic token unless overridden.
func (s AdminFacadeStub) Login(login, password string) (string, error) {
	if s.LoginFn != nil {
		return s.LoginFn(login, password)
	}
	return "token", nil
}

// ParseToken resolves every token to the default admin subject.
func (s AdminFacadeStub) ParseToken(token string) (string, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return "admin", nil
}

// Orders returns the configured order list.
func (s AdminFacadeStub) Orders(ctx context.Context) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx)
	}
	return []model.Order{{ID: "ORD-1"}}, nil
}

// Order returns one order by identifier.
func (s AdminFacadeStub) Order(ctx context.Context, id string) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, id)
	}
	return &model.Order{ID: id}, nil
}

// UpdateDeliveryStatus delegates to the override or reports success.
func (s AdminFacadeStub) UpdateDeliveryStatus(ctx context.Context, id, status string) error {
	if s.DeliveryStatusFn != nil {
		return s.DeliveryStatusFn(ctx, id, status)
	}
	return nil
}

// HealthFacadeStub reports configured store connectivity.
type HealthFacadeStub struct {
	HealthFn func(context.Context) (bool, []model.TierStatus)
}

// Health reports everything reachable unless overridden.
func (s HealthFacadeStub) Health(ctx context.Context) (bool, []model.TierStatus) {
	if s.HealthFn != nil {
		return s.HealthFn(ctx)
	}
	return true, []model.TierStatus{{Tier: model.TierA, OK: true}, {Tier: model.TierB, OK: true}}
}

// StorefrontFacadeStub aggregates facade dependencies for HTTP layer tests.
type StorefrontFacadeStub struct {
	CatalogFacadeStub
	CheckoutFacadeStub
	AdminFacadeStub
	HealthFacadeStub
}
