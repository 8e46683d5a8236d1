package app

import (
	"context"
	"fmt"

	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
	"github.com/dukasync/storesync/internal/usecase"
)

// RemoteProbe is the reachability view of the remote store the facade needs.
type RemoteProbe interface {
	Ping(ctx context.Context) error
	Reachable() bool
}

// StorefrontFacade aggregates the use cases behind a single surface consumed
// by the HTTP handlers and the background processor.
type StorefrontFacade struct {
	catalog    *usecase.CatalogUseCase
	checkout   *usecase.CheckoutUseCase
	adminAuth  *usecase.AdminAuthUseCase
	orderAdmin *usecase.OrderAdminUseCase

	reconciler  *usecase.Reconciler
	registry    *usecase.UsedCodeRegistry
	coordinator *usecase.OrderCommitCoordinator
	tiers       []repository.Tier
	remote      RemoteProbe
}

// NewStorefrontFacade constructs the facade.
func NewStorefrontFacade(
	catalog *usecase.CatalogUseCase,
	checkout *usecase.CheckoutUseCase,
	adminAuth *usecase.AdminAuthUseCase,
	orderAdmin *usecase.OrderAdminUseCase,
	reconciler *usecase.Reconciler,
	registry *usecase.UsedCodeRegistry,
	coordinator *usecase.OrderCommitCoordinator,
	tiers []repository.Tier,
	remote RemoteProbe,
) *StorefrontFacade {
	return &StorefrontFacade{
		catalog:     catalog,
		checkout:    checkout,
		adminAuth:   adminAuth,
		orderAdmin:  orderAdmin,
		reconciler:  reconciler,
		registry:    registry,
		coordinator: coordinator,
		tiers:       tiers,
		remote:      remote,
	}
}

// Bootstrap primes the code registry and runs the initial reconciliation
// pass.
func (f *StorefrontFacade) Bootstrap(ctx context.Context) {
	f.registry.Load(ctx)
	f.reconciler.Reconcile(ctx)
}

// --- storefront ---

func (f *StorefrontFacade) Products(ctx context.Context) []model.Product {
	return f.catalog.Products(ctx)
}

func (f *StorefrontFacade) StartCheckout(ctx context.Context, items []model.OrderItem) (*usecase.SessionView, error) {
	return f.checkout.Start(ctx, items)
}

func (f *StorefrontFacade) SubmitCode(ctx context.Context, sessionID, code string) (*usecase.CodeResult, error) {
	return f.checkout.SubmitCode(ctx, sessionID, code)
}

func (f *StorefrontFacade) CommitCheckout(ctx context.Context, sessionID string) (*usecase.CommitResult, error) {
	return f.checkout.Commit(ctx, sessionID)
}

func (f *StorefrontFacade) CheckoutStatus(sessionID string) (*usecase.SessionView, error) {
	return f.checkout.Get(sessionID)
}

func (f *StorefrontFacade) AbandonCheckout(sessionID string) error {
	return f.checkout.Abandon(sessionID)
}

// --- back office ---

func (f *StorefrontFacade) Login(login, password string) (string, error) {
	return f.adminAuth.Login(login, password)
}

func (f *StorefrontFacade) ParseToken(token string) (string, error) {
	return f.adminAuth.ParseToken(token)
}

func (f *StorefrontFacade) UpsertProduct(ctx context.Context, p model.Product) (model.Product, error) {
	return f.catalog.Upsert(ctx, p)
}

func (f *StorefrontFacade) DeleteProduct(ctx context.Context, key string) error {
	return f.catalog.Delete(ctx, key)
}

func (f *StorefrontFacade) Orders(ctx context.Context) ([]model.Order, error) {
	return f.orderAdmin.Orders(ctx)
}

func (f *StorefrontFacade) Order(ctx context.Context, id string) (*model.Order, error) {
	return f.orderAdmin.Order(ctx, id)
}

func (f *StorefrontFacade) UpdateDeliveryStatus(ctx context.Context, id, status string) error {
	return f.orderAdmin.UpdateDeliveryStatus(ctx, id, status)
}

// --- background processing ---

func (f *StorefrontFacade) Reconcile(ctx context.Context) {
	f.reconciler.Reconcile(ctx)
}

func (f *StorefrontFacade) PendingRemoteOrders(ctx context.Context, limit int) ([]model.Order, error) {
	var lastErr error
	for _, tier := range f.tiers {
		pending, err := tier.Orders().ListPendingRemoteSync(ctx, limit)
		if err != nil {
			lastErr = err
			continue
		}
		return pending, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("no tier could list pending orders: %w", lastErr)
	}
	return nil, nil
}

func (f *StorefrontFacade) ReplayOrder(ctx context.Context, order *model.Order) error {
	_, err := f.coordinator.Replay(ctx, order)
	return err
}

// --- health ---

// Health probes the remote store and every local tier.
func (f *StorefrontFacade) Health(ctx context.Context) (bool, []model.TierStatus) {
	remoteOK := f.remote.Ping(ctx) == nil

	statuses := make([]model.TierStatus, 0, len(f.tiers))
	for _, tier := range f.tiers {
		statuses = append(statuses, model.TierStatus{
			Tier: tier.Name(),
			OK:   tier.Ping(ctx) == nil,
		})
	}
	return remoteOK, statuses
}
