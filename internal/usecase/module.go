package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/dukasync/storesync/internal/config"
	"github.com/dukasync/storesync/internal/pkg/auth"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewCatalogStore,
	NewReconciler,
	NewUsedCodeRegistry,
	NewPaymentVerifier,
	NewOrderCommitCoordinator,
	NewCatalogUseCase,
	newCheckoutUseCase,
	newAdminAuthUseCase,
	NewOrderAdminUseCase,
)

type checkoutParams struct {
	fx.In

	Catalog     *CatalogStore
	Reconciler  *Reconciler
	Verifier    *PaymentVerifier
	Coordinator *OrderCommitCoordinator
	Stock       RemoteStock
	Config      *config.Config
	Logger      *slog.Logger
}

func newCheckoutUseCase(p checkoutParams) *CheckoutUseCase {
	return NewCheckoutUseCase(p.Catalog, p.Reconciler, p.Verifier, p.Coordinator,
		p.Stock, p.Config.MaxCodeAttempts, p.Logger)
}

type adminAuthParams struct {
	fx.In

	Config   *config.Config
	Hasher   auth.PasswordHasher
	Strategy auth.Strategy
	Logger   *slog.Logger
}

func newAdminAuthUseCase(p adminAuthParams) *AdminAuthUseCase {
	creds := AdminCredentials{
		Login:        p.Config.AdminLogin,
		PasswordHash: p.Config.AdminPasswordHash,
	}
	return NewAdminAuthUseCase(creds, p.Hasher, p.Strategy, p.Logger)
}
