package handlers

import (
	"context"

	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/usecase"
)

// CatalogFacade exposes the storefront product surface.
type CatalogFacade interface {
	Products(ctx context.Context) []model.Product
	UpsertProduct(ctx context.Context, p model.Product) (model.Product, error)
	DeleteProduct(ctx context.Context, key string) error
}

// CheckoutFacade encapsulates checkout operations exposed via HTTP.
type CheckoutFacade interface {
	StartCheckout(ctx context.Context, items []model.OrderItem) (*usecase.SessionView, error)
	SubmitCode(ctx context.Context, sessionID, code string) (*usecase.CodeResult, error)
	CommitCheckout(ctx context.Context, sessionID string) (*usecase.CommitResult, error)
	CheckoutStatus(sessionID string) (*usecase.SessionView, error)
	AbandonCheckout(sessionID string) error
}

// AdminFacade provides back-office authentication and order management.
type AdminFacade interface {
	Login(login, password string) (string, error)
	ParseToken(token string) (string, error)
	Orders(ctx context.Context) ([]model.Order, error)
	Order(ctx context.Context, id string) (*model.Order, error)
	UpdateDeliveryStatus(ctx context.Context, id, status string) error
}

// HealthFacade reports store connectivity.
type HealthFacade interface {
	Health(ctx context.Context) (bool, []model.TierStatus)
}

// StorefrontFacade aggregates the full set of operations used across handlers.
type StorefrontFacade interface {
	CatalogFacade
	CheckoutFacade
	AdminFacade
	HealthFacade
}
