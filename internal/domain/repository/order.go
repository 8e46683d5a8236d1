package repository

import (
	"context"

	"github.com/dukasync/storesync/internal/domain/model"
)

// OrderStore persists order records within one local tier.
type OrderStore interface {
	Save(ctx context.Context, order *model.Order) error
	Get(ctx context.Context, id string) (*model.Order, error)
	List(ctx context.Context) ([]model.Order, error)
	// Delete removes an order as part of a verified rollback.
	Delete(ctx context.Context, id string) error
	ListPendingRemoteSync(ctx context.Context, limit int) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus, remoteID string) error
	UpdateDeliveryStatus(ctx context.Context, id string, status string) error
}
