package repository

import (
	"context"

	"github.com/dukasync/storesync/internal/domain/model"
)

// ProductStore provides product access within one local tier.
type ProductStore interface {
	List(ctx context.Context) ([]model.Product, error)
	// Replace swaps the tier's full product set for the given one and
	// returns the number of records written. Implementations must map
	// capacity failures onto domain ErrLocalQuotaExceeded so callers can
	// attempt a degraded (image-stripped) retry.
	Replace(ctx context.Context, products []model.Product) (int, error)
	Delete(ctx context.Context, key string) error
}
