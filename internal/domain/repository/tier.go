package repository

import (
	"context"

	"github.com/dukasync/storesync/internal/domain/model"
)

// Tier describes one local persistence tier behind a common interface.
// Tier A is the high-capacity indexed store, tier B the small simple store;
// reconciliation and commit code treat them uniformly and record per-tier
// outcomes as model.StorageResult.
type Tier interface {
	Name() model.TierName
	Products() ProductStore
	Orders() OrderStore
	Codes() CodeStore
	Ping(ctx context.Context) error
}
