package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
)

// CatalogStore owns the canonical in-memory product collection. All
// reconciliation and admin-edit paths serialize through it, and every
// replacement bumps a generation marker so late-arriving async results can
// be detected and discarded instead of clobbering newer state.
type CatalogStore struct {
	mu         sync.RWMutex
	generation uint64
	byKey      map[string]model.Product
}

// NewCatalogStore creates an empty canonical catalog.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{byKey: make(map[string]model.Product)}
}

// Generation returns the current version marker.
func (s *CatalogStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Snapshot returns the canonical set sorted by composite key together with
// the generation it was taken at.
func (s *CatalogStore) Snapshot() ([]model.Product, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]model.Product, 0, len(s.byKey))
	for _, p := range s.byKey {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].Key() < products[j].Key()
	})
	return products, s.generation
}

// Get looks up one product by composite key.
func (s *CatalogStore) Get(key string) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byKey[key]
	return p, ok
}

// Replace swaps the canonical set for the merged result of a reconciliation
// pass. The caller passes the generation it based the merge on; if the
// catalog moved on since, the stale result is rejected.
func (s *CatalogStore) Replace(products []model.Product, basedOn uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != basedOn {
		return s.generation, fmt.Errorf("catalog moved from generation %d to %d: %w",
			basedOn, s.generation, domainErrors.ErrReconciliationConflict)
	}

	next := make(map[string]model.Product, len(products))
	for _, p := range products {
		next[p.Key()] = p
	}
	s.byKey = next
	s.generation++
	return s.generation, nil
}

// Mutate is the single mutation entry point for admin edits and inventory
// adjustments. The callback sees the live map keyed by composite key.
func (s *CatalogStore) Mutate(fn func(map[string]model.Product)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.byKey)
	s.generation++
	return s.generation
}

// ApplyIfCurrent applies an async completion only if the catalog is still at
// the generation the work was started from.
func (s *CatalogStore) ApplyIfCurrent(basedOn uint64, fn func(map[string]model.Product)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != basedOn {
		return fmt.Errorf("discarding stale update for generation %d (now %d): %w",
			basedOn, s.generation, domainErrors.ErrReconciliationConflict)
	}
	fn(s.byKey)
	s.generation++
	return nil
}

// CatalogUseCase exposes catalog reads and admin mutations. Edits go to the
// remote store first when it is reachable, then through the canonical
// collection, then out to the local tiers.
type CatalogUseCase struct {
	catalog    *CatalogStore
	reconciler *Reconciler
	remote     RemoteCatalog
	logger     *slog.Logger
}

// NewCatalogUseCase constructs CatalogUseCase.
func NewCatalogUseCase(catalog *CatalogStore, reconciler *Reconciler, remote RemoteCatalog, logger *slog.Logger) *CatalogUseCase {
	return &CatalogUseCase{catalog: catalog, reconciler: reconciler, remote: remote, logger: logger}
}

// Products returns the canonical product set.
func (u *CatalogUseCase) Products(ctx context.Context) []model.Product {
	products, _ := u.catalog.Snapshot()
	return products
}

// Upsert creates or updates a product. The remote write is attempted first
// so the authoritative identifier can be captured; if the remote is
// unreachable the edit stays local and reaches the remote on a later
// reconciliation pass.
func (u *CatalogUseCase) Upsert(ctx context.Context, p model.Product) (model.Product, error) {
	if p.Name == "" || p.Size == "" {
		return model.Product{}, fmt.Errorf("product name and size required: %w", domainErrors.ErrInvalidProduct)
	}
	if p.Discount < 0 || p.Discount > 100 {
		return model.Product{}, fmt.Errorf("discount out of range: %w", domainErrors.ErrInvalidProduct)
	}
	if p.Quantity < 0 {
		p.Quantity = 0
	}

	if existing, ok := u.catalog.Get(p.Key()); ok {
		if p.IDs.Remote == "" {
			p.IDs.Remote = existing.IDs.Remote
		}
		if len(p.Image) == 0 {
			p.Image = existing.Image
		}
	}

	if p.IDs.Primary().Kind() == model.IDRemote {
		if err := u.remote.UpdateProduct(ctx, p); err != nil {
			u.logger.Warn("remote product update deferred",
				slog.String("key", p.Key()), slog.String("error", err.Error()))
		}
	} else {
		remoteID, err := u.remote.CreateProduct(ctx, p)
		if err != nil {
			u.logger.Warn("remote product create deferred",
				slog.String("key", p.Key()), slog.String("error", err.Error()))
		} else {
			p.IDs.Remote = remoteID
		}
	}

	u.catalog.Mutate(func(byKey map[string]model.Product) {
		byKey[p.Key()] = p
	})

	u.reconciler.PublishLocal(ctx)
	return p, nil
}

// Delete removes a product. Deletion is authoritative only from the remote
// side: without remote confirmation the record is never hard-deleted from
// the local tiers.
func (u *CatalogUseCase) Delete(ctx context.Context, key string) error {
	p, ok := u.catalog.Get(key)
	if !ok {
		return domainErrors.ErrNotFound
	}

	if remoteID, ok := p.IDs.Primary().Remote(); ok {
		if err := u.remote.DeleteProduct(ctx, remoteID); err != nil {
			return fmt.Errorf("remote delete not confirmed: %w", err)
		}
	}

	u.catalog.Mutate(func(byKey map[string]model.Product) {
		delete(byKey, key)
	})

	u.reconciler.DeleteLocal(ctx, key)
	u.reconciler.PublishLocal(ctx)
	return nil
}
