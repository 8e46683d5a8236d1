package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
)

// RemoteCatalog is the slice of the remote store the reconciler and the
// catalog admin path need.
type RemoteCatalog interface {
	Ping(ctx context.Context) error
	FetchProducts(ctx context.Context, includeImages bool) ([]model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (string, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	DeleteProduct(ctx context.Context, remoteID string) error
}

// SyncReport summarizes one reconciliation pass.
type SyncReport struct {
	RemoteReachable bool
	Canonical       int
	Generation      uint64
	Outcome         model.StorageOutcome
}

// Reconciler pulls the product set from the remote store and both local
// tiers, merges them into one canonical collection and republishes the
// result everywhere. Passes are serialized; tier reads run concurrently.
type Reconciler struct {
	remote  RemoteCatalog
	tiers   []repository.Tier
	catalog *CatalogStore
	logger  *slog.Logger

	mu       sync.Mutex
	degraded map[model.TierName]bool
}

// NewReconciler constructs a Reconciler. Tiers are expected highest
// capacity first.
func NewReconciler(remote RemoteCatalog, tiers []repository.Tier, catalog *CatalogStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		remote:   remote,
		tiers:    tiers,
		catalog:  catalog,
		logger:   logger,
		degraded: make(map[model.TierName]bool),
	}
}

type tierRead struct {
	name     model.TierName
	products []model.Product
	err      error
}

// Reconcile runs one full pull-merge-publish pass.
func (r *Reconciler) Reconcile(ctx context.Context) *SyncReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	basedOn := r.catalog.Generation()
	remoteOK := r.remote.Ping(ctx) == nil

	var (
		remoteProducts []model.Product
		reads          = make(chan tierRead, len(r.tiers)+1)
		wg             sync.WaitGroup
	)

	if remoteOK {
		wg.Add(1)
		go func() {
			defer wg.Done()
			products, err := r.remote.FetchProducts(ctx, false)
			reads <- tierRead{name: model.TierRemote, products: products, err: err}
		}()
	}
	for _, tier := range r.tiers {
		wg.Add(1)
		go func(tier repository.Tier) {
			defer wg.Done()
			products, err := tier.Products().List(ctx)
			reads <- tierRead{name: tier.Name(), products: products, err: err}
		}(tier)
	}
	wg.Wait()
	close(reads)

	byTier := make(map[model.TierName][]model.Product, len(r.tiers)+1)
	for read := range reads {
		if read.err != nil {
			r.logger.Warn("tier read failed",
				slog.String("tier", string(read.name)), slog.String("error", read.err.Error()))
			if read.name == model.TierRemote {
				remoteOK = false
			}
			continue
		}
		byTier[read.name] = read.products
	}
	remoteProducts = byTier[model.TierRemote]

	var canonical []model.Product
	if remoteOK {
		canonical = mergeCatalogs(remoteProducts, byTier[model.TierA], byTier[model.TierB])
	} else {
		// Remote unreachable: serve the best populated local tier,
		// higher capacity winning when both have data.
		canonical = byTier[model.TierA]
		if len(canonical) == 0 {
			canonical = byTier[model.TierB]
		}
	}

	generation, err := r.catalog.Replace(canonical, basedOn)
	if err != nil {
		// An admin edit landed mid-pass; its state is newer than our
		// merge, so publish what the catalog holds now instead.
		r.logger.Info("reconcile result superseded by concurrent edit")
		canonical, generation = r.catalog.Snapshot()
	}

	var outcome model.StorageOutcome
	if remoteOK {
		pushed, pushErr := r.pushRemote(ctx, canonical)
		outcome = append(outcome, model.StorageResult{
			Tier:    model.TierRemote,
			Success: pushErr == nil,
			Count:   pushed,
			Err:     pushErr,
		})
	}
	outcome = append(outcome, r.publishTiers(ctx, remoteOK)...)

	report := &SyncReport{
		RemoteReachable: remoteOK,
		Canonical:       len(canonical),
		Generation:      generation,
		Outcome:         outcome,
	}
	r.logger.Info("reconciliation pass finished",
		slog.Bool("remote", remoteOK),
		slog.Int("products", report.Canonical),
		slog.Uint64("generation", generation))
	return report
}

// mergeCatalogs merges by composite key. Remote fields win; an image held
// only locally survives, and records that never reached the remote are kept.
func mergeCatalogs(remote, tierA, tierB []model.Product) []model.Product {
	merged := make(map[string]model.Product, len(remote))

	for _, p := range tierB {
		merged[p.Key()] = p
	}
	for _, p := range tierA {
		if prev, ok := merged[p.Key()]; ok {
			if len(p.Image) == 0 {
				p.Image = prev.Image
			}
			if p.IDs.Remote == "" {
				p.IDs.Remote = prev.IDs.Remote
			}
		}
		merged[p.Key()] = p
	}
	for _, rp := range remote {
		if lp, ok := merged[rp.Key()]; ok {
			if len(rp.Image) == 0 {
				rp.Image = lp.Image
			}
			if rp.IDs.Remote == "" {
				rp.IDs.Remote = lp.IDs.Remote
			}
			rp.IDs.Local = lp.IDs.Local
		}
		merged[rp.Key()] = rp
	}

	out := make([]model.Product, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	return out
}

// pushRemote sends local-only records to the remote store and refreshes the
// ones it already knows. Newly assigned identifiers are folded back into the
// canonical collection.
func (r *Reconciler) pushRemote(ctx context.Context, canonical []model.Product) (int, error) {
	assigned := make(map[string]string)
	pushed := 0
	var lastErr error

	for _, p := range canonical {
		if p.IDs.Primary().Kind() == model.IDRemote {
			if err := r.remote.UpdateProduct(ctx, p); err != nil {
				r.logger.Warn("remote update failed",
					slog.String("key", p.Key()), slog.String("error", err.Error()))
				lastErr = err
				continue
			}
		} else {
			remoteID, err := r.remote.CreateProduct(ctx, p)
			if err != nil {
				r.logger.Warn("remote create failed",
					slog.String("key", p.Key()), slog.String("error", err.Error()))
				lastErr = err
				continue
			}
			assigned[p.Key()] = remoteID
		}
		pushed++
	}

	if len(assigned) > 0 {
		r.catalog.Mutate(func(byKey map[string]model.Product) {
			for key, remoteID := range assigned {
				if p, ok := byKey[key]; ok {
					p.IDs.Remote = remoteID
					byKey[key] = p
				}
			}
		})
	}
	return pushed, lastErr
}

// PublishLocal pushes the current canonical set to the local tiers without
// touching the remote. Used after admin edits and inventory adjustments.
func (r *Reconciler) PublishLocal(ctx context.Context) model.StorageOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return model.StorageOutcome(r.publishTiers(ctx, true))
}

// DeleteLocal removes one record from every tier. Only called once the
// remote side confirmed the deletion.
func (r *Reconciler) DeleteLocal(ctx context.Context, key string) {
	for _, tier := range r.tiers {
		if err := tier.Products().Delete(ctx, key); err != nil {
			r.logger.Warn("tier delete failed",
				slog.String("tier", string(tier.Name())),
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
	}
}

// publishTiers writes the canonical set to each local tier in turn. A write
// that trips the tier's capacity is retried once with images stripped; a
// second failure marks the tier unavailable for the rest of the session.
// When the remote was unreachable the publish preserves records that exist
// only in the target tier, since without the remote's word a missing record
// may simply be one that never synced.
func (r *Reconciler) publishTiers(ctx context.Context, remoteOK bool) []model.StorageResult {
	canonical, _ := r.catalog.Snapshot()
	results := make([]model.StorageResult, 0, len(r.tiers))

	for _, tier := range r.tiers {
		name := tier.Name()
		if r.degraded[name] {
			results = append(results, model.StorageResult{
				Tier: name,
				Err:  domainErrors.ErrLocalQuotaExceeded,
			})
			continue
		}

		payload := canonical
		if !remoteOK {
			payload = r.unionWithExisting(ctx, tier, canonical)
		}

		count, err := tier.Products().Replace(ctx, payload)
		if err != nil {
			r.logger.Warn("tier publish failed, retrying without images",
				slog.String("tier", string(name)), slog.String("error", err.Error()))
			count, err = tier.Products().Replace(ctx, stripImages(payload))
		}
		if err != nil {
			r.logger.Error("tier unavailable for this session",
				slog.String("tier", string(name)), slog.String("error", err.Error()))
			r.degraded[name] = true
			results = append(results, model.StorageResult{Tier: name, Err: err})
			continue
		}
		results = append(results, model.StorageResult{Tier: name, Success: true, Count: count})
	}
	return results
}

// unionWithExisting folds tier-local records absent from the canonical set
// back into the publish payload.
func (r *Reconciler) unionWithExisting(ctx context.Context, tier repository.Tier, canonical []model.Product) []model.Product {
	existing, err := tier.Products().List(ctx)
	if err != nil {
		return canonical
	}

	known := make(map[string]struct{}, len(canonical))
	for _, p := range canonical {
		known[p.Key()] = struct{}{}
	}
	payload := canonical
	for _, p := range existing {
		if _, ok := known[p.Key()]; !ok {
			payload = append(payload, p)
		}
	}
	return payload
}

func stripImages(products []model.Product) []model.Product {
	stripped := make([]model.Product, len(products))
	for i, p := range products {
		p.Image = nil
		stripped[i] = p
	}
	return stripped
}

// BackfillImages fetches full image payloads from the remote store and folds
// them into catalog records that are missing one. The result is discarded if
// the catalog moved on while the fetch was in flight.
func (r *Reconciler) BackfillImages(ctx context.Context) error {
	basedOn := r.catalog.Generation()

	withImages, err := r.remote.FetchProducts(ctx, true)
	if err != nil {
		return err
	}

	images := make(map[string][]byte, len(withImages))
	for _, p := range withImages {
		if len(p.Image) > 0 {
			images[p.Key()] = p.Image
		}
	}

	err = r.catalog.ApplyIfCurrent(basedOn, func(byKey map[string]model.Product) {
		for key, image := range images {
			if p, ok := byKey[key]; ok && len(p.Image) == 0 {
				p.Image = image
				byKey[key] = p
			}
		}
	})
	if errors.Is(err, domainErrors.ErrReconciliationConflict) {
		r.logger.Info("image backfill discarded, catalog changed underneath")
		return nil
	}
	return err
}
