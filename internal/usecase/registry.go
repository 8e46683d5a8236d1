package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
)

// UsedCodeRegistry tracks which payment codes have already been consumed and
// by which order. The in-memory set is the fast path; every mark is also
// written through to the local tiers, and a miss falls back to the tiers and
// the order history so a restart cannot resurrect a spent code.
type UsedCodeRegistry struct {
	mu     sync.RWMutex
	used   map[string]string
	tiers  []repository.Tier
	logger *slog.Logger
}

// NewUsedCodeRegistry constructs an empty registry over the given tiers.
func NewUsedCodeRegistry(tiers []repository.Tier, logger *slog.Logger) *UsedCodeRegistry {
	return &UsedCodeRegistry{
		used:   make(map[string]string),
		tiers:  tiers,
		logger: logger,
	}
}

// Load primes the in-memory set from every tier's code store and order
// history. Tier failures are logged and skipped; the union of whatever is
// readable wins.
func (r *UsedCodeRegistry) Load(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tier := range r.tiers {
		codes, err := tier.Codes().All(ctx)
		if err != nil {
			r.logger.Warn("code registry load failed",
				slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
		}
		for code, orderID := range codes {
			r.used[code] = orderID
		}

		orders, err := tier.Orders().List(ctx)
		if err != nil {
			r.logger.Warn("order history scan failed",
				slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
			continue
		}
		for _, order := range orders {
			for _, code := range order.CodeStrings() {
				if _, ok := r.used[code]; !ok {
					r.used[code] = order.ID
				}
			}
		}
	}
	r.logger.Info("code registry loaded", slog.Int("codes", len(r.used)))
}

// IsUsed reports whether a code is already bound to an order, and to which.
// On an in-memory miss it consults the tiers before answering no.
func (r *UsedCodeRegistry) IsUsed(ctx context.Context, code string) (string, bool) {
	r.mu.RLock()
	orderID, ok := r.used[code]
	r.mu.RUnlock()
	if ok {
		return orderID, true
	}

	for _, tier := range r.tiers {
		owner, err := tier.Codes().Lookup(ctx, code)
		if err != nil {
			if !errors.Is(err, domainErrors.ErrNotFound) {
				r.logger.Warn("code lookup failed",
					slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
			}
			continue
		}
		r.mu.Lock()
		r.used[code] = owner
		r.mu.Unlock()
		return owner, true
	}
	return "", false
}

// MarkUsed binds codes to an order in memory and across the tiers. The mark
// counts as durable when at least one tier accepted it.
func (r *UsedCodeRegistry) MarkUsed(ctx context.Context, orderID string, codes []string) (model.StorageOutcome, error) {
	r.mu.Lock()
	for _, code := range codes {
		if owner, ok := r.used[code]; ok && owner != orderID {
			r.mu.Unlock()
			return nil, domainErrors.ErrDuplicateCode
		}
	}
	for _, code := range codes {
		r.used[code] = orderID
	}
	r.mu.Unlock()

	var outcome model.StorageOutcome
	for _, tier := range r.tiers {
		err := tier.Codes().Add(ctx, orderID, codes)
		if err != nil && errors.Is(err, domainErrors.ErrAlreadyExists) {
			// Another order holds the code in this tier; undo the
			// optimistic in-memory mark and refuse.
			r.release(codes)
			return nil, domainErrors.ErrDuplicateCode
		}
		outcome = append(outcome, model.StorageResult{
			Tier:    tier.Name(),
			Success: err == nil,
			Count:   len(codes),
			Err:     err,
		})
		if err != nil {
			r.logger.Warn("code registry write failed",
				slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
		}
	}

	if !outcome.Succeeded() {
		// No tier holds the mark; keep it in memory anyway, erring on
		// the side of refusing reuse.
		return outcome, fmt.Errorf("no tier accepted code marks for order %s", orderID)
	}
	return outcome, nil
}

// Release unbinds codes after a rolled-back commit.
func (r *UsedCodeRegistry) Release(ctx context.Context, codes []string) {
	r.release(codes)
	for _, tier := range r.tiers {
		if err := tier.Codes().Remove(ctx, codes); err != nil {
			r.logger.Warn("code release failed",
				slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
		}
	}
}

func (r *UsedCodeRegistry) release(codes []string) {
	r.mu.Lock()
	for _, code := range codes {
		delete(r.used, code)
	}
	r.mu.Unlock()
}

// Observe records usage discovered on the remote side during verification.
func (r *UsedCodeRegistry) Observe(ctx context.Context, code, orderID string) {
	r.mu.Lock()
	if _, ok := r.used[code]; ok {
		r.mu.Unlock()
		return
	}
	r.used[code] = orderID
	r.mu.Unlock()

	for _, tier := range r.tiers {
		if err := tier.Codes().Add(ctx, orderID, []string{code}); err != nil &&
			!errors.Is(err, domainErrors.ErrAlreadyExists) {
			r.logger.Warn("remote usage write-through failed",
				slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
		}
	}
}
