package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukasync/storesync/internal/adapter/remote"
	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
)

// RemoteOrders is the slice of the remote store the commit path needs.
type RemoteOrders interface {
	CreateOrder(ctx context.Context, order *model.Order) (string, error)
}

// CommitResult reports where a commit attempt landed.
type CommitResult struct {
	Order   *model.Order
	Outcome model.StorageOutcome
	// Warning is set when the order committed locally but the remote leg is
	// still outstanding.
	Warning string
}

// OrderCommitCoordinator drives the local-first commit sequence: re-check
// the codes, persist the order across the tiers, bind the codes in the
// registry, then forward to the remote store. A rejection the remote
// explicitly recognizes rolls the local leg back; any other remote failure
// leaves the order queued for background replay.
type OrderCommitCoordinator struct {
	registry *UsedCodeRegistry
	tiers    []repository.Tier
	remote   RemoteOrders
	logger   *slog.Logger
}

// NewOrderCommitCoordinator constructs an OrderCommitCoordinator.
func NewOrderCommitCoordinator(registry *UsedCodeRegistry, tiers []repository.Tier, remote RemoteOrders, logger *slog.Logger) *OrderCommitCoordinator {
	return &OrderCommitCoordinator{
		registry: registry,
		tiers:    tiers,
		remote:   remote,
		logger:   logger,
	}
}

// Commit runs the full sequence for a fully paid order.
func (c *OrderCommitCoordinator) Commit(ctx context.Context, order *model.Order) (*CommitResult, error) {
	codes := order.CodeStrings()

	// Final duplicate re-check: another order may have consumed one of the
	// codes between verification and commit.
	for _, code := range codes {
		if owner, used := c.registry.IsUsed(ctx, code); used && owner != order.ID {
			order.Verification = model.VerificationDuplicate
			return nil, fmt.Errorf("code bound to order %s: %w", owner, domainErrors.ErrDuplicateCode)
		}
	}

	order.Status = model.OrderStatusCommitLocal
	order.Verification = model.VerificationVerified
	order.UpdatedAt = time.Now()

	outcome := c.saveLocal(ctx, order)
	if !outcome.Succeeded() {
		order.Status = model.OrderStatusDraft
		return nil, fmt.Errorf("order %s not durable on any tier", order.ID)
	}

	if _, err := c.registry.MarkUsed(ctx, order.ID, codes); err != nil {
		if errors.Is(err, domainErrors.ErrDuplicateCode) {
			c.rollbackLocal(ctx, order, nil)
			return nil, err
		}
		c.logger.Warn("code marks not durable", slog.String("order", order.ID),
			slog.String("error", err.Error()))
	}

	return c.forward(ctx, order, outcome)
}

// Replay retries the remote leg of an order stuck in PENDING_REMOTE_SYNC.
func (c *OrderCommitCoordinator) Replay(ctx context.Context, order *model.Order) (*CommitResult, error) {
	if order.Status != model.OrderStatusPendingRemoteSync {
		return &CommitResult{Order: order}, nil
	}
	return c.forward(ctx, order, nil)
}

// forward performs the remote commit and classifies the outcome.
func (c *OrderCommitCoordinator) forward(ctx context.Context, order *model.Order, outcome model.StorageOutcome) (*CommitResult, error) {
	remoteID, err := c.remote.CreateOrder(ctx, order)
	if err == nil {
		order.RemoteID = remoteID
		order.Status = model.OrderStatusCommittedRemote
		c.updateStatus(ctx, order)
		c.logger.Info("order committed",
			slog.String("order", order.ID), slog.String("remote_id", remoteID))
		return &CommitResult{Order: order, Outcome: outcome}, nil
	}

	var rejection remote.RejectionError
	if errors.As(err, &rejection) && rejection.Recognized() {
		c.rollbackLocal(ctx, order, order.CodeStrings())
		c.logger.Warn("order rolled back on remote rejection",
			slog.String("order", order.ID), slog.String("reason", string(rejection.Reason)))
		return &CommitResult{Order: order}, c.rejectionError(rejection)
	}

	// Unrecognized failure: the money may already have moved, so the local
	// commit stands and the remote leg is replayed in the background.
	order.Status = model.OrderStatusPendingRemoteSync
	c.updateStatus(ctx, order)
	c.logger.Warn("remote commit deferred",
		slog.String("order", order.ID), slog.String("error", err.Error()))
	return &CommitResult{
		Order:   order,
		Outcome: outcome,
		Warning: "order accepted locally, remote confirmation pending",
	}, nil
}

func (c *OrderCommitCoordinator) saveLocal(ctx context.Context, order *model.Order) model.StorageOutcome {
	var outcome model.StorageOutcome
	for _, tier := range c.tiers {
		err := tier.Orders().Save(ctx, order)
		outcome = append(outcome, model.StorageResult{
			Tier:    tier.Name(),
			Success: err == nil,
			Count:   1,
			Err:     err,
		})
		if err != nil {
			c.logger.Warn("tier order write failed",
				slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
		}
	}
	return outcome
}

func (c *OrderCommitCoordinator) updateStatus(ctx context.Context, order *model.Order) {
	for _, tier := range c.tiers {
		if err := tier.Orders().UpdateStatus(ctx, order.ID, order.Status, order.RemoteID); err != nil &&
			!errors.Is(err, domainErrors.ErrNotFound) {
			c.logger.Warn("tier status update failed",
				slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
		}
	}
}

// rollbackLocal undoes the local leg: the order record is removed from every
// tier and, when codes are given, their registry marks are released.
func (c *OrderCommitCoordinator) rollbackLocal(ctx context.Context, order *model.Order, codes []string) {
	for _, tier := range c.tiers {
		if err := tier.Orders().Delete(ctx, order.ID); err != nil {
			c.logger.Warn("tier order rollback failed",
				slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
		}
	}
	if len(codes) > 0 {
		c.registry.Release(ctx, codes)
	}
	order.Status = model.OrderStatusRolledBack
	order.Verification = model.VerificationFailed
}

func (c *OrderCommitCoordinator) rejectionError(rejection remote.RejectionError) error {
	switch rejection.Reason {
	case remote.RejectDuplicate:
		return fmt.Errorf("%s: %w", rejection.Message, domainErrors.ErrDuplicateCode)
	case remote.RejectAmountMismatch:
		return fmt.Errorf("%s: %w", rejection.Message, domainErrors.ErrAmountMismatch)
	case remote.RejectDateMismatch:
		return fmt.Errorf("%s: %w", rejection.Message, domainErrors.ErrDateInvalid)
	}
	return rejection
}
