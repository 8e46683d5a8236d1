package usecase

import (
	"context"
	"fmt"
	"log/slog"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
	"github.com/dukasync/storesync/internal/pkg/auth"
)

// AdminCredentials is the single configured back-office account.
type AdminCredentials struct {
	Login        string
	PasswordHash string
}

// AdminAuthUseCase authenticates the back-office account and manages its
// session tokens.
type AdminAuthUseCase struct {
	creds    AdminCredentials
	hasher   auth.PasswordHasher
	strategy auth.Strategy
	logger   *slog.Logger
}

// NewAdminAuthUseCase constructs AdminAuthUseCase.
func NewAdminAuthUseCase(creds AdminCredentials, hasher auth.PasswordHasher, strategy auth.Strategy, logger *slog.Logger) *AdminAuthUseCase {
	return &AdminAuthUseCase{creds: creds, hasher: hasher, strategy: strategy, logger: logger}
}

// Login checks credentials and issues a session token.
func (u *AdminAuthUseCase) Login(login, password string) (string, error) {
	if u.creds.Login == "" || login != u.creds.Login {
		return "", domainErrors.ErrInvalidCredentials
	}
	if err := u.hasher.Compare(u.creds.PasswordHash, password); err != nil {
		u.logger.Warn("admin login rejected", slog.String("login", login))
		return "", domainErrors.ErrInvalidCredentials
	}
	return u.strategy.IssueToken(login)
}

// ParseToken validates a session token and returns its subject.
func (u *AdminAuthUseCase) ParseToken(token string) (string, error) {
	return u.strategy.ParseToken(token)
}

// RemoteDelivery is the remote order surface the back office needs.
type RemoteDelivery interface {
	FetchOrders(ctx context.Context) ([]model.Order, error)
	UpdateDeliveryStatus(ctx context.Context, remoteID, status string) error
}

// OrderAdminUseCase serves the back-office order views and delivery status
// changes.
type OrderAdminUseCase struct {
	tiers  []repository.Tier
	remote RemoteDelivery
	logger *slog.Logger
}

// NewOrderAdminUseCase constructs OrderAdminUseCase.
func NewOrderAdminUseCase(tiers []repository.Tier, remote RemoteDelivery, logger *slog.Logger) *OrderAdminUseCase {
	return &OrderAdminUseCase{tiers: tiers, remote: remote, logger: logger}
}

// Orders lists committed orders from the first tier that answers.
func (u *OrderAdminUseCase) Orders(ctx context.Context) ([]model.Order, error) {
	var lastErr error
	for _, tier := range u.tiers {
		orders, err := tier.Orders().List(ctx)
		if err != nil {
			u.logger.Warn("order list failed",
				slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
			lastErr = err
			continue
		}
		return orders, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("no tier could list orders: %w", lastErr)
	}
	return nil, nil
}

// Order fetches one order by identifier.
func (u *OrderAdminUseCase) Order(ctx context.Context, id string) (*model.Order, error) {
	var lastErr error
	for _, tier := range u.tiers {
		order, err := tier.Orders().Get(ctx, id)
		if err != nil {
			lastErr = err
			continue
		}
		return order, nil
	}
	return nil, lastErr
}

// UpdateDeliveryStatus records a delivery state change locally and forwards
// it to the remote store when the order is known there.
func (u *OrderAdminUseCase) UpdateDeliveryStatus(ctx context.Context, id, status string) error {
	order, err := u.Order(ctx, id)
	if err != nil {
		return err
	}

	for _, tier := range u.tiers {
		if err := tier.Orders().UpdateDeliveryStatus(ctx, id, status); err != nil {
			u.logger.Warn("delivery status update failed",
				slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
		}
	}

	if order.RemoteID != "" {
		if err := u.remote.UpdateDeliveryStatus(ctx, order.RemoteID, status); err != nil {
			u.logger.Warn("remote delivery status update deferred",
				slog.String("order", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

// PullRemoteOrders imports orders known only to the remote store into the
// local tiers, keyed by remote identifier.
func (u *OrderAdminUseCase) PullRemoteOrders(ctx context.Context) error {
	remoteOrders, err := u.remote.FetchOrders(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]struct{})
	local, err := u.Orders(ctx)
	if err == nil {
		for _, o := range local {
			if o.RemoteID != "" {
				known[o.RemoteID] = struct{}{}
			}
		}
	}

	for i := range remoteOrders {
		order := remoteOrders[i]
		if order.RemoteID == "" {
			continue
		}
		if _, ok := known[order.RemoteID]; ok {
			continue
		}
		if order.ID == "" {
			order.ID = "ORD-R-" + order.RemoteID
		}
		for _, tier := range u.tiers {
			if err := tier.Orders().Save(ctx, &order); err != nil {
				u.logger.Warn("remote order import failed",
					slog.String("tier", string(tier.Name())), slog.String("error", err.Error()))
			}
		}
	}
	return nil
}
