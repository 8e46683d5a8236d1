package test

import (
	"context"
	"time"

	"github.com/dukasync/storesync/internal/adapter/remote"
	"github.com/dukasync/storesync/internal/domain/model"
)

// RemoteClientStub simulates the remote store client for wiring tests.
type RemoteClientStub struct {
	PingErr     error
	ProductList []model.Product
	Transaction *model.RemoteTransaction
	OrderList   []model.Order

	CreatedProducts []model.Product
	CreatedOrders   []model.Order
}

// Ping reports the configured reachability error.
func (s *RemoteClientStub) Ping(context.Context) error { return s.PingErr }

// Reachable mirrors the last Ping outcome.
func (s *RemoteClientStub) Reachable() bool { return s.PingErr == nil }

// FetchProducts returns the configured catalog.
func (s *RemoteClientStub) FetchProducts(context.Context, bool) ([]model.Product, error) {
	if s.PingErr != nil {
		return nil, s.PingErr
	}
	return s.ProductList, nil
}

// CreateProduct records the product and assigns a deterministic id.
func (s *RemoteClientStub) CreateProduct(_ context.Context, p model.Product) (string, error) {
	if s.PingErr != nil {
		return "", s.PingErr
	}
	s.CreatedProducts = append(s.CreatedProducts, p)
	return "rem-stub", nil
}

// UpdateProduct reports the configured reachability error.
func (s *RemoteClientStub) UpdateProduct(context.Context, model.Product) error { return s.PingErr }

// UpdateQuantity reports the configured reachability error.
func (s *RemoteClientStub) UpdateQuantity(context.Context, string, int) error { return s.PingErr }

// DeleteProduct reports the configured reachability error.
func (s *RemoteClientStub) DeleteProduct(context.Context, string) error { return s.PingErr }

// VerifyCode returns the configured transaction or a found full payment.
func (s *RemoteClientStub) VerifyCode(_ context.Context, _ string, amount float64, _ time.Time) (*model.RemoteTransaction, error) {
	if s.PingErr != nil {
		return nil, s.PingErr
	}
	if s.Transaction != nil {
		return s.Transaction, nil
	}
	return &model.RemoteTransaction{Found: true, Amount: amount, TransactionAt: time.Now()}, nil
}

// CreateOrder records the order and assigns a deterministic remote id.
func (s *RemoteClientStub) CreateOrder(_ context.Context, order *model.Order) (string, error) {
	if s.PingErr != nil {
		return "", s.PingErr
	}
	s.CreatedOrders = append(s.CreatedOrders, *order)
	return "rem-order-stub", nil
}

// FetchOrders returns the configured order list.
func (s *RemoteClientStub) FetchOrders(context.Context) ([]model.Order, error) {
	if s.PingErr != nil {
		return nil, s.PingErr
	}
	return s.OrderList, nil
}

// UpdateDeliveryStatus reports the configured reachability error.
func (s *RemoteClientStub) UpdateDeliveryStatus(context.Context, string, string) error {
	return s.PingErr
}

var _ remote.Client = (*RemoteClientStub)(nil)
