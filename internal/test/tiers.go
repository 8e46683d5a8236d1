package test

import (
	"context"
	"sort"
	"sync"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
)

// TierStub is an in-memory repository.Tier for wiring tests. Err, when set,
// fails every store operation with that error.
type TierStub struct {
	TierName model.TierName
	Err      error

	mu          sync.Mutex
	products    map[string]model.Product
	orders      map[string]*model.Order
	codes       map[string]string
	ReplaceHits int
}

// NewTierStub creates an empty tier with the given name.
func NewTierStub(name model.TierName) *TierStub {
	return &TierStub{
		TierName: name,
		products: make(map[string]model.Product),
		orders:   make(map[string]*model.Order),
		codes:    make(map[string]string),
	}
}

// Name reports the configured tier label.
func (t *TierStub) Name() model.TierName { return t.TierName }

// Products exposes the product store view of the stub.
func (t *TierStub) Products() repository.ProductStore { return (*tierStubProducts)(t) }

// Orders exposes the order store view of the stub.
func (t *TierStub) Orders() repository.OrderStore { return (*tierStubOrders)(t) }

// Codes exposes the code store view of the stub.
func (t *TierStub) Codes() repository.CodeStore { return (*tierStubCodes)(t) }

// Ping reports the configured error.
func (t *TierStub) Ping(context.Context) error { return t.Err }

type tierStubProducts TierStub

func (t *tierStubProducts) List(context.Context) ([]model.Product, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	out := make([]model.Product, 0, len(t.products))
	for _, p := range t.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (t *tierStubProducts) Replace(_ context.Context, products []model.Product) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReplaceHits++
	if t.Err != nil {
		return 0, t.Err
	}
	t.products = make(map[string]model.Product, len(products))
	for _, p := range products {
		t.products[p.Key()] = p
	}
	return len(products), nil
}

func (t *tierStubProducts) Delete(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	delete(t.products, key)
	return nil
}

type tierStubOrders TierStub

func (t *tierStubOrders) Save(_ context.Context, order *model.Order) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	copied := *order
	t.orders[order.ID] = &copied
	return nil
}

func (t *tierStubOrders) Get(_ context.Context, id string) (*model.Order, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	order, ok := t.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (t *tierStubOrders) List(context.Context) ([]model.Order, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	out := make([]model.Order, 0, len(t.orders))
	for _, order := range t.orders {
		out = append(out, *order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tierStubOrders) Delete(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	delete(t.orders, id)
	return nil
}

func (t *tierStubOrders) ListPendingRemoteSync(_ context.Context, limit int) ([]model.Order, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	var out []model.Order
	for _, order := range t.orders {
		if order.Status == model.OrderStatusPendingRemoteSync {
			out = append(out, *order)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (t *tierStubOrders) UpdateStatus(_ context.Context, id string, status model.OrderStatus, remoteID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	order, ok := t.orders[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.Status = status
	if remoteID != "" {
		order.RemoteID = remoteID
	}
	return nil
}

func (t *tierStubOrders) UpdateDeliveryStatus(_ context.Context, id string, status string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	order, ok := t.orders[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.DeliveryStatus = status
	return nil
}

type tierStubCodes TierStub

func (t *tierStubCodes) Add(_ context.Context, orderID string, codes []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	for _, code := range codes {
		if owner, ok := t.codes[code]; ok && owner != orderID {
			return domainErrors.ErrAlreadyExists
		}
	}
	for _, code := range codes {
		t.codes[code] = orderID
	}
	return nil
}

func (t *tierStubCodes) Lookup(_ context.Context, code string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return "", t.Err
	}
	owner, ok := t.codes[code]
	if !ok {
		return "", domainErrors.ErrNotFound
	}
	return owner, nil
}

func (t *tierStubCodes) Remove(_ context.Context, codes []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	for _, code := range codes {
		delete(t.codes, code)
	}
	return nil
}

func (t *tierStubCodes) All(context.Context) (map[string]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	out := make(map[string]string, len(t.codes))
	for code, owner := range t.codes {
		out[code] = owner
	}
	return out, nil
}

var _ repository.Tier = (*TierStub)(nil)
