package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// memTier is an in-memory repository.Tier with per-store failure injection.
type memTier struct {
	name model.TierName

	mu       sync.Mutex
	products map[string]model.Product
	orders   map[string]*model.Order
	codes    map[string]string

	failProducts error
	failOrders   error
	failCodes    error
	// capacity caps the number of products the tier holds; 0 means no cap.
	capacity int

	replaceCalls int
}

func newMemTier(name model.TierName) *memTier {
	return &memTier{
		name:     name,
		products: make(map[string]model.Product),
		orders:   make(map[string]*model.Order),
		codes:    make(map[string]string),
	}
}

func (t *memTier) Name() model.TierName               { return t.name }
func (t *memTier) Ping(ctx context.Context) error     { return nil }
func (t *memTier) Products() repository.ProductStore  { return (*memProducts)(t) }
func (t *memTier) Orders() repository.OrderStore      { return (*memOrders)(t) }
func (t *memTier) Codes() repository.CodeStore        { return (*memCodes)(t) }

func (t *memTier) productList() []model.Product {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Product, 0, len(t.products))
	for _, p := range t.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

type memProducts memTier

func (s *memProducts) List(ctx context.Context) ([]model.Product, error) {
	if s.failProducts != nil {
		return nil, s.failProducts
	}
	return (*memTier)(s).productList(), nil
}

func (s *memProducts) Replace(ctx context.Context, products []model.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	if s.failProducts != nil {
		return 0, s.failProducts
	}
	if s.capacity > 0 && len(products) > s.capacity {
		return 0, fmt.Errorf("%d over capacity %d: %w", len(products), s.capacity, domainErrors.ErrLocalQuotaExceeded)
	}
	next := make(map[string]model.Product, len(products))
	for _, p := range products {
		next[p.Key()] = p
	}
	s.products = next
	return len(products), nil
}

func (s *memProducts) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failProducts != nil {
		return s.failProducts
	}
	delete(s.products, key)
	return nil
}

type memOrders memTier

func (s *memOrders) Save(ctx context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrders != nil {
		return s.failOrders
	}
	clone := *order
	s.orders[order.ID] = &clone
	return nil
}

func (s *memOrders) Get(ctx context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrders != nil {
		return nil, s.failOrders
	}
	order, ok := s.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (s *memOrders) List(ctx context.Context) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrders != nil {
		return nil, s.failOrders
	}
	out := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *memOrders) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrders != nil {
		return s.failOrders
	}
	delete(s.orders, id)
	return nil
}

func (s *memOrders) ListPendingRemoteSync(ctx context.Context, limit int) ([]model.Order, error) {
	orders, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var pending []model.Order
	for _, o := range orders {
		if o.Status != model.OrderStatusPendingRemoteSync {
			continue
		}
		pending = append(pending, o)
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (s *memOrders) UpdateStatus(ctx context.Context, id string, status model.OrderStatus, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrders != nil {
		return s.failOrders
	}
	order, ok := s.orders[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.Status = status
	if remoteID != "" {
		order.RemoteID = remoteID
	}
	return nil
}

func (s *memOrders) UpdateDeliveryStatus(ctx context.Context, id string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrders != nil {
		return s.failOrders
	}
	order, ok := s.orders[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.DeliveryStatus = status
	return nil
}

type memCodes memTier

func (s *memCodes) Add(ctx context.Context, orderID string, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCodes != nil {
		return s.failCodes
	}
	for _, code := range codes {
		if owner, ok := s.codes[code]; ok && owner != orderID {
			return fmt.Errorf("code %s bound to %s: %w", code, owner, domainErrors.ErrAlreadyExists)
		}
	}
	for _, code := range codes {
		s.codes[code] = orderID
	}
	return nil
}

func (s *memCodes) Lookup(ctx context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCodes != nil {
		return "", s.failCodes
	}
	owner, ok := s.codes[code]
	if !ok {
		return "", domainErrors.ErrNotFound
	}
	return owner, nil
}

func (s *memCodes) Remove(ctx context.Context, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCodes != nil {
		return s.failCodes
	}
	for _, code := range codes {
		delete(s.codes, code)
	}
	return nil
}

func (s *memCodes) All(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCodes != nil {
		return nil, s.failCodes
	}
	out := make(map[string]string, len(s.codes))
	for code, orderID := range s.codes {
		out[code] = orderID
	}
	return out, nil
}

// stubRemote scripts the remote store for reconciler, verifier and commit
// tests.
type stubRemote struct {
	mu sync.Mutex

	reachable bool
	products  map[string]model.Product

	nextID  int
	creates int
	updates int
	deletes int

	transactions map[string]model.RemoteTransaction
	verifyErr    error

	orders      []*model.Order
	createErr   error
	createCalls int

	quantityCalls map[string]int
	deliveries    map[string]string
	fetchOrders   []model.Order
}

func newStubRemote() *stubRemote {
	return &stubRemote{
		reachable:     true,
		products:      make(map[string]model.Product),
		transactions:  make(map[string]model.RemoteTransaction),
		quantityCalls: make(map[string]int),
		deliveries:    make(map[string]string),
	}
}

func (r *stubRemote) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return domainErrors.ErrNetworkUnavailable
	}
	return nil
}

func (r *stubRemote) FetchProducts(ctx context.Context, includeImages bool) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return nil, domainErrors.ErrNetworkUnavailable
	}
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		if !includeImages {
			p.Image = nil
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (r *stubRemote) CreateProduct(ctx context.Context, p model.Product) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return "", domainErrors.ErrNetworkUnavailable
	}
	r.nextID++
	r.creates++
	id := fmt.Sprintf("rem-%d", r.nextID)
	p.IDs.Remote = id
	r.products[p.Key()] = p
	return id, nil
}

func (r *stubRemote) UpdateProduct(ctx context.Context, p model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return domainErrors.ErrNetworkUnavailable
	}
	r.updates++
	// An update without an image leaves the stored image untouched, same as
	// the omitted field on the wire.
	if prev, ok := r.products[p.Key()]; ok && len(p.Image) == 0 {
		p.Image = prev.Image
	}
	r.products[p.Key()] = p
	return nil
}

func (r *stubRemote) UpdateQuantity(ctx context.Context, remoteID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return domainErrors.ErrNetworkUnavailable
	}
	r.quantityCalls[remoteID] = quantity
	return nil
}

func (r *stubRemote) DeleteProduct(ctx context.Context, remoteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return domainErrors.ErrNetworkUnavailable
	}
	r.deletes++
	for key, p := range r.products {
		if p.IDs.Remote == remoteID {
			delete(r.products, key)
		}
	}
	return nil
}

func (r *stubRemote) VerifyCode(ctx context.Context, code string, amount float64, date time.Time) (*model.RemoteTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.verifyErr != nil {
		return nil, r.verifyErr
	}
	if !r.reachable {
		return nil, domainErrors.ErrNetworkUnavailable
	}
	tx, ok := r.transactions[code]
	if !ok {
		return &model.RemoteTransaction{Found: false}, nil
	}
	return &tx, nil
}

func (r *stubRemote) CreateOrder(ctx context.Context, order *model.Order) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return "", r.createErr
	}
	if !r.reachable {
		return "", domainErrors.ErrNetworkUnavailable
	}
	clone := *order
	r.orders = append(r.orders, &clone)
	return fmt.Sprintf("rem-order-%d", len(r.orders)), nil
}

func (r *stubRemote) FetchOrders(ctx context.Context) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return nil, domainErrors.ErrNetworkUnavailable
	}
	return r.fetchOrders, nil
}

func (r *stubRemote) UpdateDeliveryStatus(ctx context.Context, remoteID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reachable {
		return domainErrors.ErrNetworkUnavailable
	}
	r.deliveries[remoteID] = status
	return nil
}

func (r *stubRemote) setReachable(v bool) {
	r.mu.Lock()
	r.reachable = v
	r.mu.Unlock()
}

func (r *stubRemote) seedProduct(p model.Product) {
	r.mu.Lock()
	r.products[p.Key()] = p
	r.mu.Unlock()
}

func (r *stubRemote) seedTransaction(code string, tx model.RemoteTransaction) {
	r.mu.Lock()
	r.transactions[code] = tx
	r.mu.Unlock()
}
