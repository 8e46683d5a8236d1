// Package redistier implements the tier B cache: a small, simple key-value
// store holding the product set as one JSON blob plus order and used-code
// records. Capacity is modelled by a value-size cap; oversize writes map to
// the quota error so callers can retry degraded.
package redistier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
)

const (
	productsKey = "storesync:products"
	ordersKey   = "storesync:orders"
	codesKey    = "storesync:codes"
)

// Storage is the tier B cache. It implements repository.Tier.
type Storage struct {
	client   *redis.Client
	valueCap int
	logger   *slog.Logger
}

type productRepository struct {
	storage *Storage
}

type orderRepository struct {
	storage *Storage
}

type codeRepository struct {
	storage *Storage
}

// New creates the tier B storage. The connection is verified lazily via Ping
// so an unavailable tier degrades instead of failing startup.
func New(addr, password string, valueCap int, logger *slog.Logger) *Storage {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Storage{client: client, valueCap: valueCap, logger: logger}
}

// NewWithClient wraps an existing client; used by tests.
func NewWithClient(client *redis.Client, valueCap int, logger *slog.Logger) *Storage {
	return &Storage{client: client, valueCap: valueCap, logger: logger}
}

// Close releases the redis connection.
func (s *Storage) Close() error {
	return s.client.Close()
}

// Name identifies the tier.
func (s *Storage) Name() model.TierName { return model.TierB }

func (s *Storage) Products() repository.ProductStore {
	return &productRepository{storage: s}
}

func (s *Storage) Orders() repository.OrderStore {
	return &orderRepository{storage: s}
}

func (s *Storage) Codes() repository.CodeStore {
	return &codeRepository{storage: s}
}

// Ping verifies connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// --- ProductStore implementation ---

func (r *productRepository) List(ctx context.Context) ([]model.Product, error) {
	raw, err := r.storage.client.Get(ctx, productsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var products []model.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode products blob: %w", err)
	}
	return products, nil
}

func (r *productRepository) Replace(ctx context.Context, products []model.Product) (int, error) {
	raw, err := json.Marshal(products)
	if err != nil {
		return 0, fmt.Errorf("encode products blob: %w", err)
	}
	if r.storage.valueCap > 0 && len(raw) > r.storage.valueCap {
		return 0, fmt.Errorf("products blob %d bytes over cap %d: %w", len(raw), r.storage.valueCap, domainErrors.ErrLocalQuotaExceeded)
	}

	if err := r.storage.client.Set(ctx, productsKey, raw, 0).Err(); err != nil {
		return 0, err
	}
	return len(products), nil
}

func (r *productRepository) Delete(ctx context.Context, key string) error {
	products, err := r.List(ctx)
	if err != nil {
		return err
	}

	kept := products[:0]
	for _, p := range products {
		if p.Key() != key {
			kept = append(kept, p)
		}
	}
	_, err = r.Replace(ctx, kept)
	return err
}

// --- OrderStore implementation ---

func (r *orderRepository) Save(ctx context.Context, order *model.Order) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	if r.storage.valueCap > 0 && len(raw) > r.storage.valueCap {
		return fmt.Errorf("order %s over cap: %w", order.ID, domainErrors.ErrLocalQuotaExceeded)
	}
	return r.storage.client.HSet(ctx, ordersKey, order.ID, raw).Err()
}

func (r *orderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	raw, err := r.storage.client.HGet(ctx, ordersKey, id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}

	var order model.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]model.Order, error) {
	entries, err := r.storage.client.HGetAll(ctx, ordersKey).Result()
	if err != nil {
		return nil, err
	}

	orders := make([]model.Order, 0, len(entries))
	for id, raw := range entries {
		var order model.Order
		if err := json.Unmarshal([]byte(raw), &order); err != nil {
			r.storage.logger.Warn("skipping undecodable order record", slog.String("order", id))
			continue
		}
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	return r.storage.client.HDel(ctx, ordersKey, id).Err()
}

func (r *orderRepository) ListPendingRemoteSync(ctx context.Context, limit int) ([]model.Order, error) {
	orders, err := r.List(ctx)
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

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status model.OrderStatus, remoteID string) error {
	order, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	order.Status = status
	if remoteID != "" {
		order.RemoteID = remoteID
	}
	order.UpdatedAt = time.Now()
	return r.Save(ctx, order)
}

func (r *orderRepository) UpdateDeliveryStatus(ctx context.Context, id string, status string) error {
	order, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	order.DeliveryStatus = status
	order.UpdatedAt = time.Now()
	return r.Save(ctx, order)
}

// --- CodeStore implementation ---

func (r *codeRepository) Add(ctx context.Context, orderID string, codes []string) error {
	for _, code := range codes {
		set, err := r.storage.client.HSetNX(ctx, codesKey, code, orderID).Result()
		if err != nil {
			return err
		}
		if set {
			continue
		}
		owner, err := r.storage.client.HGet(ctx, codesKey, code).Result()
		if err != nil {
			return err
		}
		if owner != orderID {
			return fmt.Errorf("code %s bound to %s: %w", code, owner, domainErrors.ErrAlreadyExists)
		}
	}
	return nil
}

func (r *codeRepository) Lookup(ctx context.Context, code string) (string, error) {
	owner, err := r.storage.client.HGet(ctx, codesKey, code).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domainErrors.ErrNotFound
		}
		return "", err
	}
	return owner, nil
}

func (r *codeRepository) Remove(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	return r.storage.client.HDel(ctx, codesKey, codes...).Err()
}

func (r *codeRepository) All(ctx context.Context) (map[string]string, error) {
	return r.storage.client.HGetAll(ctx, codesKey).Result()
}
