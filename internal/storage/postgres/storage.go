package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
)

// PgxPool is the subset of pgxpool.Pool the storage uses, extracted so tests
// can substitute a mock pool.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Storage is the tier A cache: the high-capacity indexed local store backed
// by PostgreSQL. It implements repository.Tier.
type Storage struct {
	pool   PgxPool
	logger *slog.Logger
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

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (PgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Name identifies the tier.
func (s *Storage) Name() model.TierName { return model.TierA }

func (s *Storage) Products() repository.ProductStore {
	return &productRepository{storage: s}
}

func (s *Storage) Orders() repository.OrderStore {
	return &orderRepository{storage: s}
}

func (s *Storage) Codes() repository.CodeStore {
	return &codeRepository{storage: s}
}

// Ping verifies database connectivity.
func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
            id BIGSERIAL PRIMARY KEY,
            key TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            size TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT '',
            price DOUBLE PRECISION NOT NULL,
            discount INT NOT NULL DEFAULT 0,
            quantity INT NOT NULL DEFAULT 0,
            image BYTEA,
            remote_id TEXT NOT NULL DEFAULT '',
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            remote_id TEXT NOT NULL DEFAULT '',
            items JSONB NOT NULL,
            total DOUBLE PRECISION NOT NULL,
            total_paid DOUBLE PRECISION NOT NULL DEFAULT 0,
            codes JSONB NOT NULL,
            verification TEXT NOT NULL,
            status TEXT NOT NULL,
            delivery_status TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS used_codes (
            code TEXT PRIMARY KEY,
            order_id TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// mapWriteError translates storage-capacity failures onto the domain error
// so callers can attempt a degraded retry.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == "53" {
		return fmt.Errorf("%v: %w", err, domainErrors.ErrLocalQuotaExceeded)
	}
	return err
}

// --- ProductStore implementation ---

func (r *productRepository) List(ctx context.Context) ([]model.Product, error) {
	const query = `SELECT id, name, size, category, price, discount, quantity, image, remote_id, updated_at
                   FROM products ORDER BY key`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.IDs.Local, &p.Name, &p.Size, &p.Category, &p.Price, &p.Discount, &p.Quantity, &p.Image, &p.IDs.Remote, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *productRepository) Replace(ctx context.Context, products []model.Product) (int, error) {
	keys := make([]string, 0, len(products))
	for _, p := range products {
		keys = append(keys, p.Key())
	}

	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM products WHERE NOT (key = ANY($1))`, keys); err != nil {
			return err
		}

		const upsert = `INSERT INTO products (key, name, size, category, price, discount, quantity, image, remote_id, updated_at)
                        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
                        ON CONFLICT (key) DO UPDATE SET
                            name = EXCLUDED.name,
                            size = EXCLUDED.size,
                            category = EXCLUDED.category,
                            price = EXCLUDED.price,
                            discount = EXCLUDED.discount,
                            quantity = EXCLUDED.quantity,
                            image = COALESCE(EXCLUDED.image, products.image),
                            remote_id = CASE WHEN EXCLUDED.remote_id <> '' THEN EXCLUDED.remote_id ELSE products.remote_id END,
                            updated_at = NOW()`
		for _, p := range products {
			if _, err := tx.Exec(ctx, upsert, p.Key(), p.Name, p.Size, p.Category, p.Price, p.Discount, p.Quantity, p.Image, p.IDs.Remote); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, mapWriteError(err)
	}
	return len(products), nil
}

func (r *productRepository) Delete(ctx context.Context, key string) error {
	_, err := r.storage.pool.Exec(ctx, `DELETE FROM products WHERE key=$1`, key)
	return err
}

// --- OrderStore implementation ---

func (r *orderRepository) Save(ctx context.Context, order *model.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	codes, err := json.Marshal(order.Codes)
	if err != nil {
		return fmt.Errorf("encode codes: %w", err)
	}

	const query = `INSERT INTO orders (id, remote_id, items, total, total_paid, codes, verification, status, delivery_status, created_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
                   ON CONFLICT (id) DO UPDATE SET
                       remote_id = EXCLUDED.remote_id,
                       total_paid = EXCLUDED.total_paid,
                       codes = EXCLUDED.codes,
                       verification = EXCLUDED.verification,
                       status = EXCLUDED.status,
                       delivery_status = EXCLUDED.delivery_status,
                       updated_at = NOW()`
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = r.storage.pool.Exec(ctx, query,
		order.ID, order.RemoteID, items, order.Total, order.TotalPaid, codes,
		order.Verification, order.Status, order.DeliveryStatus, createdAt)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	const query = `SELECT id, remote_id, items, total, total_paid, codes, verification, status, delivery_status, created_at, updated_at
                   FROM orders WHERE id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]model.Order, error) {
	const query = `SELECT id, remote_id, items, total, total_paid, codes, verification, status, delivery_status, created_at, updated_at
                   FROM orders ORDER BY created_at DESC`
	return r.queryOrders(ctx, query)
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	_, err := r.storage.pool.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	return err
}

func (r *orderRepository) ListPendingRemoteSync(ctx context.Context, limit int) ([]model.Order, error) {
	const query = `SELECT id, remote_id, items, total, total_paid, codes, verification, status, delivery_status, created_at, updated_at
                   FROM orders WHERE status=$1 ORDER BY created_at LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, model.OrderStatusPendingRemoteSync, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status model.OrderStatus, remoteID string) error {
	const query = `UPDATE orders SET status=$1, remote_id=CASE WHEN $2 <> '' THEN $2 ELSE remote_id END, updated_at=NOW() WHERE id=$3`
	tag, err := r.storage.pool.Exec(ctx, query, status, remoteID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) UpdateDeliveryStatus(ctx context.Context, id string, status string) error {
	const query = `UPDATE orders SET delivery_status=$1, updated_at=NOW() WHERE id=$2`
	tag, err := r.storage.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o     model.Order
		items []byte
		codes []byte
	)
	err := row.Scan(&o.ID, &o.RemoteID, &items, &o.Total, &o.TotalPaid, &codes,
		&o.Verification, &o.Status, &o.DeliveryStatus, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(codes, &o.Codes); err != nil {
		return nil, fmt.Errorf("decode codes: %w", err)
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	var result []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- CodeStore implementation ---

func (r *codeRepository) Add(ctx context.Context, orderID string, codes []string) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insert = `INSERT INTO used_codes (code, order_id) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`
		for _, code := range codes {
			tag, err := tx.Exec(ctx, insert, code, orderID)
			if err != nil {
				return mapWriteError(err)
			}
			if tag.RowsAffected() == 0 {
				var owner string
				if err := tx.QueryRow(ctx, `SELECT order_id FROM used_codes WHERE code=$1`, code).Scan(&owner); err != nil {
					return err
				}
				if owner != orderID {
					return fmt.Errorf("code %s bound to %s: %w", code, owner, domainErrors.ErrAlreadyExists)
				}
			}
		}
		return nil
	})
}

func (r *codeRepository) Lookup(ctx context.Context, code string) (string, error) {
	var orderID string
	err := r.storage.pool.QueryRow(ctx, `SELECT order_id FROM used_codes WHERE code=$1`, code).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domainErrors.ErrNotFound
		}
		return "", err
	}
	return orderID, nil
}

func (r *codeRepository) Remove(ctx context.Context, codes []string) error {
	_, err := r.storage.pool.Exec(ctx, `DELETE FROM used_codes WHERE code = ANY($1)`, codes)
	return err
}

func (r *codeRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.storage.pool.Query(ctx, `SELECT code, order_id FROM used_codes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var code, orderID string
		if err := rows.Scan(&code, &orderID); err != nil {
			return nil, err
		}
		result[code] = orderID
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
