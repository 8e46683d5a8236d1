package redistier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
)

func newTestStorage(t *testing.T, valueCap int) *Storage {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewWithClient(client, valueCap, logger)
}

func TestProductsReplaceAndList(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	products := []model.Product{
		{Name: "Wrap Dress", Size: "M", Price: 1200, Quantity: 5},
		{Name: "Denim Jacket", Size: "L", Price: 2500, Quantity: 2},
	}

	count, err := storage.Products().Replace(ctx, products)
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 written, got %d", count)
	}

	listed, err := storage.Products().List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 products, got %d", len(listed))
	}
	if listed[0].Key() != "wrap-dress_m" {
		t.Fatalf("unexpected key %q", listed[0].Key())
	}
}

func TestProductsListEmpty(t *testing.T) {
	storage := newTestStorage(t, 0)

	listed, err := storage.Products().List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if listed != nil {
		t.Fatalf("expected nil for empty tier, got %v", listed)
	}
}

func TestProductsReplaceQuotaExceeded(t *testing.T) {
	// Big enough for the image-stripped record, far too small for the blob
	// with the image attached.
	storage := newTestStorage(t, 256)
	ctx := context.Background()

	products := []model.Product{
		{Name: "Wrap Dress", Size: "M", Price: 1200, Image: make([]byte, 4096)},
	}

	_, err := storage.Products().Replace(ctx, products)
	if !errors.Is(err, domainErrors.ErrLocalQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}

	// Stripped of images the same set fits.
	products[0].Image = nil
	if _, err := storage.Products().Replace(ctx, products); err != nil {
		t.Fatalf("degraded replace failed: %v", err)
	}
}

func TestProductsDelete(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	products := []model.Product{
		{Name: "Wrap Dress", Size: "M"},
		{Name: "Denim Jacket", Size: "L"},
	}
	if _, err := storage.Products().Replace(ctx, products); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	if err := storage.Products().Delete(ctx, "wrap-dress_m"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	listed, err := storage.Products().List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 1 || listed[0].Key() != "denim-jacket_l" {
		t.Fatalf("unexpected remainder: %v", listed)
	}
}

func TestOrdersSaveGetAndPending(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	first := &model.Order{
		ID:        "ORD-1",
		Total:     1000,
		TotalPaid: 1000,
		Status:    model.OrderStatusPendingRemoteSync,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	second := &model.Order{
		ID:        "ORD-2",
		Total:     500,
		TotalPaid: 500,
		Status:    model.OrderStatusCommittedRemote,
		CreatedAt: time.Now(),
	}

	for _, o := range []*model.Order{first, second} {
		if err := storage.Orders().Save(ctx, o); err != nil {
			t.Fatalf("save %s failed: %v", o.ID, err)
		}
	}

	got, err := storage.Orders().Get(ctx, "ORD-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Total != 1000 {
		t.Fatalf("unexpected total %v", got.Total)
	}

	pending, err := storage.Orders().ListPendingRemoteSync(ctx, 10)
	if err != nil {
		t.Fatalf("pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "ORD-1" {
		t.Fatalf("unexpected pending set: %v", pending)
	}

	if err := storage.Orders().UpdateStatus(ctx, "ORD-1", model.OrderStatusCommittedRemote, "rem-9"); err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	updated, err := storage.Orders().Get(ctx, "ORD-1")
	if err != nil {
		t.Fatalf("get after update failed: %v", err)
	}
	if updated.Status != model.OrderStatusCommittedRemote || updated.RemoteID != "rem-9" {
		t.Fatalf("update not applied: %+v", updated)
	}
}

func TestOrdersGetMissing(t *testing.T) {
	storage := newTestStorage(t, 0)

	_, err := storage.Orders().Get(context.Background(), "missing")
	if !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCodesBindLookupAndRollback(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	if err := storage.Codes().Add(ctx, "ORD-1", []string{"ABC1234XYZ", "DEF5678UVW"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// Re-binding to the same order is idempotent.
	if err := storage.Codes().Add(ctx, "ORD-1", []string{"ABC1234XYZ"}); err != nil {
		t.Fatalf("idempotent add failed: %v", err)
	}

	// Binding to a different order is a conflict.
	err := storage.Codes().Add(ctx, "ORD-2", []string{"ABC1234XYZ"})
	if !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("expected conflict, got %v", err)
	}

	owner, err := storage.Codes().Lookup(ctx, "ABC1234XYZ")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if owner != "ORD-1" {
		t.Fatalf("expected owner ORD-1, got %q", owner)
	}

	if err := storage.Codes().Remove(ctx, []string{"ABC1234XYZ", "DEF5678UVW"}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := storage.Codes().Lookup(ctx, "ABC1234XYZ"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}
