package usecase

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
)

func newCatalogFixture() (*CatalogUseCase, *CatalogStore, *stubRemote, *memTier) {
	remoteStub := newStubRemote()
	tierA := newMemTier(model.TierA)
	catalog := NewCatalogStore()
	reconciler := NewReconciler(remoteStub, []repository.Tier{tierA}, catalog, testLogger())
	uc := NewCatalogUseCase(catalog, reconciler, remoteStub, testLogger())
	return uc, catalog, remoteStub, tierA
}

func TestCatalogStoreGenerationAdvances(t *testing.T) {
	catalog := NewCatalogStore()

	before := catalog.Generation()
	catalog.Mutate(func(byKey map[string]model.Product) {
		byKey["wrap-dress_m"] = model.Product{Name: "Wrap Dress", Size: "M"}
	})
	if catalog.Generation() != before+1 {
		t.Fatalf("expected generation bump, got %d -> %d", before, catalog.Generation())
	}
}

func TestCatalogUpsertCreatesRemoteFirst(t *testing.T) {
	uc, catalog, remoteStub, tierA := newCatalogFixture()
	ctx := context.Background()

	created, err := uc.Upsert(ctx, model.Product{Name: "Wrap Dress", Size: "M", Price: 1200, Quantity: 5})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if created.IDs.Remote == "" {
		t.Fatal("remote id must be captured on create")
	}
	if remoteStub.creates != 1 {
		t.Fatalf("expected 1 remote create, got %d", remoteStub.creates)
	}
	if _, ok := catalog.Get("wrap-dress_m"); !ok {
		t.Fatal("product missing from canonical catalog")
	}
	listed, _ := tierA.Products().List(ctx)
	if len(listed) != 1 {
		t.Fatalf("tier A not published: %d products", len(listed))
	}
}

func TestCatalogUpsertKeepsEditWhenRemoteDown(t *testing.T) {
	uc, catalog, remoteStub, tierA := newCatalogFixture()
	ctx := context.Background()
	remoteStub.setReachable(false)

	created, err := uc.Upsert(ctx, model.Product{Name: "Wrap Dress", Size: "M", Price: 1200})
	if err != nil {
		t.Fatalf("offline upsert failed: %v", err)
	}
	if created.IDs.Remote != "" {
		t.Fatal("no remote id without a remote ack")
	}
	if _, ok := catalog.Get("wrap-dress_m"); !ok {
		t.Fatal("offline edit must stay local")
	}
	listed, _ := tierA.Products().List(ctx)
	if len(listed) != 1 {
		t.Fatalf("tier A not published: %d products", len(listed))
	}
}

func TestCatalogUpsertPreservesExistingImageAndID(t *testing.T) {
	uc, catalog, _, _ := newCatalogFixture()
	ctx := context.Background()

	catalog.Mutate(func(byKey map[string]model.Product) {
		byKey["wrap-dress_m"] = model.Product{
			Name: "Wrap Dress", Size: "M", Price: 1000, Image: []byte("jpg"),
			IDs: model.StoreIDs{Remote: "rem-1"},
		}
	})

	updated, err := uc.Upsert(ctx, model.Product{Name: "Wrap Dress", Size: "M", Price: 1300})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if updated.IDs.Remote != "rem-1" || string(updated.Image) != "jpg" {
		t.Fatalf("existing id and image must carry over: %+v", updated)
	}
}

func TestCatalogUpsertValidation(t *testing.T) {
	uc, _, _, _ := newCatalogFixture()
	ctx := context.Background()

	if _, err := uc.Upsert(ctx, model.Product{Size: "M"}); !errors.Is(err, domainErrors.ErrInvalidProduct) {
		t.Fatalf("expected invalid product for missing name, got %v", err)
	}
	if _, err := uc.Upsert(ctx, model.Product{Name: "Dress", Size: "M", Discount: 101}); !errors.Is(err, domainErrors.ErrInvalidProduct) {
		t.Fatalf("expected invalid product for discount over 100, got %v", err)
	}
}

func TestCatalogDeleteRequiresRemoteConfirmation(t *testing.T) {
	uc, catalog, remoteStub, tierA := newCatalogFixture()
	ctx := context.Background()

	if _, err := uc.Upsert(ctx, model.Product{Name: "Wrap Dress", Size: "M", Price: 1200}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	remoteStub.setReachable(false)
	err := uc.Delete(ctx, "wrap-dress_m")
	if err == nil {
		t.Fatal("delete without remote confirmation must fail")
	}
	if _, ok := catalog.Get("wrap-dress_m"); !ok {
		t.Fatal("record must survive an unconfirmed delete")
	}

	remoteStub.setReachable(true)
	if err := uc.Delete(ctx, "wrap-dress_m"); err != nil {
		t.Fatalf("confirmed delete failed: %v", err)
	}
	if _, ok := catalog.Get("wrap-dress_m"); ok {
		t.Fatal("record must be gone after confirmed delete")
	}
	listed, _ := tierA.Products().List(ctx)
	if len(listed) != 0 {
		t.Fatalf("tier A still holds %d products", len(listed))
	}
	if remoteStub.deletes != 1 {
		t.Fatalf("expected 1 remote delete, got %d", remoteStub.deletes)
	}
}

func TestCatalogDeleteUnknownKey(t *testing.T) {
	uc, _, _, _ := newCatalogFixture()

	if err := uc.Delete(context.Background(), "ghost_m"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
