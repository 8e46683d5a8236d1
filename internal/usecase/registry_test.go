package usecase

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/dukasync/storesync/internal/domain/errors"
	"github.com/dukasync/storesync/internal/domain/model"
	"github.com/dukasync/storesync/internal/domain/repository"
)

func TestRegistryMarkAndLookup(t *testing.T) {
	tierA := newMemTier(model.TierA)
	tierB := newMemTier(model.TierB)
	registry := NewUsedCodeRegistry([]repository.Tier{tierA, tierB}, testLogger())
	ctx := context.Background()

	outcome, err := registry.MarkUsed(ctx, "ORD-1", []string{"AAA1111BBB", "CCC2222DDD"})
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if !outcome.Succeeded() || len(outcome) != 2 {
		t.Fatalf("expected both tiers to accept, got %+v", outcome)
	}

	owner, used := registry.IsUsed(ctx, "AAA1111BBB")
	if !used || owner != "ORD-1" {
		t.Fatalf("expected ORD-1, got %q used=%v", owner, used)
	}
}

func TestRegistryRefusesCrossOrderReuse(t *testing.T) {
	tier := newMemTier(model.TierA)
	registry := NewUsedCodeRegistry([]repository.Tier{tier}, testLogger())
	ctx := context.Background()

	if _, err := registry.MarkUsed(ctx, "ORD-1", []string{"AAA1111BBB"}); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if _, err := registry.MarkUsed(ctx, "ORD-2", []string{"AAA1111BBB"}); !errors.Is(err, domainErrors.ErrDuplicateCode) {
		t.Fatalf("expected duplicate refusal, got %v", err)
	}
}

func TestRegistryPartialTierFailureStillDurable(t *testing.T) {
	tierA := newMemTier(model.TierA)
	tierB := newMemTier(model.TierB)
	tierB.failCodes = domainErrors.ErrNetworkUnavailable
	registry := NewUsedCodeRegistry([]repository.Tier{tierA, tierB}, testLogger())

	outcome, err := registry.MarkUsed(context.Background(), "ORD-1", []string{"AAA1111BBB"})
	if err != nil {
		t.Fatalf("one healthy tier must suffice: %v", err)
	}
	if !outcome.Succeeded() {
		t.Fatal("expected outcome success")
	}
	failed := outcome.Failed()
	if len(failed) != 1 || failed[0].Tier != model.TierB {
		t.Fatalf("expected tier B failure recorded, got %+v", failed)
	}
}

func TestRegistryAllTiersFailingStaysConservative(t *testing.T) {
	tier := newMemTier(model.TierA)
	tier.failCodes = domainErrors.ErrNetworkUnavailable
	registry := NewUsedCodeRegistry([]repository.Tier{tier}, testLogger())
	ctx := context.Background()

	_, err := registry.MarkUsed(ctx, "ORD-1", []string{"AAA1111BBB"})
	if err == nil {
		t.Fatal("expected error when no tier accepts the mark")
	}
	// The code still reads as used: over-caution beats double-spending.
	if _, used := registry.IsUsed(ctx, "AAA1111BBB"); !used {
		t.Fatal("failed mark must still block reuse in memory")
	}
}

func TestRegistryLoadPrimesFromTiersAndHistory(t *testing.T) {
	tier := newMemTier(model.TierA)
	ctx := context.Background()

	_ = tier.Codes().Add(ctx, "ORD-1", []string{"AAA1111BBB"})
	_ = tier.Orders().Save(ctx, &model.Order{
		ID:     "ORD-2",
		Codes:  []model.PaymentCode{{Code: "CCC2222DDD", Amount: 500}},
		Status: model.OrderStatusCommittedRemote,
	})

	registry := NewUsedCodeRegistry([]repository.Tier{tier}, testLogger())
	registry.Load(ctx)

	if owner, used := registry.IsUsed(ctx, "AAA1111BBB"); !used || owner != "ORD-1" {
		t.Fatalf("code store entry not loaded: %q %v", owner, used)
	}
	if owner, used := registry.IsUsed(ctx, "CCC2222DDD"); !used || owner != "ORD-2" {
		t.Fatalf("order history entry not loaded: %q %v", owner, used)
	}
}

func TestRegistryMissFallsBackToTier(t *testing.T) {
	tier := newMemTier(model.TierA)
	ctx := context.Background()
	_ = tier.Codes().Add(ctx, "ORD-1", []string{"AAA1111BBB"})

	// Not loaded: the in-memory set starts empty.
	registry := NewUsedCodeRegistry([]repository.Tier{tier}, testLogger())

	owner, used := registry.IsUsed(ctx, "AAA1111BBB")
	if !used || owner != "ORD-1" {
		t.Fatalf("expected tier fallback hit, got %q %v", owner, used)
	}
}

func TestRegistryRelease(t *testing.T) {
	tier := newMemTier(model.TierA)
	registry := NewUsedCodeRegistry([]repository.Tier{tier}, testLogger())
	ctx := context.Background()

	if _, err := registry.MarkUsed(ctx, "ORD-1", []string{"AAA1111BBB"}); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	registry.Release(ctx, []string{"AAA1111BBB"})

	if _, used := registry.IsUsed(ctx, "AAA1111BBB"); used {
		t.Fatal("released code must be reusable")
	}
	if _, err := tier.Codes().Lookup(ctx, "AAA1111BBB"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected tier entry removed, got %v", err)
	}
}
