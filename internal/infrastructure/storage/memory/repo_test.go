package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

func TestMemoryRepoPositionLifecycle(t *testing.T) {
	repo := New(0)
	ctx := context.Background()
	pos := &model.ArbitragePosition{
		ID:      "p1",
		Account: "demo",
		Long:    model.Leg{Symbol: "ETH", Side: model.SideLong, NotionalUsd: 100},
		Short:   model.Leg{Symbol: "ETH", Side: model.SideShort, NotionalUsd: 100},
	}
	if err := repo.CreatePosition(ctx, pos); err != nil {
		t.Fatalf("CreatePosition failed: %v", err)
	}

	pos.EntrySpread = 1
	got, _ := repo.GetPosition(ctx, "p1")
	if got.EntrySpread != 0 {
		t.Error("stored position must not alias caller memory")
	}

	if trades, _ := repo.ListOpenTrades(ctx, "demo"); len(trades) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(trades))
	}
	if err := repo.ClosePosition(ctx, "p1", 10, 3); err != nil {
		t.Fatalf("ClosePosition failed: %v", err)
	}
	if trades, _ := repo.ListOpenTrades(ctx, "demo"); len(trades) != 0 {
		t.Errorf("legs should be closed")
	}
	if err := repo.ClosePosition(ctx, "p1", 11, 0); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second close, got %v", err)
	}
}

func TestMemoryRepoKeepsLastSnapshots(t *testing.T) {
	repo := New(3)
	for i := 0; i < 5; i++ {
		_ = repo.InsertSnapshot(context.Background(), int64(i), "demo", fmt.Sprint(i))
	}
	snaps := repo.Snapshots()
	if len(snaps) != 3 || snaps[0].Ts != 2 || snaps[2].Ts != 4 {
		t.Errorf("unexpected snapshots: %+v", snaps)
	}
}
