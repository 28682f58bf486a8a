package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

func newRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testPosition(id string) *model.ArbitragePosition {
	return &model.ArbitragePosition{
		ID:          id,
		Account:     "demo",
		EntrySpread: 0.0002,
		OpenedAt:    1000,
		Long: model.Leg{
			Exchange: "BINANCE", Symbol: "BTC", Side: model.SideLong, QuantityBase: 0.02, Leverage: 10,
			NotionalUsd: 1000, MarginUsd: 100, EntryPrice: 50000, EntryFundingRate: 0.0001, FeeUsd: 0.1, OpenedAt: 1000,
		},
		Short: model.Leg{
			Exchange: "BYBIT", Symbol: "BTC:PERP-USDT", Side: model.SideShort, QuantityBase: 0.02, Leverage: 10,
			NotionalUsd: 1000, MarginUsd: 100, EntryPrice: 50000, EntryFundingRate: 0.0003, FeeUsd: 0.1, OpenedAt: 1000,
		},
	}
}

func TestSQLiteRepoCash(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	if _, found, err := repo.GetCash(ctx, "demo"); err != nil || found {
		t.Fatalf("new account: found=%v err=%v", found, err)
	}
	if err := repo.UpsertCash(ctx, "demo", 500, 1); err != nil {
		t.Fatalf("UpsertCash failed: %v", err)
	}
	if err := repo.UpsertCash(ctx, "demo", 750, 2); err != nil {
		t.Fatalf("UpsertCash failed: %v", err)
	}
	cash, found, err := repo.GetCash(ctx, "demo")
	if err != nil || !found || cash != 750 {
		t.Errorf("expected 750, got %f found=%v err=%v", cash, found, err)
	}
}

func TestSQLiteRepoPositionLifecycle(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	pos := testPosition("p1")

	if err := repo.CreatePosition(ctx, pos); err != nil {
		t.Fatalf("CreatePosition failed: %v", err)
	}

	got, err := repo.GetPosition(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPosition failed: %v", err)
	}
	if got.Long != pos.Long || got.Short != pos.Short || got.EntrySpread != pos.EntrySpread {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, pos)
	}

	open, err := repo.ListOpenPositions(ctx, "demo")
	if err != nil || len(open) != 1 || open[0].Short.Exchange != "BYBIT" {
		t.Fatalf("ListOpenPositions: %v %+v", err, open)
	}
	trades, _ := repo.ListOpenTrades(ctx, "demo")
	if len(trades) != 2 {
		t.Fatalf("expected 2 open legs, got %d", len(trades))
	}

	if err := repo.ClosePosition(ctx, "p1", 2000, 12.5); err != nil {
		t.Fatalf("ClosePosition failed: %v", err)
	}
	got, _ = repo.GetPosition(ctx, "p1")
	if got.IsOpen() || got.RealizedPnL != 12.5 {
		t.Errorf("position not closed: %+v", got)
	}
	if trades, _ := repo.ListOpenTrades(ctx, "demo"); len(trades) != 0 {
		t.Errorf("legs should be closed, %d open", len(trades))
	}
	if err := repo.ClosePosition(ctx, "p1", 3000, 0); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("closing twice: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepoTrades(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	tr := model.Trade{ID: "t1", Account: "demo", Leg: testPosition("x").Long}
	if err := repo.CreateTrade(ctx, tr); err != nil {
		t.Fatalf("CreateTrade failed: %v", err)
	}
	got, err := repo.GetTrade(ctx, "t1")
	if err != nil || got.Leg != tr.Leg || got.PositionID != "" {
		t.Fatalf("GetTrade: %v %+v", err, got)
	}
	if err := repo.CloseTrade(ctx, "t1", 99); err != nil {
		t.Fatalf("CloseTrade failed: %v", err)
	}
	if _, err := repo.GetTrade(ctx, "missing"); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepoReset(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_ = repo.CreatePosition(ctx, testPosition("p1"))
	if err := repo.ResetAccount(ctx, "demo", 10000, 5); err != nil {
		t.Fatalf("ResetAccount failed: %v", err)
	}
	if open, _ := repo.ListOpenPositions(ctx, "demo"); len(open) != 0 {
		t.Errorf("positions survived reset: %d", len(open))
	}
	if cash, _, _ := repo.GetCash(ctx, "demo"); cash != 10000 {
		t.Errorf("cash after reset: %f", cash)
	}
}

func TestSQLiteRepoSnapshotsAndPrices(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	if _, _, err := repo.LatestSnapshot(ctx, "demo"); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_ = repo.InsertSnapshot(ctx, 1, "demo", `{"ts":1}`)
	_ = repo.InsertSnapshot(ctx, 2, "demo", `{"ts":2}`)
	ts, payload, err := repo.LatestSnapshot(ctx, "demo")
	if err != nil || ts != 2 || payload != `{"ts":2}` {
		t.Errorf("LatestSnapshot: %d %q %v", ts, payload, err)
	}

	_ = repo.UpsertLatestPrice(ctx, "BTC", 50000, 1)
	_ = repo.UpsertLatestPrice(ctx, "BTC", 51000, 2)
	_ = repo.UpsertLatestPrice(ctx, "ETH", 0, 2)
	prices, err := repo.LatestPrices(ctx)
	if err != nil || len(prices) != 1 || prices["BTC"] != 51000 {
		t.Errorf("LatestPrices: %v %v", prices, err)
	}
}
