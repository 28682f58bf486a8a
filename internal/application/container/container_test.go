package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fundarb/internal/application/usecase/monitor"
	"fundarb/internal/domain/model"
	dsvc "fundarb/internal/domain/service"
	"fundarb/internal/infrastructure/config"
	infracontainer "fundarb/internal/infrastructure/container"
)

func TestContainerServiceWorkflow(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.SQLite.Enabled = true
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "workflow.db")

	infra, err := infracontainer.New(cfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer infra.Close()

	board := monitor.NewState([]string{"BTC"})
	c := New(Deps{
		Repo:    infra.Repository(),
		Board:   board,
		Cache:   infra.PriceCache(),
		Archive: infra.Archive(),
	}, Options{InitialCash: 10000, FeeRate: 0.0001, FundingPeriod: 8 * time.Hour})

	ctx := context.Background()
	if err := c.PriceService().UpdatePrice(ctx, "BTC", 50000, 1); err != nil {
		t.Fatalf("UpdatePrice failed: %v", err)
	}

	long := dsvc.LegInput{Exchange: "BINANCE", Symbol: "BTC", Side: model.SideLong, NotionalUsd: 1000, Leverage: 5, EntryPrice: 50000, EntryFundingRate: 0.0001}
	short := dsvc.LegInput{Exchange: "BYBIT", Symbol: "BTCUSDT", Side: model.SideShort, NotionalUsd: 1000, Leverage: 5, EntryPrice: 50000, EntryFundingRate: 0.0004}
	pos, err := c.PositionService().OpenArbitrage(ctx, "demo", long, short)
	if err != nil {
		t.Fatalf("OpenArbitrage failed: %v", err)
	}

	views, err := c.PortfolioService().PositionSnapshots(ctx, "demo")
	if err != nil {
		t.Fatalf("PositionSnapshots failed: %v", err)
	}
	if len(views) != 1 || views[0].Position.ID != pos.ID {
		t.Fatalf("unexpected views: %+v", views)
	}

	snap, err := c.SnapshotService().Take(ctx, "demo", 2)
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if snap.Summary.TradeCount != 2 {
		t.Errorf("expected 2 priced legs, got %d", snap.Summary.TradeCount)
	}

	if _, err := c.PositionService().ClosePosition(ctx, pos.ID); err != nil {
		t.Fatalf("ClosePosition failed: %v", err)
	}
	if open, _ := c.PositionService().ListOpenPositions(ctx, "demo"); len(open) != 0 {
		t.Errorf("expected no open positions, got %d", len(open))
	}
}
