package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"fundarb/internal/domain/model"
	dsvc "fundarb/internal/domain/service"
)

type fixture struct {
	repo      *mockRepository
	board     *mockBoard
	accounts  *AccountService
	positions *PositionService
	portfolio *PortfolioService
}

func newFixture(initialCash float64) *fixture {
	repo := newMockRepository()
	board := newMockBoard()
	accounts := NewAccountService(repo, initialCash)

	builder := dsvc.NewLegBuilder(0.0001)
	builder.Clock = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	seq := 0
	builder.IDs = func() string {
		seq++
		return fmt.Sprintf("p%d", seq)
	}
	calc := dsvc.NewReturnCalculator(8 * time.Hour)

	return &fixture{
		repo:      repo,
		board:     board,
		accounts:  accounts,
		positions: NewPositionService(repo, accounts, builder, calc, board),
		portfolio: NewPortfolioService(repo, accounts, calc, board),
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func btcLegs() (dsvc.LegInput, dsvc.LegInput) {
	long := dsvc.LegInput{Exchange: "BINANCE", Symbol: "BTC", Side: model.SideLong, NotionalUsd: 1000, Leverage: 10, EntryPrice: 50000, EntryFundingRate: 0.0001}
	short := dsvc.LegInput{Exchange: "BYBIT", Symbol: "BTC:PERP-USDT", Side: model.SideShort, NotionalUsd: 1000, Leverage: 10, EntryPrice: 50000, EntryFundingRate: 0.0003}
	return long, short
}

func TestOpenArbitrageDebitsMarginAndFees(t *testing.T) {
	f := newFixture(10000)
	ctx := context.Background()
	long, short := btcLegs()

	pos, err := f.positions.OpenArbitrage(ctx, "demo", long, short)
	if err != nil {
		t.Fatalf("OpenArbitrage failed: %v", err)
	}
	if pos.ID != "p1" || pos.Account != "demo" {
		t.Errorf("unexpected position identity: %+v", pos)
	}
	if !near(pos.EntrySpread, 0.0002) {
		t.Errorf("entry spread: expected 0.0002, got %f", pos.EntrySpread)
	}

	cash, _ := f.accounts.Cash(ctx, "demo")
	if !near(cash, 10000-200.2) {
		t.Errorf("cash: expected 9799.8, got %f", cash)
	}

	trades, _ := f.repo.ListOpenTrades(ctx, "demo")
	if len(trades) != 2 {
		t.Fatalf("expected 2 persisted legs, got %d", len(trades))
	}
}

func TestOpenArbitrageInsufficientBalance(t *testing.T) {
	f := newFixture(100)
	ctx := context.Background()
	long, short := btcLegs()

	_, err := f.positions.OpenArbitrage(ctx, "demo", long, short)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	cash, _ := f.accounts.Cash(ctx, "demo")
	if cash != 100 {
		t.Errorf("cash must be untouched, got %f", cash)
	}
	if open, _ := f.repo.ListOpenPositions(ctx, "demo"); len(open) != 0 {
		t.Errorf("no position should be stored, got %d", len(open))
	}
}

func TestOpenArbitrageRejectsSwappedLegs(t *testing.T) {
	f := newFixture(10000)
	long, short := btcLegs()

	_, err := f.positions.OpenArbitrage(context.Background(), "demo", short, long)
	if !errors.Is(err, model.ErrInconsistentLeg) {
		t.Fatalf("expected ErrInconsistentLeg, got %v", err)
	}
}

func TestOpenArbitrageRefundsOnStoreFailure(t *testing.T) {
	f := newFixture(10000)
	f.repo.failWrite = true
	ctx := context.Background()
	long, short := btcLegs()

	if _, err := f.positions.OpenArbitrage(ctx, "demo", long, short); !errors.Is(err, errWrite) {
		t.Fatalf("expected write error, got %v", err)
	}
	cash, _ := f.accounts.Cash(ctx, "demo")
	if !near(cash, 10000) {
		t.Errorf("cash should be refunded, got %f", cash)
	}
}

func TestClosePositionCreditsMarginAndPnL(t *testing.T) {
	f := newFixture(10000)
	ctx := context.Background()
	long, short := btcLegs()

	pos, err := f.positions.OpenArbitrage(ctx, "demo", long, short)
	if err != nil {
		t.Fatalf("OpenArbitrage failed: %v", err)
	}
	f.board.SetPrice("BTC", 51000, 1)

	closed, err := f.positions.ClosePosition(ctx, pos.ID)
	if err != nil {
		t.Fatalf("ClosePosition failed: %v", err)
	}
	// 价格盈亏对冲为 0，仅剩平仓手续费 2 * 0.02 * 51000 * 1bp
	if closed.IsOpen() || !near(closed.RealizedPnL, -0.204) {
		t.Errorf("unexpected close result: %+v", closed)
	}

	cash, _ := f.accounts.Cash(ctx, "demo")
	if !near(cash, 9999.596) {
		t.Errorf("cash: expected 9999.596 (fees lost), got %f", cash)
	}
	if trades, _ := f.repo.ListOpenTrades(ctx, "demo"); len(trades) != 0 {
		t.Errorf("legs should be closed, %d still open", len(trades))
	}

	if _, err := f.positions.ClosePosition(ctx, pos.ID); !errors.Is(err, ErrPositionClosed) {
		t.Errorf("second close: expected ErrPositionClosed, got %v", err)
	}
}

func TestClosePositionErrors(t *testing.T) {
	f := newFixture(10000)
	ctx := context.Background()

	if _, err := f.positions.ClosePosition(ctx, "missing"); !errors.Is(err, ErrPositionNotFound) {
		t.Errorf("expected ErrPositionNotFound, got %v", err)
	}

	long, short := btcLegs()
	pos, err := f.positions.OpenArbitrage(ctx, "demo", long, short)
	if err != nil {
		t.Fatalf("OpenArbitrage failed: %v", err)
	}
	if _, err := f.positions.ClosePosition(ctx, pos.ID); !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected ErrPriceUnavailable, got %v", err)
	}
	if open, _ := f.positions.ListOpenPositions(ctx, "demo"); len(open) != 1 {
		t.Errorf("position must stay open after failed close")
	}
}

func TestPlaceAndCloseTrade(t *testing.T) {
	f := newFixture(10000)
	ctx := context.Background()

	tr, err := f.positions.PlaceTrade(ctx, "demo", dsvc.LegInput{
		Exchange: "BINANCE", Symbol: "SOL", Side: model.SideLong, NotionalUsd: 500, Leverage: 5, EntryPrice: 100,
	})
	if err != nil {
		t.Fatalf("PlaceTrade failed: %v", err)
	}
	cash, _ := f.accounts.Cash(ctx, "demo")
	if !near(cash, 10000-100.05) {
		t.Errorf("cash after open: got %f", cash)
	}

	f.board.SetPrice("SOL", 110, 1)
	closed, pnl, err := f.positions.CloseTrade(ctx, tr.ID)
	if err != nil {
		t.Fatalf("CloseTrade failed: %v", err)
	}
	if !near(pnl, 50-0.055) || closed.IsOpen() {
		t.Errorf("unexpected close: pnl=%f trade=%+v", pnl, closed)
	}
	cash, _ = f.accounts.Cash(ctx, "demo")
	if !near(cash, 10049.895) {
		t.Errorf("cash after close: expected 10049.895, got %f", cash)
	}
}

func TestCloseTradeRefusesPositionLeg(t *testing.T) {
	f := newFixture(10000)
	ctx := context.Background()
	long, short := btcLegs()

	pos, err := f.positions.OpenArbitrage(ctx, "demo", long, short)
	if err != nil {
		t.Fatalf("OpenArbitrage failed: %v", err)
	}
	f.board.SetPrice("BTC", 50000, 1)
	if _, _, err := f.positions.CloseTrade(ctx, pos.ID+":long"); !errors.Is(err, ErrTradeInPosition) {
		t.Error("closing a single leg of a position should fail")
	}
}

func TestOpenArbitrageRejectedByRisk(t *testing.T) {
	f := newFixture(10000)
	f.positions.WithRisk(&dsvc.RiskManager{MaxPositionsPerAsset: 1})
	ctx := context.Background()
	long, short := btcLegs()

	if _, err := f.positions.OpenArbitrage(ctx, "demo", long, short); err != nil {
		t.Fatalf("first position should pass: %v", err)
	}
	if _, err := f.positions.OpenArbitrage(ctx, "demo", long, short); !errors.Is(err, model.ErrRiskLimit) {
		t.Fatalf("expected ErrRiskLimit, got %v", err)
	}
	cash, _ := f.accounts.Cash(ctx, "demo")
	if !near(cash, 9799.8) {
		t.Errorf("rejected order must not debit cash, got %f", cash)
	}
}
