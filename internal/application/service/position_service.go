package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	dsvc "fundarb/internal/domain/service"

	"github.com/rs/zerolog/log"
)

// PositionService 下单（单腿 / 配对套利）与平仓
type PositionService struct {
	repo     port.Repository
	accounts *AccountService
	builder  *dsvc.LegBuilder
	calc     *dsvc.ReturnCalculator
	market   port.MarketDataProvider
	risk     *dsvc.RiskManager
	now      func() time.Time
}

func NewPositionService(
	repo port.Repository,
	accounts *AccountService,
	builder *dsvc.LegBuilder,
	calc *dsvc.ReturnCalculator,
	market port.MarketDataProvider,
) *PositionService {
	return &PositionService{
		repo:     repo,
		accounts: accounts,
		builder:  builder,
		calc:     calc,
		market:   market,
		now:      time.Now,
	}
}

// WithRisk 设置开仓风控，nil 不限制
func (s *PositionService) WithRisk(rm *dsvc.RiskManager) *PositionService {
	s.risk = rm
	return s
}

// PlaceTrade 开单腿仓位，扣除保证金与手续费
func (s *PositionService) PlaceTrade(ctx context.Context, account string, in dsvc.LegInput) (*model.Trade, error) {
	t, err := s.builder.Build(account, in)
	if err != nil {
		return nil, err
	}
	if err := s.checkRisk(ctx, account, t.Leg); err != nil {
		return nil, err
	}
	cost := t.MarginUsd + t.FeeUsd
	if _, err := s.accounts.adjust(ctx, account, -cost); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTrade(ctx, t); err != nil {
		s.refund(ctx, account, cost)
		return nil, fmt.Errorf("create trade: %w", err)
	}

	log.Info().
		Str("account", account).
		Str("trade", t.ID).
		Str("symbol", t.Symbol).
		Str("side", string(t.Side)).
		Float64("notional", t.NotionalUsd).
		Float64("margin", t.MarginUsd).
		Msg("trade opened")
	return &t, nil
}

// OpenArbitrage 开配对套利仓位（long 腿 + short 腿）
func (s *PositionService) OpenArbitrage(ctx context.Context, account string, long, short dsvc.LegInput) (*model.ArbitragePosition, error) {
	pos, err := s.builder.Pair(account, long, short)
	if err != nil {
		return nil, err
	}
	if err := s.checkRisk(ctx, account, pos.Long, pos.Short); err != nil {
		return nil, err
	}
	cost := pos.Long.MarginUsd + pos.Long.FeeUsd + pos.Short.MarginUsd + pos.Short.FeeUsd
	if _, err := s.accounts.adjust(ctx, account, -cost); err != nil {
		return nil, err
	}
	if err := s.repo.CreatePosition(ctx, pos); err != nil {
		s.refund(ctx, account, cost)
		return nil, fmt.Errorf("create position: %w", err)
	}

	log.Info().
		Str("account", account).
		Str("position", pos.ID).
		Str("asset", pos.Asset()).
		Str("long", pos.Long.Exchange).
		Str("short", pos.Short.Exchange).
		Float64("entry_spread", pos.EntrySpread).
		Float64("cost", cost).
		Msg("arbitrage position opened")
	return pos, nil
}

// ClosePosition 平掉两条腿，返还保证金和已实现盈亏（扣除平仓手续费）
func (s *PositionService) ClosePosition(ctx context.Context, id string) (*model.ArbitragePosition, error) {
	pos, err := s.repo.GetPosition(ctx, id)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
		}
		return nil, err
	}
	if !pos.IsOpen() {
		return nil, fmt.Errorf("%w: %s", ErrPositionClosed, id)
	}

	md := s.market.MarketData()
	pnl, ok, err := s.calc.RealizedPnL(*pos, md)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPriceUnavailable, pos.Asset())
	}

	longPx, _ := md.Price(pos.Long.Asset())
	shortPx, _ := md.Price(pos.Short.Asset())
	pnl -= s.exitFee(pos.Long, longPx) + s.exitFee(pos.Short, shortPx)

	closedAt := s.now().UnixMilli()
	if err := s.repo.ClosePosition(ctx, id, closedAt, pnl); err != nil {
		return nil, err
	}
	// 逐仓：亏损最多吃掉保证金
	credit := max(pos.Long.MarginUsd+pos.Short.MarginUsd+pnl, 0)
	if _, err := s.accounts.adjust(ctx, pos.Account, credit); err != nil {
		return nil, err
	}

	pos.ClosedAt = closedAt
	pos.RealizedPnL = pnl
	log.Info().
		Str("account", pos.Account).
		Str("position", id).
		Float64("realized_pnl", pnl).
		Msg("arbitrage position closed")
	return pos, nil
}

// CloseTrade 平掉单腿仓位，返回扣除平仓手续费后的已实现盈亏
func (s *PositionService) CloseTrade(ctx context.Context, id string) (*model.Trade, float64, error) {
	t, err := s.repo.GetTrade(ctx, id)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, 0, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
		}
		return nil, 0, err
	}
	if !t.IsOpen() {
		return nil, 0, fmt.Errorf("%w: %s", ErrPositionClosed, id)
	}
	if t.PositionID != "" {
		return nil, 0, fmt.Errorf("%w: trade %s, position %s", ErrTradeInPosition, id, t.PositionID)
	}

	px, ok := s.market.MarketData().Price(t.Asset())
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, t.Asset())
	}
	pnl := t.PnL(px) - s.exitFee(t.Leg, px)

	closedAt := s.now().UnixMilli()
	if err := s.repo.CloseTrade(ctx, id, closedAt); err != nil {
		return nil, 0, err
	}
	if _, err := s.accounts.adjust(ctx, t.Account, max(t.MarginUsd+pnl, 0)); err != nil {
		return nil, 0, err
	}
	t.ClosedAt = closedAt
	return t, pnl, nil
}

func (s *PositionService) ListOpenPositions(ctx context.Context, account string) ([]*model.ArbitragePosition, error) {
	return s.repo.ListOpenPositions(ctx, account)
}

func (s *PositionService) ListOpenTrades(ctx context.Context, account string) ([]model.Trade, error) {
	return s.repo.ListOpenTrades(ctx, account)
}

func (s *PositionService) checkRisk(ctx context.Context, account string, legs ...model.Leg) error {
	if s.risk == nil {
		return nil
	}
	open, err := s.repo.ListOpenTrades(ctx, account)
	if err != nil {
		return err
	}
	if err := s.risk.CanOpen(open, legs...); err != nil {
		log.Warn().Err(err).Str("account", account).Msg("order rejected by risk limits")
		return err
	}
	return nil
}

// exitFee 平仓手续费，按平仓价名义价值计
func (s *PositionService) exitFee(l model.Leg, px float64) float64 {
	return l.QuantityBase * px * s.builder.FeeRate
}

func (s *PositionService) refund(ctx context.Context, account string, amount float64) {
	if _, err := s.accounts.adjust(ctx, account, amount); err != nil {
		log.Error().Err(err).Str("account", account).Float64("amount", amount).Msg("refund failed")
	}
}
