package service

import (
	"context"
	"fmt"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/symbol"

	"github.com/rs/zerolog/log"
)

// PriceService 行情写入：面板 + 缓存
type PriceService struct {
	board  port.MarketBoard
	cache  port.PriceCache // 可为 nil
	quoter port.PriceQuoter
	now    func() time.Time
}

func NewPriceService(board port.MarketBoard, cache port.PriceCache, quoter port.PriceQuoter) *PriceService {
	return &PriceService{board: board, cache: cache, quoter: quoter, now: time.Now}
}

// UpdatePrice 写入一条价格，<=0 的报价丢弃
func (s *PriceService) UpdatePrice(ctx context.Context, asset string, price float64, ts int64) error {
	asset = symbol.Normalize(asset)
	if asset == "" || price <= 0 {
		return nil
	}
	s.board.SetPrice(asset, price, ts)
	if s.cache == nil {
		return nil
	}
	return s.cache.UpsertLatestPrice(ctx, asset, price, ts)
}

// Quote 只读 REST 报价，不写面板和缓存
func (s *PriceService) Quote(ctx context.Context, coins []string) (map[string]float64, error) {
	if s.quoter == nil {
		return nil, ErrNoQuoter
	}
	quotes, err := s.quoter.Quote(ctx, coins)
	if err != nil {
		return nil, fmt.Errorf("quote prices: %w", err)
	}
	out := make(map[string]float64, len(quotes))
	for asset, px := range quotes {
		if px > 0 {
			out[asset] = px
		}
	}
	return out, nil
}

// Refresh 通过 REST 报价补齐价格并写入面板和缓存（WS 断线、冷启动时使用）
func (s *PriceService) Refresh(ctx context.Context, coins []string) (map[string]float64, error) {
	out, err := s.Quote(ctx, coins)
	if err != nil {
		return nil, err
	}
	ts := s.now().UnixMilli()
	for asset, px := range out {
		if err := s.UpdatePrice(ctx, asset, px, ts); err != nil {
			log.Warn().Err(err).Str("asset", asset).Msg("cache price failed")
		}
	}
	return out, nil
}

// Warm 启动时从缓存恢复最近价格
func (s *PriceService) Warm(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	prices, err := s.cache.LatestPrices(ctx)
	if err != nil {
		return 0, err
	}
	ts := s.now().UnixMilli()
	for asset, px := range prices {
		if px > 0 {
			s.board.SetPrice(symbol.Normalize(asset), px, ts)
		}
	}
	return len(prices), nil
}
