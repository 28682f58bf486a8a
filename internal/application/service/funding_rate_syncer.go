package service

import (
	"context"
	"fmt"
	"time"

	"fundarb/internal/application/port"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// FundingRateSyncer 定时拉取各交易所资金费率写入行情面板
type FundingRateSyncer struct {
	sources  []port.FundingSource
	board    port.MarketBoard
	interval time.Duration
	timeout  time.Duration
}

// NewFundingRateSyncer interval<=0 时默认 1 分钟
func NewFundingRateSyncer(board port.MarketBoard, interval time.Duration, sources ...port.FundingSource) *FundingRateSyncer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &FundingRateSyncer{
		sources:  sources,
		board:    board,
		interval: interval,
		timeout:  10 * time.Second,
	}
}

// Schedule 首次立即同步，然后注册到 cron 周期执行
func (s *FundingRateSyncer) Schedule(ctx context.Context, c *cron.Cron, coins []string) (cron.EntryID, error) {
	s.Sync(ctx, coins)
	id, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if ctx.Err() != nil {
			return
		}
		s.Sync(ctx, coins)
	})
	if err != nil {
		return 0, fmt.Errorf("schedule funding sync: %w", err)
	}
	return id, nil
}

// Sync 同步一次，单个交易所失败不影响其他交易所
func (s *FundingRateSyncer) Sync(ctx context.Context, coins []string) int {
	total := 0
	for _, src := range s.sources {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		rates, err := src.FetchFundingRates(cctx, coins)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("exchange", src.Name()).Msg("funding rate sync failed")
			continue
		}
		for _, r := range rates {
			if r.Exchange == "" {
				r.Exchange = src.Name()
			}
			s.board.SetFunding(r)
		}
		total += len(rates)
		log.Debug().Str("exchange", src.Name()).Int("rates", len(rates)).Msg("funding rates synced")
	}
	return total
}
