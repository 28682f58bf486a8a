package port

import (
	"context"

	"fundarb/internal/domain/model"
)

type Tick struct {
	Exchange string  // 交易所 "BINANCE" "BYBIT"
	Symbol   string  // 币种 "BTC"
	PriceStr string  // raw string
	PriceNum float64 // parsed float64 (best-effort)
	Ts       int64   // unix ms
}

type PriceFeed interface {
	Name() string
	Subscribe(ctx context.Context, coins []string) (<-chan Tick, error)
}

// FundingRate 某交易所某币种的单周期资金费率
type FundingRate struct {
	Exchange        string
	Asset           string
	Rate            float64
	NextFundingTime int64 // unix ms
	Ts              int64
}

// FundingSource 资金费率来源
type FundingSource interface {
	Name() string
	FetchFundingRates(ctx context.Context, coins []string) ([]FundingRate, error)
}

// PriceQuoter 公共 REST 行情（价格代理）
type PriceQuoter interface {
	Quote(ctx context.Context, coins []string) (map[string]float64, error)
}

// MarketDataProvider 提供一致的行情快照
type MarketDataProvider interface {
	MarketData() model.MarketData
}

// MarketBoard 可写的行情面板
type MarketBoard interface {
	MarketDataProvider
	SetPrice(asset string, price float64, ts int64)
	SetFunding(rate FundingRate)
}
