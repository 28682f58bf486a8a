package factory

import (
	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/config"
	"fundarb/internal/infrastructure/exchange/binance"
	"fundarb/internal/infrastructure/exchange/bybit"

	"github.com/rs/zerolog/log"
)

// NewPriceFeeds 按配置初始化 WS 价格源（目前仅 Binance 提供推送）
func NewPriceFeeds(cfg *config.Config) []port.PriceFeed {
	var feeds []port.PriceFeed
	if cfg.Exchange.Binance.Enabled {
		feeds = append(feeds, binance.NewTickerFeed(cfg.Exchange.Binance.WsURL))
		log.Info().Str("exchange", "BINANCE").Msg("price feed initialized")
	}
	return feeds
}

// NewFundingSources 按配置初始化资金费率来源
func NewFundingSources(cfg *config.Config) []port.FundingSource {
	var sources []port.FundingSource
	if cfg.Exchange.Binance.Enabled {
		sources = append(sources, binance.NewRestClient(cfg.Exchange.Binance.RestURL))
	}
	if cfg.Exchange.Bybit.Enabled {
		sources = append(sources, bybit.NewRestClient(cfg.Exchange.Bybit.RestURL))
	}
	for _, s := range sources {
		log.Info().Str("exchange", s.Name()).Msg("funding source initialized")
	}
	return sources
}

// NewPriceQuoter REST 报价，优先 Binance；全部关闭时返回 nil
func NewPriceQuoter(cfg *config.Config) port.PriceQuoter {
	switch {
	case cfg.Exchange.Binance.Enabled:
		return binance.NewRestClient(cfg.Exchange.Binance.RestURL)
	case cfg.Exchange.Bybit.Enabled:
		return bybit.NewRestClient(cfg.Exchange.Bybit.RestURL)
	default:
		return nil
	}
}
