package model

// ReturnSnapshot 套利持仓的收益快照，按需计算，不持久化
type ReturnSnapshot struct {
	PositionID string `json:"position_id,omitempty"`
	Asset      string `json:"asset"`

	PnLLong          float64 `json:"unrealized_pnl_long"`
	PnLShort         float64 `json:"unrealized_pnl_short"`
	NetUnrealizedPnL float64 `json:"net_unrealized_pnl"`

	EntrySpread   float64 `json:"entry_spread"`
	CurrentSpread float64 `json:"current_spread"` // short 费率 - long 费率，>0 表示收取资金费
	SpreadChange  float64 `json:"spread_change"`

	NetNotional            float64 `json:"directional_bias_usd"` // long 名义 - short 名义
	TotalEquity            float64 `json:"total_equity"`
	DirectionalBiasPercent float64 `json:"directional_bias_percent"`

	EstimatedDailyFundingUsd   float64 `json:"estimated_daily_funding_usd"`    // (notionalLong*rL - notionalShort*rS) / periodsPerDay
	NetDailyFundingReceivedUsd float64 `json:"net_daily_funding_received_usd"` // (notionalShort*rS - notionalLong*rL) * periodsPerDay
	AnnualizedReturnPercent    float64 `json:"annualized_return_percent"`      // 基于 NetDailyFundingReceivedUsd

	LongPriceUnavailable    bool `json:"long_price_unavailable,omitempty"`
	ShortPriceUnavailable   bool `json:"short_price_unavailable,omitempty"`
	LongFundingUnavailable  bool `json:"long_funding_unavailable,omitempty"`
	ShortFundingUnavailable bool `json:"short_funding_unavailable,omitempty"`
}

// Degraded 行情不完整时为 true，调用方自行决定是否信任
func (s ReturnSnapshot) Degraded() bool {
	return s.LongPriceUnavailable || s.ShortPriceUnavailable ||
		s.LongFundingUnavailable || s.ShortFundingUnavailable
}

// PortfolioSummary 账户汇总，每次查询时重新计算
type PortfolioSummary struct {
	CashUsd                float64 `json:"cash_usd"`
	TotalMargin            float64 `json:"total_margin"`
	TotalNotional          float64 `json:"total_notional"`
	TotalFees              float64 `json:"total_fees"`
	NetNotional            float64 `json:"net_notional"`
	UnrealizedPnL          float64 `json:"unrealized_pnl"`
	TotalEquity            float64 `json:"total_equity"`
	DirectionalBiasPercent float64 `json:"directional_bias_percent"`
	UnrealizedPnLPercent   float64 `json:"unrealized_pnl_percent"`

	TradeCount       int      `json:"trade_count"`
	ExcludedTrades   int      `json:"excluded_trades"`
	ExcludedAssets   []string `json:"excluded_assets,omitempty"` // 无价格而被排除的币种
	PriceUnavailable bool     `json:"price_unavailable,omitempty"`
}
