package model

import "strings"

// ArbitragePosition 资金费率套利持仓（一多一空）
type ArbitragePosition struct {
	ID          string  `json:"id"`
	Account     string  `json:"account"`
	Long        Leg     `json:"long"`
	Short       Leg     `json:"short"`
	EntrySpread float64 `json:"entry_spread"` // 开仓时 short 费率 - long 费率
	OpenedAt    int64   `json:"opened_at"`
	ClosedAt    int64   `json:"closed_at,omitempty"` // 0 表示未平仓
	RealizedPnL float64 `json:"realized_pnl,omitempty"`
}

// IsOpen 是否未平仓
func (p *ArbitragePosition) IsOpen() bool {
	return p.ClosedAt == 0
}

// Asset 基础币种（取多头腿）
func (p *ArbitragePosition) Asset() string {
	return p.Long.Asset()
}

// Trades 将两条腿展开为持久化交易记录
func (p *ArbitragePosition) Trades() []Trade {
	return []Trade{
		{ID: p.ID + ":long", Account: p.Account, PositionID: p.ID, Leg: p.Long, ClosedAt: p.ClosedAt},
		{ID: p.ID + ":short", Account: p.Account, PositionID: p.ID, Leg: p.Short, ClosedAt: p.ClosedAt},
	}
}

// FundingKey 资金费率查询键
type FundingKey struct {
	Asset    string
	Exchange string
}

// NewFundingKey 统一大小写
func NewFundingKey(asset, exchange string) FundingKey {
	return FundingKey{
		Asset:    strings.ToUpper(strings.TrimSpace(asset)),
		Exchange: strings.ToUpper(strings.TrimSpace(exchange)),
	}
}

// MarketData 一次计算使用的行情快照，调用方保证一致性
type MarketData struct {
	Prices  map[string]float64     // asset -> USD 价格
	Funding map[FundingKey]float64 // (asset, exchange) -> 单周期费率
	Ts      int64
}

// Price 查询币种价格，<=0 视为缺失
func (m MarketData) Price(asset string) (float64, bool) {
	p, ok := m.Prices[strings.ToUpper(asset)]
	if !ok || p <= 0 {
		return 0, false
	}
	return p, true
}

// FundingRate 查询某交易所某币种当前费率
func (m MarketData) FundingRate(asset, exchange string) (float64, bool) {
	r, ok := m.Funding[NewFundingKey(asset, exchange)]
	return r, ok
}
