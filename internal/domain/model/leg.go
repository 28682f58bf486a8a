package model

import (
	"strings"

	"fundarb/internal/domain/symbol"
)

// Side 交易方向
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ParseSide 解析方向，支持 long/short/buy/sell（大小写不敏感）
func ParseSide(s string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return SideLong, true
	case "short", "sell":
		return SideShort, true
	default:
		return "", false
	}
}

// Valid 是否为合法方向
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// Sign 多头 +1，空头 -1
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// Leg 套利的一条腿
type Leg struct {
	Exchange         string  `json:"exchange"`
	Symbol           string  `json:"symbol"` // 原始合约符号，如 BTC:PERP-USD
	Side             Side    `json:"side"`
	QuantityBase     float64 `json:"quantity_base"`
	Leverage         float64 `json:"leverage"`
	NotionalUsd      float64 `json:"notional_usd"` // 开仓名义价值，与杠杆无关
	MarginUsd        float64 `json:"margin_usd"`   // = NotionalUsd / Leverage
	EntryPrice       float64 `json:"entry_price"`
	EntryFundingRate float64 `json:"entry_funding_rate"` // 单周期费率
	FeeUsd           float64 `json:"fee_usd"`
	OpenedAt         int64   `json:"opened_at"` // unix ms
}

// Asset 基础币种
func (l Leg) Asset() string {
	return symbol.Normalize(l.Symbol)
}

// PnL 按当前价格计算的未实现盈亏
func (l Leg) PnL(currentPrice float64) float64 {
	if l.Side == SideShort {
		return (l.EntryPrice - currentPrice) * l.QuantityBase
	}
	return (currentPrice - l.EntryPrice) * l.QuantityBase
}

// SignedNotional 多头为正，空头为负
func (l Leg) SignedNotional() float64 {
	return l.Side.Sign() * l.NotionalUsd
}

// Trade 持久化的单条腿
type Trade struct {
	ID         string `json:"id"`
	Account    string `json:"account"`
	PositionID string `json:"position_id,omitempty"` // 单腿交易为空
	Leg
	ClosedAt int64 `json:"closed_at,omitempty"`
}

// IsOpen 是否仍在持仓
func (t Trade) IsOpen() bool {
	return t.ClosedAt == 0
}
