package service

import "fundarb/internal/domain/model"

// RiskManager 开仓前风控，零值字段表示不限制
type RiskManager struct {
	MaxOrderNotionalUsd  float64 // 单次下单（含两条腿）名义价值上限
	MaxTotalNotionalUsd  float64 // 账户总名义价值上限（多空绝对值之和）
	MaxPositionsPerAsset int     // 单币种最多持仓数（套利持仓算一个）
	MaxLeverage          float64
}

// CanOpen 检查新腿加入现有持仓后是否触发限制，open 为账户当前未平仓交易
func (rm *RiskManager) CanOpen(open []model.Trade, legs ...model.Leg) error {
	if rm == nil || len(legs) == 0 {
		return nil
	}

	orderNotional := 0.0
	for _, l := range legs {
		orderNotional += l.NotionalUsd
		if rm.MaxLeverage > 0 && l.Leverage > rm.MaxLeverage {
			return &model.RiskLimitError{Limit: "leverage", Value: l.Leverage, Max: rm.MaxLeverage}
		}
	}
	if rm.MaxOrderNotionalUsd > 0 && orderNotional > rm.MaxOrderNotionalUsd {
		return &model.RiskLimitError{Limit: "order_notional_usd", Value: orderNotional, Max: rm.MaxOrderNotionalUsd}
	}

	if rm.MaxTotalNotionalUsd > 0 {
		total := orderNotional
		for _, t := range open {
			total += t.NotionalUsd
		}
		if total > rm.MaxTotalNotionalUsd {
			return &model.RiskLimitError{Limit: "total_notional_usd", Value: total, Max: rm.MaxTotalNotionalUsd}
		}
	}

	if rm.MaxPositionsPerAsset > 0 {
		asset := legs[0].Asset()
		n := countPositions(open, asset) + 1
		if n > rm.MaxPositionsPerAsset {
			return &model.RiskLimitError{Limit: "positions_" + asset, Value: float64(n), Max: float64(rm.MaxPositionsPerAsset)}
		}
	}
	return nil
}

// countPositions 某币种的持仓数，同一套利持仓的两条腿只计一次
func countPositions(open []model.Trade, asset string) int {
	seen := make(map[string]struct{})
	for _, t := range open {
		if t.Asset() != asset {
			continue
		}
		key := t.PositionID
		if key == "" {
			key = t.ID
		}
		seen[key] = struct{}{}
	}
	return len(seen)
}
