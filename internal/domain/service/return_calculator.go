package service

import (
	"time"

	"fundarb/internal/domain/model"
)

// ReturnCalculator 资金费率套利收益计算器，无状态，可并发使用
type ReturnCalculator struct {
	fundingPeriod time.Duration
	periodsPerDay float64
}

// NewReturnCalculator fundingPeriod 为资金费结算周期（各交易所不同，需显式传入）
func NewReturnCalculator(fundingPeriod time.Duration) *ReturnCalculator {
	if fundingPeriod <= 0 {
		fundingPeriod = DefaultFundingPeriod
	}
	return &ReturnCalculator{
		fundingPeriod: fundingPeriod,
		periodsPerDay: PeriodsPerDay(fundingPeriod),
	}
}

// FundingPeriod 结算周期
func (rc *ReturnCalculator) FundingPeriod() time.Duration {
	return rc.fundingPeriod
}

// ComputeReturn 按当前行情计算持仓收益快照
// 价格缺失时该腿 PnL 记 0 并打标记；费率缺失时沿用开仓费率并打标记
func (rc *ReturnCalculator) ComputeReturn(pos model.ArbitragePosition, md model.MarketData) (model.ReturnSnapshot, error) {
	if err := validatePair(pos.Long, pos.Short); err != nil {
		return model.ReturnSnapshot{}, err
	}

	snap := model.ReturnSnapshot{
		PositionID:  pos.ID,
		Asset:       pos.Long.Asset(),
		EntrySpread: pos.EntrySpread,
	}

	if px, ok := md.Price(pos.Long.Asset()); ok {
		snap.PnLLong = pos.Long.PnL(px)
	} else {
		snap.LongPriceUnavailable = true
	}
	if px, ok := md.Price(pos.Short.Asset()); ok {
		snap.PnLShort = pos.Short.PnL(px)
	} else {
		snap.ShortPriceUnavailable = true
	}
	snap.NetUnrealizedPnL = snap.PnLLong + snap.PnLShort
	snap.NetNotional = pos.Long.NotionalUsd - pos.Short.NotionalUsd

	longRate, ok := md.FundingRate(pos.Long.Asset(), pos.Long.Exchange)
	if !ok {
		longRate = pos.Long.EntryFundingRate
		snap.LongFundingUnavailable = true
	}
	shortRate, ok := md.FundingRate(pos.Short.Asset(), pos.Short.Exchange)
	if !ok {
		shortRate = pos.Short.EntryFundingRate
		snap.ShortFundingUnavailable = true
	}
	snap.CurrentSpread = Spread(longRate, shortRate)
	snap.SpreadChange = snap.CurrentSpread - snap.EntrySpread

	// 多头腿支付 - 空头腿收取，按周期数折算
	snap.EstimatedDailyFundingUsd = pos.Long.NotionalUsd*longRate/rc.periodsPerDay -
		pos.Short.NotionalUsd*shortRate/rc.periodsPerDay

	// 每日净收取资金费：空头腿收取 - 多头腿支付
	perPeriod := FundingPaymentUsd(pos.Short.NotionalUsd, shortRate, model.SideShort) +
		FundingPaymentUsd(pos.Long.NotionalUsd, longRate, model.SideLong)
	snap.NetDailyFundingReceivedUsd = perPeriod * rc.periodsPerDay

	margin := pos.Long.MarginUsd + pos.Short.MarginUsd
	snap.TotalEquity = margin + snap.NetUnrealizedPnL
	snap.DirectionalBiasPercent = percentOf(snap.NetNotional, snap.TotalEquity)
	snap.AnnualizedReturnPercent = percentOf(snap.NetDailyFundingReceivedUsd*daysPerYear, margin)

	return snap, nil
}

// RealizedPnL 平仓盈亏（需两腿价格齐全）
func (rc *ReturnCalculator) RealizedPnL(pos model.ArbitragePosition, md model.MarketData) (float64, bool, error) {
	snap, err := rc.ComputeReturn(pos, md)
	if err != nil {
		return 0, false, err
	}
	if snap.LongPriceUnavailable || snap.ShortPriceUnavailable {
		return 0, false, nil
	}
	return snap.NetUnrealizedPnL, true, nil
}

func validatePair(long, short model.Leg) error {
	if long.Side != model.SideLong {
		return &model.InconsistentLegError{Slot: model.SideLong, Side: long.Side}
	}
	if short.Side != model.SideShort {
		return &model.InconsistentLegError{Slot: model.SideShort, Side: short.Side}
	}
	if err := ValidateLeg(long); err != nil {
		return err
	}
	return ValidateLeg(short)
}

// ValidateLeg 在运算前拒绝非有限值或负值
func ValidateLeg(l model.Leg) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"quantityBase", l.QuantityBase},
		{"notionalUsd", l.NotionalUsd},
		{"marginUsd", l.MarginUsd},
		{"entryPrice", l.EntryPrice},
		{"feeUsd", l.FeeUsd},
	}
	for _, f := range fields {
		if !finite(f.v) || f.v < 0 {
			return &model.InvalidOrderError{Field: f.name, Value: f.v, Reason: "must be finite and >= 0"}
		}
	}
	if l.QuantityBase == 0 {
		return &model.InvalidOrderError{Field: "quantityBase", Value: 0, Reason: "must be > 0"}
	}
	if !finite(l.Leverage) || l.Leverage < 1 {
		return &model.InvalidOrderError{Field: "leverage", Value: l.Leverage, Reason: "must be >= 1"}
	}
	if !finite(l.EntryFundingRate) {
		return &model.InvalidOrderError{Field: "entryFundingRate", Value: l.EntryFundingRate, Reason: "must be finite"}
	}
	return nil
}

// percentOf 分母为 0 时返回 0，避免 NaN/Inf
func percentOf(num, denom float64) float64 {
	if denom == 0 {
		return 0
	}
	return num / denom * 100
}
