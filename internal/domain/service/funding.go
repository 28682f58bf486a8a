package service

import (
	"time"

	"fundarb/internal/domain/model"
)

// DefaultFundingPeriod 大多数交易所 8 小时结算一次
const DefaultFundingPeriod = 8 * time.Hour

const daysPerYear = 365

// PeriodsPerDay 每天结算次数，period<=0 时按 8 小时
func PeriodsPerDay(period time.Duration) float64 {
	if period <= 0 {
		period = DefaultFundingPeriod
	}
	return float64(24*time.Hour) / float64(period)
}

// Annualize 单周期费率 -> 年化费率（小数，非百分比）
func Annualize(perPeriod float64, period time.Duration) float64 {
	return perPeriod * PeriodsPerDay(period) * daysPerYear
}

// PerPeriod 年化费率 -> 单周期费率
func PerPeriod(annual float64, period time.Duration) float64 {
	return annual / (PeriodsPerDay(period) * daysPerYear)
}

// FundingPaymentUsd 单次结算收到的资金费（正=收入，负=支出）
// 费率为正时多头付费、空头收费
func FundingPaymentUsd(notional, rate float64, side model.Side) float64 {
	return -side.Sign() * notional * rate
}

// Spread 资金费差：short 腿费率 - long 腿费率
// 为正表示在高费率场所做空、低费率场所做多，组合净收取资金费
func Spread(longRate, shortRate float64) float64 {
	return shortRate - longRate
}

// SpreadBand -1 不利, 0 中性, +1 有利
func SpreadBand(spread, threshold float64) int {
	if spread >= threshold {
		return +1
	}
	if spread <= -threshold {
		return -1
	}
	return 0
}
