package service

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"fundarb/internal/domain/model"
)

func TestOpenLeg_MarginInvariant_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("|margin*leverage - notional| < eps", prop.ForAll(
		func(notional, leverage, price float64) bool {
			leg, err := OpenLeg(LegInput{Symbol: "BTC", Side: model.SideLong, NotionalUsd: notional, Leverage: leverage, EntryPrice: price})
			if err != nil {
				return false
			}
			if math.Abs(leg.MarginUsd*leg.Leverage-leg.NotionalUsd) > 1e-9*notional {
				return false
			}
			return math.Abs(leg.QuantityBase*leg.EntryPrice-leg.NotionalUsd) <= 1e-9*notional
		},
		gen.Float64Range(0.01, 1e7),
		gen.Float64Range(1, 125),
		gen.Float64Range(1e-6, 2e5),
	))

	properties.TestingRun(t)
}

func TestComputeReturn_ZeroBias_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	calc := NewReturnCalculator(8 * time.Hour)

	properties.Property("等名义、同价格、同费率 -> netNotional=0, spread=0, pnl≈0", prop.ForAll(
		func(notional, entry, current, rate float64) bool {
			long, err := OpenLeg(LegInput{Exchange: "a", Symbol: "ETH", Side: model.SideLong, NotionalUsd: notional, Leverage: 3, EntryPrice: entry})
			if err != nil {
				return false
			}
			short, err := OpenLeg(LegInput{Exchange: "b", Symbol: "ETH", Side: model.SideShort, NotionalUsd: notional, Leverage: 3, EntryPrice: entry})
			if err != nil {
				return false
			}
			md := model.MarketData{
				Prices: map[string]float64{"ETH": current},
				Funding: map[model.FundingKey]float64{
					model.NewFundingKey("ETH", "a"): rate,
					model.NewFundingKey("ETH", "b"): rate,
				},
			}
			snap, err := calc.ComputeReturn(model.ArbitragePosition{Long: long, Short: short}, md)
			if err != nil {
				return false
			}
			return snap.NetNotional == 0 &&
				snap.CurrentSpread == 0 &&
				math.Abs(snap.NetUnrealizedPnL) <= 1e-6*notional &&
				!snap.Degraded()
		},
		gen.Float64Range(1, 1e6),
		gen.Float64Range(0.01, 1e5),
		gen.Float64Range(0.01, 1e5),
		gen.Float64Range(-0.01, 0.01),
	))

	properties.TestingRun(t)
}

func TestSummarize_GracefulDegradation_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("无价格的交易不计入任何合计", prop.ForAll(
		func(notional, leverage, cash float64, short bool) bool {
			side := model.SideLong
			if short {
				side = model.SideShort
			}
			leg, err := OpenLeg(LegInput{Symbol: "UNLISTED", Side: side, NotionalUsd: notional, Leverage: leverage, EntryPrice: 1, FeeRate: 0.0001})
			if err != nil {
				return false
			}
			sum := Summarize([]model.Trade{{ID: "t", Leg: leg}}, cash, map[string]float64{})
			return sum.TotalNotional == 0 &&
				sum.TotalMargin == 0 &&
				sum.TotalFees == 0 &&
				sum.UnrealizedPnL == 0 &&
				sum.TotalEquity == cash &&
				sum.ExcludedTrades == 1 &&
				!math.IsNaN(sum.DirectionalBiasPercent) &&
				!math.IsNaN(sum.UnrealizedPnLPercent)
		},
		gen.Float64Range(1, 1e6),
		gen.Float64Range(1, 100),
		gen.Float64Range(0, 1e6),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
