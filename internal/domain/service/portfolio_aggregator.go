package service

import (
	"sort"

	"fundarb/internal/domain/model"
)

// Summarize 汇总账户所有持仓
// 无价格的币种整笔排除（名义、保证金、手续费、PnL 均不计），并在 ExcludedAssets 中列出
func Summarize(trades []model.Trade, cashUsd float64, prices map[string]float64) model.PortfolioSummary {
	sum := model.PortfolioSummary{CashUsd: cashUsd}
	excluded := map[string]struct{}{}

	for _, t := range trades {
		asset := t.Asset()
		px, ok := prices[asset]
		if !ok || px <= 0 {
			sum.ExcludedTrades++
			excluded[asset] = struct{}{}
			continue
		}

		sum.TradeCount++
		sum.TotalNotional += t.NotionalUsd
		sum.TotalMargin += t.MarginUsd
		sum.TotalFees += t.FeeUsd
		sum.NetNotional += t.SignedNotional()
		sum.UnrealizedPnL += t.PnL(px)
	}

	if len(excluded) > 0 {
		sum.PriceUnavailable = true
		sum.ExcludedAssets = make([]string, 0, len(excluded))
		for a := range excluded {
			sum.ExcludedAssets = append(sum.ExcludedAssets, a)
		}
		sort.Strings(sum.ExcludedAssets)
	}

	sum.TotalEquity = sum.CashUsd + sum.TotalMargin + sum.UnrealizedPnL
	sum.DirectionalBiasPercent = percentOf(sum.NetNotional, sum.TotalEquity)
	sum.UnrealizedPnLPercent = percentOf(sum.UnrealizedPnL, sum.TotalEquity)
	return sum
}
