package monitor

import (
	"fmt"
	"strings"

	"fundarb/internal/domain/model"
	dsvc "fundarb/internal/domain/service"
)

const (
	ansiReset    = "\033[0m"
	ansiRed      = "\033[31m"
	ansiGreen    = "\033[32m"
	ansiYellow   = "\033[33m"
	ansiDim      = "\033[2m"
	ansiClearEOL = "\033[K"
)

func colorize(s, c string) string { return c + s + ansiReset }

type Formatter struct {
	SpreadThreshold float64 // 单周期费率差阈值
}

func NewFormatter(threshold float64) *Formatter {
	return &Formatter{SpreadThreshold: threshold}
}

type RenderMode int

const (
	RenderLive RenderMode = iota
	RenderSnapshot
)

func dirColor(q Quote) string {
	if !q.Parsed {
		return ansiYellow
	}
	switch q.Dir {
	case DirUp:
		return ansiGreen
	case DirDown:
		return ansiRed
	default:
		return ansiYellow
	}
}

func bandColor(band int) string {
	switch band {
	case +1:
		return ansiGreen
	case -1:
		return ansiRed
	default:
		return ansiYellow
	}
}

// Render 每个币种：各交易所价格与费率，最优费率差
func (f *Formatter) Render(st *State, mode RenderMode) string {
	var sb strings.Builder
	if mode == RenderLive {
		sb.WriteString("\r")
	}
	sb.WriteString(colorize("[FUNDARB] ", ansiDim))

	for i, coin := range st.Symbols() {
		if i > 0 {
			sb.WriteString(colorize("  ||  ", ansiDim))
		}
		sb.WriteString(coin)

		for _, q := range st.Quotes(coin) {
			px := "--"
			if q.Price != "" {
				px = q.Price
			}
			sb.WriteString(" ")
			sb.WriteString(colorize(exchangeTag(q.Exchange)+":"+px, dirColor(q)))
			if q.HasRate {
				sb.WriteString(colorize(fmt.Sprintf("(%+.4f%%)", q.Funding*100), ansiDim))
			}
		}

		spreadStr := "Δf=--"
		col := ansiYellow
		if long, short, spread, ok := st.BestSpread(coin); ok {
			spreadStr = fmt.Sprintf("Δf=%+.4f%% L:%s S:%s", spread*100, exchangeTag(long), exchangeTag(short))
			col = bandColor(dsvc.SpreadBand(spread, f.SpreadThreshold))
		}
		sb.WriteString(" ")
		sb.WriteString(colorize(spreadStr, col))
	}

	if mode == RenderLive {
		sb.WriteString(ansiClearEOL)
	}
	return sb.String()
}

// RenderSummary 组合汇总一行
func (f *Formatter) RenderSummary(sum model.PortfolioSummary) string {
	pnlCol := ansiYellow
	switch {
	case sum.UnrealizedPnL > 0:
		pnlCol = ansiGreen
	case sum.UnrealizedPnL < 0:
		pnlCol = ansiRed
	}

	line := fmt.Sprintf("equity=%.2f cash=%.2f margin=%.2f notional=%.2f bias=%+.2f%% ",
		sum.TotalEquity, sum.CashUsd, sum.TotalMargin, sum.TotalNotional, sum.DirectionalBiasPercent)
	line += colorize(fmt.Sprintf("upnl=%+.2f (%+.2f%%)", sum.UnrealizedPnL, sum.UnrealizedPnLPercent), pnlCol)
	line += fmt.Sprintf(" trades=%d", sum.TradeCount)
	if sum.PriceUnavailable {
		line += colorize(fmt.Sprintf(" excluded=%s", strings.Join(sum.ExcludedAssets, ",")), ansiRed)
	}
	return line
}

// exchangeTag BINANCE -> B, BYBIT -> Y
func exchangeTag(ex string) string {
	switch ex {
	case "BINANCE":
		return "B"
	case "BYBIT":
		return "Y"
	case "OKX":
		return "O"
	case "BITGET":
		return "G"
	}
	return ex
}
