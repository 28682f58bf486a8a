package exchange

import (
	"strings"
)

const (
	Binance = "BINANCE"
	Bybit   = "BYBIT"
)

// SymbolConverter 币种 <-> 交易所合约符号
type SymbolConverter struct {
	suffix string
}

// NewSymbolConverter suffix 为报价币种后缀，例: USDT
func NewSymbolConverter(suffix string) *SymbolConverter {
	return &SymbolConverter{suffix: strings.ToUpper(strings.TrimSpace(suffix))}
}

// Suffix 返回符号后缀
func (c *SymbolConverter) Suffix() string {
	return c.suffix
}

// Symbol2Coin 将交易对转换为币种，不带该后缀的返回空串
// 例: BTCUSDT -> BTC, BTCUSDC -> ""（suffix=USDT）
func (c *SymbolConverter) Symbol2Coin(symbol string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" || !strings.HasSuffix(sym, c.suffix) {
		return ""
	}
	return strings.TrimSuffix(sym, c.suffix)
}

// Coin2Symbol 将币种转换为交易对
// 例: BTC -> BTCUSDT, BTCUSDT -> BTCUSDT
func (c *SymbolConverter) Coin2Symbol(coin string) string {
	coin = strings.ToUpper(strings.TrimSpace(coin))
	if coin == "" {
		return ""
	}
	if strings.HasSuffix(coin, c.suffix) {
		return coin
	}
	return coin + c.suffix
}

// Filter 建立交易对 -> 币种索引，只保留订阅的币种
func (c *SymbolConverter) Filter(coins []string) map[string]string {
	out := make(map[string]string, len(coins))
	for _, coin := range coins {
		coin = strings.ToUpper(strings.TrimSpace(coin))
		if coin == "" {
			continue
		}
		out[c.Coin2Symbol(coin)] = coin
	}
	return out
}
