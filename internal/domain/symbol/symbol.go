// Package symbol 处理交易对符号与基础币种之间的转换。
package symbol

import (
	"strings"
)

// marketTokens 市场类型 / 计价币后缀
var marketTokens = map[string]struct{}{
	"PERP":    {},
	"SWAP":    {},
	"SPOT":    {},
	"FUTURES": {},
	"USD":     {},
	"USDT":    {},
	"USDC":    {},
	"USDE":    {},
}

// Normalize 将原始符号转换为基础币种
// 例: BTC -> BTC, BTC:PERP-USDT -> BTC, eth-usd -> ETH
// 注意: 第一个分隔符优先，xyz:GOLD:PERP-USD -> XYZ
func Normalize(raw string) string {
	s := strings.ToUpper(raw)
	if s == "" {
		return ""
	}
	if i := strings.Index(s, ":"); i >= 0 {
		return s[:i]
	}
	if i := strings.Index(s, "-"); i >= 0 {
		return s[:i]
	}
	return s
}

// StripVenuePrefix 去掉前置的交易场所前缀
// 例: xyz:GOLD -> GOLD, xyz:GOLD:PERP-USD -> GOLD:PERP-USD, BTC:PERP-USD -> BTC:PERP-USD
func StripVenuePrefix(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	head, rest, ok := strings.Cut(s, ":")
	if !ok || head == "" || rest == "" {
		return s
	}
	if isMarketSegment(rest) {
		return s
	}
	return rest
}

// StripMarketSuffix 去掉尾部的市场类型和计价币后缀
// 例: BTC-USDT-SWAP -> BTC, GOLD:PERP-USDC:PERP-USD -> GOLD, 1000PEPE-USDT -> 1000PEPE
func StripMarketSuffix(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	parts := strings.FieldsFunc(s, isSeparator)
	if len(parts) == 0 {
		return ""
	}
	end := len(parts)
	for end > 1 {
		if _, ok := marketTokens[parts[end-1]]; !ok {
			break
		}
		end--
	}
	if end == len(parts) {
		return s
	}
	// 保留原始分隔符
	cut := 0
	for i := 0; i < end; i++ {
		cut = strings.Index(s[cut:], parts[i]) + cut + len(parts[i])
	}
	return s[:cut]
}

// BaseAsset 同时去掉场所前缀与市场后缀
// 例: xyz:GOLD:PERP-USD -> GOLD
func BaseAsset(raw string) string {
	return StripMarketSuffix(StripVenuePrefix(raw))
}

// NormalizeList 清洗配置中的符号列表（去空格、大写、去重）
func NormalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func isSeparator(r rune) bool {
	return r == ':' || r == '-'
}

// isMarketSegment 判断以 ':' 之后的部分是否以市场类型开头 (PERP-USD, SPOT 等)
func isMarketSegment(s string) bool {
	first := strings.FieldsFunc(s, isSeparator)
	if len(first) == 0 {
		return false
	}
	for _, p := range []string{"PERP", "SPOT", "SWAP", "FUTURES"} {
		if strings.HasPrefix(first[0], p) {
			return true
		}
	}
	return false
}
