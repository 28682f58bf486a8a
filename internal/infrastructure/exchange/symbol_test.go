package exchange

import "testing"

func TestSymbolConverter(t *testing.T) {
	c := NewSymbolConverter("usdt")
	cases := []struct {
		in, coin, symbol string
	}{
		{"BTCUSDT", "BTC", "BTCUSDT"},
		{"ethusdt", "ETH", "ETHUSDT"},
		{"BTCUSDC", "", "BTCUSDCUSDT"},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := c.Symbol2Coin(tc.in); got != tc.coin {
			t.Errorf("Symbol2Coin(%q) = %q, want %q", tc.in, got, tc.coin)
		}
		if got := c.Coin2Symbol(tc.in); got != tc.symbol {
			t.Errorf("Coin2Symbol(%q) = %q, want %q", tc.in, got, tc.symbol)
		}
	}

	idx := c.Filter([]string{"btc", " ", "SOL"})
	if len(idx) != 2 || idx["BTCUSDT"] != "BTC" || idx["SOLUSDT"] != "SOL" {
		t.Errorf("unexpected index: %v", idx)
	}
}
