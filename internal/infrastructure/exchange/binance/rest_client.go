package binance

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

// RestClient Binance U 本位合约公共 REST（资金费率、最新价）
type RestClient struct {
	baseURL string
	client  *http.Client
	conv    *exchange.SymbolConverter
}

type premiumIndexResp struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
	Time            int64  `json:"time"`
}

type tickerPriceResp struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Time   int64  `json:"time"`
}

func NewRestClient(baseURL string) *RestClient {
	if baseURL == "" {
		baseURL = "https://fapi.binance.com"
	}
	return &RestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  exchange.NewHTTPClient(),
		conv:    exchange.NewSymbolConverter("USDT"),
	}
}

func (c *RestClient) Name() string { return exchange.Binance }

// FetchFundingRates 一次请求拉取全部合约的当前资金费率，只返回订阅的币种
func (c *RestClient) FetchFundingRates(ctx context.Context, coins []string) ([]port.FundingRate, error) {
	var list []premiumIndexResp
	if err := exchange.GetJSON(ctx, c.client, c.Name(), c.baseURL+"/fapi/v1/premiumIndex", &list); err != nil {
		return nil, err
	}

	want := c.conv.Filter(coins)
	out := make([]port.FundingRate, 0, len(want))
	for _, it := range list {
		coin, ok := want[strings.ToUpper(it.Symbol)]
		if !ok {
			continue
		}
		rate, err := strconv.ParseFloat(it.LastFundingRate, 64)
		if err != nil {
			continue
		}
		out = append(out, port.FundingRate{
			Exchange:        c.Name(),
			Asset:           coin,
			Rate:            rate,
			NextFundingTime: it.NextFundingTime,
			Ts:              it.Time,
		})
	}
	return out, nil
}

// Quote 最新成交价；coins 为空时返回全部 USDT 合约
func (c *RestClient) Quote(ctx context.Context, coins []string) (map[string]float64, error) {
	var list []tickerPriceResp
	if err := exchange.GetJSON(ctx, c.client, c.Name(), c.baseURL+"/fapi/v2/ticker/price", &list); err != nil {
		return nil, err
	}

	want := c.conv.Filter(coins)
	out := make(map[string]float64, len(want))
	for _, it := range list {
		var coin string
		if len(want) == 0 {
			coin = c.conv.Symbol2Coin(it.Symbol)
		} else {
			coin = want[strings.ToUpper(it.Symbol)]
		}
		if coin == "" {
			continue
		}
		px, err := strconv.ParseFloat(it.Price, 64)
		if err != nil || px <= 0 {
			continue
		}
		out[coin] = px
	}
	return out, nil
}

var (
	_ port.FundingSource = (*RestClient)(nil)
	_ port.PriceQuoter   = (*RestClient)(nil)
	_ port.PriceFeed     = (*TickerFeed)(nil)
)
