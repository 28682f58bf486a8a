package bybit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/infrastructure/exchange"
)

// RestClient Bybit v5 linear 合约公共行情
type RestClient struct {
	baseURL string
	client  *http.Client
	conv    *exchange.SymbolConverter
}

type tickersResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string `json:"category"`
		List     []struct {
			Symbol          string `json:"symbol"`
			LastPrice       string `json:"lastPrice"`
			FundingRate     string `json:"fundingRate"`
			NextFundingTime string `json:"nextFundingTime"`
		} `json:"list"`
	} `json:"result"`
	Time int64 `json:"time"`
}

func NewRestClient(baseURL string) *RestClient {
	if baseURL == "" {
		baseURL = "https://api.bybit.com"
	}
	return &RestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  exchange.NewHTTPClient(),
		conv:    exchange.NewSymbolConverter("USDT"),
	}
}

func (c *RestClient) Name() string { return exchange.Bybit }

func (c *RestClient) tickers(ctx context.Context) (*tickersResp, error) {
	var resp tickersResp
	if err := exchange.GetJSON(ctx, c.client, c.Name(), c.baseURL+"/v5/market/tickers?category=linear", &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit api error: %d %s", resp.RetCode, resp.RetMsg)
	}
	return &resp, nil
}

// FetchFundingRates 当前资金费率，只返回订阅的币种
func (c *RestClient) FetchFundingRates(ctx context.Context, coins []string) ([]port.FundingRate, error) {
	resp, err := c.tickers(ctx)
	if err != nil {
		return nil, err
	}
	ts := resp.Time
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	want := c.conv.Filter(coins)
	out := make([]port.FundingRate, 0, len(want))
	for _, it := range resp.Result.List {
		coin, ok := want[strings.ToUpper(it.Symbol)]
		if !ok || it.FundingRate == "" {
			continue
		}
		rate, err := strconv.ParseFloat(it.FundingRate, 64)
		if err != nil {
			continue
		}
		next, _ := strconv.ParseInt(it.NextFundingTime, 10, 64)
		out = append(out, port.FundingRate{
			Exchange:        c.Name(),
			Asset:           coin,
			Rate:            rate,
			NextFundingTime: next,
			Ts:              ts,
		})
	}
	return out, nil
}

// Quote 最新成交价
func (c *RestClient) Quote(ctx context.Context, coins []string) (map[string]float64, error) {
	resp, err := c.tickers(ctx)
	if err != nil {
		return nil, err
	}
	want := c.conv.Filter(coins)
	out := make(map[string]float64, len(want))
	for _, it := range resp.Result.List {
		var coin string
		if len(want) == 0 {
			coin = c.conv.Symbol2Coin(it.Symbol)
		} else {
			coin = want[strings.ToUpper(it.Symbol)]
		}
		if coin == "" {
			continue
		}
		px, err := strconv.ParseFloat(it.LastPrice, 64)
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
)
