package bybit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const tickersBody = `{"retCode":0,"retMsg":"OK","result":{"category":"linear","list":[
	{"symbol":"BTCUSDT","lastPrice":"50020.5","fundingRate":"0.0003","nextFundingTime":"1700000000000"},
	{"symbol":"ETHUSDT","lastPrice":"3001","fundingRate":"-0.0001","nextFundingTime":"1700000000000"},
	{"symbol":"BTCPERP","lastPrice":"50000","fundingRate":"0.0001","nextFundingTime":"1700000000000"}
]},"time":1699990000000}`

func TestFetchFundingRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/market/tickers" || r.URL.Query().Get("category") != "linear" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(tickersBody))
	}))
	defer srv.Close()

	c := NewRestClient(srv.URL)
	rates, err := c.FetchFundingRates(context.Background(), []string{"BTC"})
	if err != nil {
		t.Fatalf("FetchFundingRates failed: %v", err)
	}
	if len(rates) != 1 || rates[0].Asset != "BTC" || rates[0].Rate != 0.0003 || rates[0].NextFundingTime != 1700000000000 {
		t.Errorf("unexpected rates: %+v", rates)
	}

	prices, err := c.Quote(context.Background(), nil)
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if len(prices) != 2 || prices["ETH"] != 3001 {
		t.Errorf("unexpected prices: %v", prices)
	}
}

func TestRetCodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"retCode":10001,"retMsg":"params error","result":{"list":[]}}`))
	}))
	defer srv.Close()

	if _, err := NewRestClient(srv.URL).FetchFundingRates(context.Background(), []string{"BTC"}); err == nil {
		t.Error("expected retCode error")
	}
}
