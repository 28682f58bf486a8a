package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"fundarb/internal/application/service"
	"fundarb/internal/domain/model"
	dsvc "fundarb/internal/domain/service"
	"fundarb/internal/domain/symbol"

	"github.com/go-chi/chi/v5"
)

// legRequest 开仓请求中的一条腿；价格/费率缺省时取当前行情
type legRequest struct {
	Exchange         string   `json:"exchange"`
	Symbol           string   `json:"symbol"`
	Side             string   `json:"side"`
	NotionalUsd      float64  `json:"notional_usd"`
	Leverage         float64  `json:"leverage"`
	EntryPrice       float64  `json:"entry_price,omitempty"`
	EntryFundingRate *float64 `json:"entry_funding_rate,omitempty"`
	FeeRate          *float64 `json:"fee_rate,omitempty"`
}

type positionRequest struct {
	Long  legRequest `json:"long"`
	Short legRequest `json:"short"`
}

type depositRequest struct {
	Amount float64 `json:"amount"`
}

type fundingView struct {
	Asset    string  `json:"asset"`
	Exchange string  `json:"exchange"`
	Rate     float64 `json:"rate"`
}

type spreadView struct {
	Asset  string  `json:"asset"`
	Long   string  `json:"long"`
	Short  string  `json:"short"`
	Spread float64 `json:"spread"`
}

type marketView struct {
	Ts      int64              `json:"ts"`
	Prices  map[string]float64 `json:"prices"`
	Funding []fundingView      `json:"funding"`
	Spreads []spreadView       `json:"spreads,omitempty"`
}

// spreadReader 行情面板可选能力：当前最优多空交易所
type spreadReader interface {
	BestSpread(coin string) (long, short string, spread float64, ok bool)
}

func (l legRequest) input(md model.MarketData) (dsvc.LegInput, error) {
	side, ok := model.ParseSide(l.Side)
	if !ok {
		return dsvc.LegInput{}, &model.InvalidOrderError{Field: "side", Reason: "must be long or short"}
	}
	in := dsvc.LegInput{
		Exchange:    l.Exchange,
		Symbol:      l.Symbol,
		Side:        side,
		NotionalUsd: l.NotionalUsd,
		Leverage:    l.Leverage,
		EntryPrice:  l.EntryPrice,
	}
	if l.FeeRate != nil {
		in.FeeRate, in.FeeRateSet = *l.FeeRate, true
	}
	asset := symbol.Normalize(l.Symbol)
	if in.EntryPrice == 0 {
		in.EntryPrice, _ = md.Price(asset)
	}
	if l.EntryFundingRate != nil {
		in.EntryFundingRate = *l.EntryFundingRate
	} else {
		in.EntryFundingRate, _ = md.FundingRate(asset, l.Exchange)
	}
	return in, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &model.InvalidOrderError{Field: "body", Reason: err.Error()}
	}
	return nil
}

// orderResult 下单指标结果标签
func orderResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case statusFor(err) < http.StatusInternalServerError:
		return "rejected"
	default:
		return "error"
	}
}

// GET /api/prices?symbols=BTC,ETH
// 订阅币种的报价写入面板和缓存，其余币种只读报价
func (s *Server) getPrices(w http.ResponseWriter, r *http.Request) {
	tracked, extra := s.symbols, []string(nil)
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		tracked, extra = s.splitTracked(symbol.NormalizeList(strings.Split(raw, ",")))
	}

	prices := make(map[string]float64, len(tracked)+len(extra))
	for _, batch := range []struct {
		coins   []string
		refresh bool
	}{{tracked, true}, {extra, false}} {
		if len(batch.coins) == 0 {
			continue
		}
		quote := s.prices.Quote
		if batch.refresh {
			quote = s.prices.Refresh
		}
		got, err := quote(r.Context(), batch.coins)
		if err != nil {
			if errors.Is(err, service.ErrNoQuoter) {
				failErr(w, err)
				return
			}
			fail(w, http.StatusBadGateway, err.Error())
			return
		}
		for asset, px := range got {
			prices[asset] = px
		}
	}
	success(w, prices)
}

// splitTracked 按是否为订阅币种拆分
func (s *Server) splitTracked(coins []string) (tracked, extra []string) {
	known := make(map[string]struct{}, len(s.symbols))
	for _, c := range s.symbols {
		known[c] = struct{}{}
	}
	for _, c := range coins {
		if _, ok := known[c]; ok {
			tracked = append(tracked, c)
		} else {
			extra = append(extra, c)
		}
	}
	return tracked, extra
}

// GET /api/market
func (s *Server) getMarket(w http.ResponseWriter, _ *http.Request) {
	md := s.market.MarketData()
	view := marketView{Ts: md.Ts, Prices: md.Prices, Funding: make([]fundingView, 0, len(md.Funding))}
	for k, rate := range md.Funding {
		view.Funding = append(view.Funding, fundingView{Asset: k.Asset, Exchange: k.Exchange, Rate: rate})
	}
	sort.Slice(view.Funding, func(i, j int) bool {
		if view.Funding[i].Asset != view.Funding[j].Asset {
			return view.Funding[i].Asset < view.Funding[j].Asset
		}
		return view.Funding[i].Exchange < view.Funding[j].Exchange
	})

	if sr, ok := s.market.(spreadReader); ok {
		for _, coin := range s.symbols {
			long, short, spread, ok := sr.BestSpread(coin)
			if !ok {
				continue
			}
			view.Spreads = append(view.Spreads, spreadView{Asset: coin, Long: long, Short: short, Spread: spread})
		}
	}
	success(w, view)
}

// GET /api/accounts/{account}/portfolio
func (s *Server) getPortfolio(w http.ResponseWriter, r *http.Request) {
	sum, err := s.portfolio.Summary(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		failErr(w, err)
		return
	}
	success(w, sum)
}

// POST /api/accounts/{account}/deposit
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cash, err := s.accounts.Deposit(r.Context(), chi.URLParam(r, "account"), req.Amount)
	if err != nil {
		failErr(w, err)
		return
	}
	success(w, map[string]float64{"cash_usd": cash})
}

// POST /api/accounts/{account}/reset
func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	if err := s.accounts.Reset(r.Context(), account); err != nil {
		failErr(w, err)
		return
	}
	cash, err := s.accounts.Cash(r.Context(), account)
	if err != nil {
		failErr(w, err)
		return
	}
	success(w, map[string]float64{"cash_usd": cash})
}

// GET /api/accounts/{account}/trades
func (s *Server) listTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.positions.ListOpenTrades(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		failErr(w, err)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	success(w, trades)
}

// POST /api/accounts/{account}/trades
func (s *Server) placeTrade(w http.ResponseWriter, r *http.Request) {
	var req legRequest
	if err := decode(r, &req); err != nil {
		failErr(w, err)
		return
	}
	in, err := req.input(s.market.MarketData())
	if err != nil {
		failErr(w, err)
		return
	}
	t, err := s.positions.PlaceTrade(r.Context(), chi.URLParam(r, "account"), in)
	s.metrics.ObserveOrder("trade", orderResult(err))
	if err != nil {
		failErr(w, err)
		return
	}
	created(w, t)
}

// POST /api/accounts/{account}/trades/{id}/close
func (s *Server) closeTrade(w http.ResponseWriter, r *http.Request) {
	t, pnl, err := s.positions.CloseTrade(r.Context(), chi.URLParam(r, "id"))
	s.metrics.ObserveOrder("close", orderResult(err))
	if err != nil {
		failErr(w, err)
		return
	}
	success(w, map[string]any{"trade": t, "realized_pnl": pnl})
}

// GET /api/accounts/{account}/positions
func (s *Server) listPositions(w http.ResponseWriter, r *http.Request) {
	views, err := s.portfolio.PositionSnapshots(r.Context(), chi.URLParam(r, "account"))
	if err != nil {
		failErr(w, err)
		return
	}
	if views == nil {
		views = []service.PositionView{}
	}
	success(w, views)
}

// POST /api/accounts/{account}/positions
func (s *Server) openPosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := decode(r, &req); err != nil {
		failErr(w, err)
		return
	}
	md := s.market.MarketData()
	long, err := req.Long.input(md)
	if err != nil {
		failErr(w, err)
		return
	}
	short, err := req.Short.input(md)
	if err != nil {
		failErr(w, err)
		return
	}
	pos, err := s.positions.OpenArbitrage(r.Context(), chi.URLParam(r, "account"), long, short)
	s.metrics.ObserveOrder("position", orderResult(err))
	if err != nil {
		failErr(w, err)
		return
	}
	created(w, pos)
}

// POST /api/accounts/{account}/positions/{id}/close
func (s *Server) closePosition(w http.ResponseWriter, r *http.Request) {
	pos, err := s.positions.ClosePosition(r.Context(), chi.URLParam(r, "id"))
	s.metrics.ObserveOrder("close", orderResult(err))
	if err != nil {
		failErr(w, err)
		return
	}
	success(w, pos)
}
