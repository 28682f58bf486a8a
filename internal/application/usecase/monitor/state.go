package monitor

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	"fundarb/internal/domain/symbol"
)

type Dir int

const (
	DirSame Dir = 0
	DirUp   Dir = +1
	DirDown Dir = -1
)

type pxState struct {
	str   string
	num   float64
	has   bool
	dir   Dir
	parse bool
}

type symState struct {
	exchanges map[string]*pxState // exchange -> 最新成交价
	funding   map[string]float64  // exchange -> 单周期费率
	price     float64             // 参考价格（最近一次写入）
}

// State 行情面板：各交易所价格、资金费率、参考价格
// 实现 port.MarketBoard，MarketData() 返回副本
type State struct {
	mu sync.Mutex

	order []string
	syms  map[string]*symState
	ts    int64
}

var _ port.MarketBoard = (*State)(nil)

func NewState(coins []string) *State {
	order := symbol.NormalizeList(coins)
	syms := make(map[string]*symState, len(order))
	for _, coin := range order {
		syms[coin] = newSymState()
	}
	return &State{order: order, syms: syms}
}

func newSymState() *symState {
	return &symState{
		exchanges: make(map[string]*pxState),
		funding:   make(map[string]float64),
	}
}

func (s *State) Symbols() []string {
	return s.order
}

// Apply 应用一个 tick，返回显示是否需要刷新
// Tick.Symbol 可以是合约符号，统一归一为基础币种
func (s *State) Apply(t port.Tick) bool {
	ex := strings.ToUpper(strings.TrimSpace(t.Exchange))
	coin := symbol.Normalize(strings.TrimSpace(t.Symbol))
	price := strings.TrimSpace(t.PriceStr)
	if coin == "" || price == "" || ex == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.syms[coin]
	if st == nil {
		return false
	}

	ps := st.exchanges[ex]
	if ps == nil {
		ps = &pxState{}
		st.exchanges[ex] = ps
	}
	if ps.str == price {
		return false
	}
	ps.str = price

	n, err := strconv.ParseFloat(price, 64)
	if err != nil || n <= 0 {
		ps.parse = false
		ps.dir = DirSame
		return true
	}

	ps.parse = true
	switch {
	case !ps.has:
		ps.dir = DirSame
	case n > ps.num:
		ps.dir = DirUp
	case n < ps.num:
		ps.dir = DirDown
	default:
		ps.dir = DirSame
	}
	ps.has = true
	ps.num = n
	return true
}

// SetPrice 写入参考价格，未订阅的币种也接受（REST 报价）
func (s *State) SetPrice(asset string, price float64, ts int64) {
	asset = symbol.Normalize(asset)
	if asset == "" || price <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.syms[asset]
	if st == nil {
		st = newSymState()
		s.syms[asset] = st
	}
	st.price = price
	if ts > s.ts {
		s.ts = ts
	}
}

// SetFunding 写入某交易所的资金费率
func (s *State) SetFunding(r port.FundingRate) {
	asset := symbol.Normalize(r.Asset)
	ex := strings.ToUpper(strings.TrimSpace(r.Exchange))
	if asset == "" || ex == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.syms[asset]
	if st == nil {
		st = newSymState()
		s.syms[asset] = st
	}
	st.funding[ex] = r.Rate
}

// MarketData 一致的行情快照
func (s *State) MarketData() model.MarketData {
	s.mu.Lock()
	defer s.mu.Unlock()

	md := model.MarketData{
		Prices:  make(map[string]float64, len(s.syms)),
		Funding: make(map[model.FundingKey]float64),
		Ts:      s.ts,
	}
	for asset, st := range s.syms {
		if st.price > 0 {
			md.Prices[asset] = st.price
		}
		for ex, r := range st.funding {
			md.Funding[model.NewFundingKey(asset, ex)] = r
		}
	}
	return md
}

// Quote 某币种在各交易所的显示状态
type Quote struct {
	Exchange string
	Price    string
	Dir      Dir
	Parsed   bool
	Funding  float64
	HasRate  bool
}

// Quotes 按交易所名排序返回订阅币种的报价
func (s *State) Quotes(coin string) []Quote {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.syms[coin]
	if st == nil {
		return nil
	}
	names := make(map[string]struct{}, len(st.exchanges)+len(st.funding))
	for ex := range st.exchanges {
		names[ex] = struct{}{}
	}
	for ex := range st.funding {
		names[ex] = struct{}{}
	}

	out := make([]Quote, 0, len(names))
	for ex := range names {
		q := Quote{Exchange: ex}
		if ps := st.exchanges[ex]; ps != nil {
			q.Price, q.Dir, q.Parsed = ps.str, ps.dir, ps.parse
		}
		q.Funding, q.HasRate = st.funding[ex]
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Exchange < out[j].Exchange })
	return out
}

// BestSpread 费率最高与最低的交易所之间的价差（short 高费率，long 低费率）
func (s *State) BestSpread(coin string) (long, short string, spread float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.syms[coin]
	if st == nil || len(st.funding) < 2 {
		return "", "", 0, false
	}
	first := true
	var lo, hi float64
	for ex, r := range st.funding {
		if first || r < lo || (r == lo && ex < long) {
			lo, long = r, ex
		}
		if first || r > hi || (r == hi && ex < short) {
			hi, short = r, ex
		}
		first = false
	}
	if long == short {
		return "", "", 0, false
	}
	return long, short, hi - lo, true
}
