package service

import (
	"context"
	"errors"
	"sync"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

type mockRepository struct {
	mu        sync.Mutex
	cash      map[string]float64
	trades    map[string]model.Trade
	positions map[string]*model.ArbitragePosition
	failWrite bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		cash:      map[string]float64{},
		trades:    map[string]model.Trade{},
		positions: map[string]*model.ArbitragePosition{},
	}
}

var errWrite = errors.New("write failed")

func (m *mockRepository) GetCash(ctx context.Context, account string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cash[account]
	return c, ok, nil
}

func (m *mockRepository) UpsertCash(ctx context.Context, account string, cash float64, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash[account] = cash
	return nil
}

func (m *mockRepository) ResetAccount(ctx context.Context, account string, cash float64, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash[account] = cash
	for id, t := range m.trades {
		if t.Account == account {
			delete(m.trades, id)
		}
	}
	for id, p := range m.positions {
		if p.Account == account {
			delete(m.positions, id)
		}
	}
	return nil
}

func (m *mockRepository) CreateTrade(ctx context.Context, t model.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errWrite
	}
	m.trades[t.ID] = t
	return nil
}

func (m *mockRepository) GetTrade(ctx context.Context, id string) (*model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &t, nil
}

func (m *mockRepository) CloseTrade(ctx context.Context, id string, closedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok {
		return port.ErrNotFound
	}
	t.ClosedAt = closedAt
	m.trades[id] = t
	return nil
}

func (m *mockRepository) ListOpenTrades(ctx context.Context, account string) ([]model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Trade
	for _, t := range m.trades {
		if t.Account == account && t.IsOpen() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockRepository) CreatePosition(ctx context.Context, pos *model.ArbitragePosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errWrite
	}
	cp := *pos
	m.positions[pos.ID] = &cp
	for _, t := range pos.Trades() {
		m.trades[t.ID] = t
	}
	return nil
}

func (m *mockRepository) GetPosition(ctx context.Context, id string) (*model.ArbitragePosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepository) ClosePosition(ctx context.Context, id string, closedAt int64, realizedPnL float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return port.ErrNotFound
	}
	p.ClosedAt = closedAt
	p.RealizedPnL = realizedPnL
	for tid, t := range m.trades {
		if t.PositionID == id {
			t.ClosedAt = closedAt
			m.trades[tid] = t
		}
	}
	return nil
}

func (m *mockRepository) ListOpenPositions(ctx context.Context, account string) ([]*model.ArbitragePosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ArbitragePosition
	for _, p := range m.positions {
		if p.Account == account && p.IsOpen() {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepository) Close() error { return nil }

type mockBoard struct {
	mu sync.Mutex
	md model.MarketData
}

func newMockBoard() *mockBoard {
	return &mockBoard{md: model.MarketData{
		Prices:  map[string]float64{},
		Funding: map[model.FundingKey]float64{},
	}}
}

func (b *mockBoard) MarketData() model.MarketData {
	b.mu.Lock()
	defer b.mu.Unlock()
	md := model.MarketData{
		Prices:  make(map[string]float64, len(b.md.Prices)),
		Funding: make(map[model.FundingKey]float64, len(b.md.Funding)),
		Ts:      b.md.Ts,
	}
	for k, v := range b.md.Prices {
		md.Prices[k] = v
	}
	for k, v := range b.md.Funding {
		md.Funding[k] = v
	}
	return md
}

func (b *mockBoard) SetPrice(asset string, price float64, ts int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.md.Prices[asset] = price
	b.md.Ts = ts
}

func (b *mockBoard) SetFunding(r port.FundingRate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.md.Funding[model.NewFundingKey(r.Asset, r.Exchange)] = r.Rate
}

type mockCache struct {
	prices map[string]float64
}

func (c *mockCache) UpsertLatestPrice(ctx context.Context, asset string, price float64, ts int64) error {
	c.prices[asset] = price
	return nil
}

func (c *mockCache) LatestPrices(ctx context.Context) (map[string]float64, error) {
	return c.prices, nil
}

type mockQuoter struct {
	quotes map[string]float64
	err    error
}

func (q *mockQuoter) Quote(ctx context.Context, coins []string) (map[string]float64, error) {
	return q.quotes, q.err
}

type mockSource struct {
	name  string
	rates []port.FundingRate
	err   error
}

func (s *mockSource) Name() string { return s.name }

func (s *mockSource) FetchFundingRates(ctx context.Context, coins []string) ([]port.FundingRate, error) {
	return s.rates, s.err
}

type mockArchive struct {
	payloads []string
}

func (a *mockArchive) InsertSnapshot(ctx context.Context, ts int64, account string, payload string) error {
	a.payloads = append(a.payloads, payload)
	return nil
}
