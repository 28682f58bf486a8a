package memory

import (
	"context"
	"sort"
	"sync"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

// Repo 进程内仓储，未启用 sqlite 时使用（重启后数据丢失）
type Repo struct {
	mu        sync.RWMutex
	cash      map[string]float64
	trades    map[string]model.Trade
	positions map[string]model.ArbitragePosition
	prices    map[string]float64
	snapshots []Snapshot
	keep      int
}

// Snapshot 内存中保留的快照
type Snapshot struct {
	Ts      int64
	Account string
	Payload string
}

// New keep 为保留的快照条数，<=0 时默认 100
func New(keep int) *Repo {
	if keep <= 0 {
		keep = 100
	}
	return &Repo{
		cash:      map[string]float64{},
		trades:    map[string]model.Trade{},
		positions: map[string]model.ArbitragePosition{},
		prices:    map[string]float64{},
		keep:      keep,
	}
}

func (r *Repo) Close() error { return nil }

func (r *Repo) GetCash(ctx context.Context, account string) (float64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cash[account]
	return c, ok, nil
}

func (r *Repo) UpsertCash(ctx context.Context, account string, cash float64, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cash[account] = cash
	return nil
}

func (r *Repo) ResetAccount(ctx context.Context, account string, cash float64, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.trades {
		if t.Account == account {
			delete(r.trades, id)
		}
	}
	for id, p := range r.positions {
		if p.Account == account {
			delete(r.positions, id)
		}
	}
	r.cash[account] = cash
	return nil
}

func (r *Repo) CreateTrade(ctx context.Context, t model.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades[t.ID] = t
	return nil
}

func (r *Repo) GetTrade(ctx context.Context, id string) (*model.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trades[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &t, nil
}

func (r *Repo) CloseTrade(ctx context.Context, id string, closedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trades[id]
	if !ok || !t.IsOpen() {
		return port.ErrNotFound
	}
	t.ClosedAt = closedAt
	r.trades[id] = t
	return nil
}

func (r *Repo) ListOpenTrades(ctx context.Context, account string) ([]model.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Trade
	for _, t := range r.trades {
		if t.Account == account && t.IsOpen() {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt != out[j].OpenedAt {
			return out[i].OpenedAt < out[j].OpenedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repo) CreatePosition(ctx context.Context, pos *model.ArbitragePosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[pos.ID] = *pos
	for _, t := range pos.Trades() {
		r.trades[t.ID] = t
	}
	return nil
}

func (r *Repo) GetPosition(ctx context.Context, id string) (*model.ArbitragePosition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.positions[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return &p, nil
}

func (r *Repo) ClosePosition(ctx context.Context, id string, closedAt int64, realizedPnL float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[id]
	if !ok || !p.IsOpen() {
		return port.ErrNotFound
	}
	p.ClosedAt = closedAt
	p.RealizedPnL = realizedPnL
	r.positions[id] = p
	for _, leg := range p.Trades() {
		if t, ok := r.trades[leg.ID]; ok {
			t.ClosedAt = closedAt
			r.trades[leg.ID] = t
		}
	}
	return nil
}

func (r *Repo) ListOpenPositions(ctx context.Context, account string) ([]*model.ArbitragePosition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.ArbitragePosition
	for _, p := range r.positions {
		if p.Account == account && p.IsOpen() {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt != out[j].OpenedAt {
			return out[i].OpenedAt < out[j].OpenedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, account string, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, Snapshot{Ts: ts, Account: account, Payload: payload})
	if n := len(r.snapshots) - r.keep; n > 0 {
		r.snapshots = append([]Snapshot(nil), r.snapshots[n:]...)
	}
	return nil
}

// Snapshots 最近的快照（旧 -> 新）
func (r *Repo) Snapshots() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Snapshot(nil), r.snapshots...)
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, asset string, price float64, ts int64) error {
	if price <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices[asset] = price
	return nil
}

func (r *Repo) LatestPrices(ctx context.Context) (map[string]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]float64, len(r.prices))
	for k, v := range r.prices {
		out[k] = v
	}
	return out, nil
}

var (
	_ port.Repository      = (*Repo)(nil)
	_ port.SnapshotArchive = (*Repo)(nil)
	_ port.PriceCache      = (*Repo)(nil)
)
