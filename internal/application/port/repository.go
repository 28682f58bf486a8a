package port

import (
	"context"
	"errors"

	"fundarb/internal/domain/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("not found")

// Repository 账户、交易与套利持仓仓储
type Repository interface {
	// Account
	GetCash(ctx context.Context, account string) (cash float64, found bool, err error)
	UpsertCash(ctx context.Context, account string, cash float64, ts int64) error
	ResetAccount(ctx context.Context, account string, cash float64, ts int64) error

	// Single-leg trades
	CreateTrade(ctx context.Context, t model.Trade) error
	GetTrade(ctx context.Context, id string) (*model.Trade, error)
	CloseTrade(ctx context.Context, id string, closedAt int64) error
	ListOpenTrades(ctx context.Context, account string) ([]model.Trade, error)

	// Arbitrage positions (两条腿同时写入 trades)
	CreatePosition(ctx context.Context, pos *model.ArbitragePosition) error
	GetPosition(ctx context.Context, id string) (*model.ArbitragePosition, error)
	ClosePosition(ctx context.Context, id string, closedAt int64, realizedPnL float64) error
	ListOpenPositions(ctx context.Context, account string) ([]*model.ArbitragePosition, error)

	Close() error
}

// SnapshotArchive 组合快照归档（sqlite / postgres / redis stream）
type SnapshotArchive interface {
	InsertSnapshot(ctx context.Context, ts int64, account string, payload string) error
}

// PriceCache 最新价格缓存
type PriceCache interface {
	UpsertLatestPrice(ctx context.Context, asset string, price float64, ts int64) error
	LatestPrices(ctx context.Context) (map[string]float64, error)
}
