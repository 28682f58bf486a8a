package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"fundarb/internal/application/port"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS accounts (
  account TEXT PRIMARY KEY,
  cash REAL NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
  id TEXT PRIMARY KEY,
  account TEXT NOT NULL,
  position_id TEXT NOT NULL DEFAULT '',
  exchange TEXT NOT NULL,
  symbol TEXT NOT NULL,
  side TEXT NOT NULL,
  quantity_base REAL NOT NULL,
  leverage REAL NOT NULL,
  notional_usd REAL NOT NULL,
  margin_usd REAL NOT NULL,
  entry_price REAL NOT NULL,
  entry_funding_rate REAL NOT NULL,
  fee_usd REAL NOT NULL,
  opened_at INTEGER NOT NULL,
  closed_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(account, closed_at);
CREATE INDEX IF NOT EXISTS idx_trades_position ON trades(position_id);

CREATE TABLE IF NOT EXISTS arbitrage_positions (
  id TEXT PRIMARY KEY,
  account TEXT NOT NULL,
  entry_spread REAL NOT NULL,
  opened_at INTEGER NOT NULL,
  closed_at INTEGER NOT NULL DEFAULT 0,
  realized_pnl REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_arb_pos_account ON arbitrage_positions(account, closed_at);

CREATE TABLE IF NOT EXISTS snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  account TEXT NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON snapshots(ts_ms);

CREATE TABLE IF NOT EXISTS prices (
  asset TEXT PRIMARY KEY,
  price REAL NOT NULL,
  ts_ms INTEGER NOT NULL
);
`)
	return err
}

func (r *Repo) GetCash(ctx context.Context, account string) (float64, bool, error) {
	var cash float64
	err := r.db.QueryRowContext(ctx, `SELECT cash FROM accounts WHERE account=?`, account).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return cash, true, nil
}

func (r *Repo) UpsertCash(ctx context.Context, account string, cash float64, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts(account, cash, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
		cash=excluded.cash, updated_at=excluded.updated_at
	`, account, cash, ts)
	return err
}

// ResetAccount 删除账户所有交易与持仓并重置余额（单事务）
func (r *Repo) ResetAccount(ctx context.Context, account string, cash float64, ts int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades WHERE account=?`, account); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM arbitrage_positions WHERE account=?`, account); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts(account, cash, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
		cash=excluded.cash, updated_at=excluded.updated_at
	`, account, cash, ts); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) InsertSnapshot(ctx context.Context, ts int64, account string, payload string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots(ts_ms, account, payload) VALUES(?, ?, ?)`, ts, account, payload)
	return err
}

// LatestSnapshot 最近一次归档的快照
func (r *Repo) LatestSnapshot(ctx context.Context, account string) (ts int64, payload string, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT ts_ms, payload FROM snapshots
		WHERE account=? ORDER BY ts_ms DESC, id DESC LIMIT 1
	`, account).Scan(&ts, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", port.ErrNotFound
	}
	return
}

func (r *Repo) UpsertLatestPrice(ctx context.Context, asset string, price float64, ts int64) error {
	if price <= 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO prices(asset, price, ts_ms)
		VALUES(?, ?, ?)
		ON CONFLICT(asset) DO UPDATE SET
		price=excluded.price, ts_ms=excluded.ts_ms
	`, asset, price, ts)
	return err
}

func (r *Repo) LatestPrices(ctx context.Context) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT asset, price FROM prices`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var asset string
		var price float64
		if err := rows.Scan(&asset, &price); err != nil {
			return nil, err
		}
		out[asset] = price
	}
	return out, rows.Err()
}

var (
	_ port.Repository      = (*Repo)(nil)
	_ port.SnapshotArchive = (*Repo)(nil)
	_ port.PriceCache      = (*Repo)(nil)
)
