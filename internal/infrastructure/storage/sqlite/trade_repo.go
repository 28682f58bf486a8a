package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

const tradeColumns = `id, account, position_id, exchange, symbol, side, quantity_base, leverage,
	notional_usd, margin_usd, entry_price, entry_funding_rate, fee_usd, opened_at, closed_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func insertTrade(ctx context.Context, db execer, t model.Trade) error {
	_, err := db.ExecContext(ctx, `INSERT INTO trades(`+tradeColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Account, t.PositionID, t.Exchange, t.Symbol, string(t.Side), t.QuantityBase, t.Leverage,
		t.NotionalUsd, t.MarginUsd, t.EntryPrice, t.EntryFundingRate, t.FeeUsd, t.OpenedAt, t.ClosedAt)
	return err
}

func scanTrade(row scanner) (model.Trade, error) {
	var t model.Trade
	var side string
	err := row.Scan(&t.ID, &t.Account, &t.PositionID, &t.Exchange, &t.Symbol, &side, &t.QuantityBase, &t.Leverage,
		&t.NotionalUsd, &t.MarginUsd, &t.EntryPrice, &t.EntryFundingRate, &t.FeeUsd, &t.OpenedAt, &t.ClosedAt)
	t.Side = model.Side(side)
	return t, err
}

func (r *Repo) CreateTrade(ctx context.Context, t model.Trade) error {
	return insertTrade(ctx, r.db, t)
}

func (r *Repo) GetTrade(ctx context.Context, id string) (*model.Trade, error) {
	t, err := scanTrade(r.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) CloseTrade(ctx context.Context, id string, closedAt int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE trades SET closed_at=? WHERE id=? AND closed_at=0`, closedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (r *Repo) ListOpenTrades(ctx context.Context, account string) ([]model.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE account=? AND closed_at=0 ORDER BY opened_at, id`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreatePosition 持仓与两条腿在同一事务中写入
func (r *Repo) CreatePosition(ctx context.Context, pos *model.ArbitragePosition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO arbitrage_positions(id, account, entry_spread, opened_at, closed_at, realized_pnl)
		VALUES(?, ?, ?, ?, ?, ?)
	`, pos.ID, pos.Account, pos.EntrySpread, pos.OpenedAt, pos.ClosedAt, pos.RealizedPnL); err != nil {
		return err
	}
	for _, t := range pos.Trades() {
		if err := insertTrade(ctx, tx, t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) GetPosition(ctx context.Context, id string) (*model.ArbitragePosition, error) {
	pos := &model.ArbitragePosition{ID: id}
	err := r.db.QueryRowContext(ctx, `
		SELECT account, entry_spread, opened_at, closed_at, realized_pnl
		FROM arbitrage_positions WHERE id=?
	`, id).Scan(&pos.Account, &pos.EntrySpread, &pos.OpenedAt, &pos.ClosedAt, &pos.RealizedPnL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadLegs(ctx, pos); err != nil {
		return nil, err
	}
	return pos, nil
}

func (r *Repo) loadLegs(ctx context.Context, pos *model.ArbitragePosition) error {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE position_id=?`, pos.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return err
		}
		switch t.ID {
		case pos.ID + ":long":
			pos.Long = t.Leg
		case pos.ID + ":short":
			pos.Short = t.Leg
		}
	}
	return rows.Err()
}

// ClosePosition 持仓与两条腿同时标记平仓
func (r *Repo) ClosePosition(ctx context.Context, id string, closedAt int64, realizedPnL float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE arbitrage_positions SET closed_at=?, realized_pnl=?
		WHERE id=? AND closed_at=0
	`, closedAt, realizedPnL, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return port.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `UPDATE trades SET closed_at=? WHERE position_id=? AND closed_at=0`, closedAt, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) ListOpenPositions(ctx context.Context, account string) ([]*model.ArbitragePosition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account, entry_spread, opened_at, closed_at, realized_pnl
		FROM arbitrage_positions WHERE account=? AND closed_at=0 ORDER BY opened_at, id
	`, account)
	if err != nil {
		return nil, err
	}

	var out []*model.ArbitragePosition
	for rows.Next() {
		p := &model.ArbitragePosition{}
		if err := rows.Scan(&p.ID, &p.Account, &p.EntrySpread, &p.OpenedAt, &p.ClosedAt, &p.RealizedPnL); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// 单连接：先关闭游标再查询腿
	for _, p := range out {
		if err := r.loadLegs(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}
