package service

import (
	"context"
	"encoding/json"
	"fmt"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

// Snapshot 组合快照，写入归档
type Snapshot struct {
	Ts        int64                  `json:"ts"`
	Account   string                 `json:"account"`
	Summary   model.PortfolioSummary `json:"summary"`
	Positions []PositionView         `json:"positions"`
}

// Degraded 是否有持仓使用了缺失行情
func (s Snapshot) Degraded() bool {
	if s.Summary.PriceUnavailable {
		return true
	}
	for _, p := range s.Positions {
		if p.Return.Degraded() {
			return true
		}
	}
	return false
}

type SnapshotService struct {
	portfolio *PortfolioService
	archive   port.SnapshotArchive
}

func NewSnapshotService(portfolio *PortfolioService, archive port.SnapshotArchive) *SnapshotService {
	return &SnapshotService{portfolio: portfolio, archive: archive}
}

// Take 生成快照并归档
func (s *SnapshotService) Take(ctx context.Context, account string, ts int64) (Snapshot, error) {
	sum, err := s.portfolio.Summary(ctx, account)
	if err != nil {
		return Snapshot{}, err
	}
	views, err := s.portfolio.PositionSnapshots(ctx, account)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Ts: ts, Account: account, Summary: sum, Positions: views}

	if s.archive == nil {
		return snap, nil
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return snap, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.archive.InsertSnapshot(ctx, ts, account, string(b)); err != nil {
		return snap, fmt.Errorf("archive snapshot: %w", err)
	}
	return snap, nil
}
