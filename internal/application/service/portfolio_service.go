package service

import (
	"context"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
	dsvc "fundarb/internal/domain/service"

	"github.com/rs/zerolog/log"
)

// PositionView 持仓 + 当前收益快照
type PositionView struct {
	Position *model.ArbitragePosition `json:"position"`
	Return   model.ReturnSnapshot     `json:"return"`
}

// PortfolioService 组合视图
type PortfolioService struct {
	repo     port.Repository
	accounts *AccountService
	calc     *dsvc.ReturnCalculator
	market   port.MarketDataProvider
}

func NewPortfolioService(repo port.Repository, accounts *AccountService, calc *dsvc.ReturnCalculator, market port.MarketDataProvider) *PortfolioService {
	return &PortfolioService{repo: repo, accounts: accounts, calc: calc, market: market}
}

// Summary 账户组合汇总
func (s *PortfolioService) Summary(ctx context.Context, account string) (model.PortfolioSummary, error) {
	cash, err := s.accounts.Cash(ctx, account)
	if err != nil {
		return model.PortfolioSummary{}, err
	}
	trades, err := s.repo.ListOpenTrades(ctx, account)
	if err != nil {
		return model.PortfolioSummary{}, err
	}
	return dsvc.Summarize(trades, cash, s.market.MarketData().Prices), nil
}

// PositionSnapshots 所有未平仓套利持仓的收益快照，腿数据损坏的持仓跳过
func (s *PortfolioService) PositionSnapshots(ctx context.Context, account string) ([]PositionView, error) {
	positions, err := s.repo.ListOpenPositions(ctx, account)
	if err != nil {
		return nil, err
	}
	md := s.market.MarketData()
	out := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		snap, err := s.calc.ComputeReturn(*p, md)
		if err != nil {
			log.Error().Err(err).Str("position", p.ID).Msg("compute return failed")
			continue
		}
		out = append(out, PositionView{Position: p, Return: snap})
	}
	return out, nil
}
