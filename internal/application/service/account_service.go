package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"fundarb/internal/application/port"

	"github.com/rs/zerolog/log"
)

// AccountService 模拟钱包：入金、重置、查询余额
type AccountService struct {
	repo        port.Repository
	initialCash float64
	now         func() time.Time
}

func NewAccountService(repo port.Repository, initialCash float64) *AccountService {
	return &AccountService{repo: repo, initialCash: initialCash, now: time.Now}
}

// Cash 查询可用余额；新账户以初始资金开户
func (s *AccountService) Cash(ctx context.Context, account string) (float64, error) {
	cash, found, err := s.repo.GetCash(ctx, account)
	if err != nil {
		return 0, err
	}
	if found {
		return cash, nil
	}
	if err := s.repo.UpsertCash(ctx, account, s.initialCash, s.now().UnixMilli()); err != nil {
		return 0, fmt.Errorf("open account %s: %w", account, err)
	}
	return s.initialCash, nil
}

// Deposit 入金，返回入金后余额
func (s *AccountService) Deposit(ctx context.Context, account string, amount float64) (float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	cash, err := s.Cash(ctx, account)
	if err != nil {
		return 0, err
	}
	cash += amount
	if err := s.repo.UpsertCash(ctx, account, cash, s.now().UnixMilli()); err != nil {
		return 0, err
	}
	log.Info().Str("account", account).Float64("amount", amount).Float64("cash", cash).Msg("deposit")
	return cash, nil
}

// Reset 清空交易与持仓，余额恢复为初始资金
func (s *AccountService) Reset(ctx context.Context, account string) error {
	if err := s.repo.ResetAccount(ctx, account, s.initialCash, s.now().UnixMilli()); err != nil {
		return err
	}
	log.Warn().Str("account", account).Float64("cash", s.initialCash).Msg("account reset")
	return nil
}

// adjust 增减余额，debit 为负时检查余额
func (s *AccountService) adjust(ctx context.Context, account string, delta float64) (float64, error) {
	cash, err := s.Cash(ctx, account)
	if err != nil {
		return 0, err
	}
	if cash+delta < 0 {
		return cash, fmt.Errorf("%w: need %.2f USD, have %.2f USD", ErrInsufficientBalance, -delta, cash)
	}
	cash += delta
	if err := s.repo.UpsertCash(ctx, account, cash, s.now().UnixMilli()); err != nil {
		return 0, err
	}
	return cash, nil
}
