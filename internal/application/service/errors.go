package service

import "errors"

var (
	// ErrInvalidAmount 金额非法（<=0 或非有限值）
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientBalance 可用余额不足以支付保证金和手续费
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrPositionNotFound 持仓不存在
	ErrPositionNotFound = errors.New("position not found")
	// ErrPositionClosed 持仓已平仓
	ErrPositionClosed = errors.New("position already closed")
	// ErrPriceUnavailable 平仓时缺少行情
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrTradeInPosition 单腿属于套利持仓，需整体平仓
	ErrTradeInPosition = errors.New("trade belongs to an arbitrage position")
	// ErrNoQuoter 未配置 REST 报价
	ErrNoQuoter = errors.New("no price quoter configured")
)
