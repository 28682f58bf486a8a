package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOrder 订单/腿参数非法
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInconsistentLeg 多空腿配对不一致
	ErrInconsistentLeg = errors.New("inconsistent leg")
)

// InvalidOrderError 构造腿时参数非法，Field 为出错字段名
type InvalidOrderError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return fmt.Sprintf("invalid order: %s=%v %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidOrderError) Is(target error) bool { return target == ErrInvalidOrder }

// InconsistentLegError 多头位置上放了空头腿（或反之）
type InconsistentLegError struct {
	Slot Side // 期望的方向
	Side Side // 实际的方向
}

func (e *InconsistentLegError) Error() string {
	return fmt.Sprintf("inconsistent leg: %s slot holds %q leg", e.Slot, e.Side)
}

func (e *InconsistentLegError) Is(target error) bool { return target == ErrInconsistentLeg }

// ErrRiskLimit 开仓超出风控限制
var ErrRiskLimit = errors.New("risk limit exceeded")

// RiskLimitError 触发的风控项
type RiskLimitError struct {
	Limit string
	Value float64
	Max   float64
}

func (e *RiskLimitError) Error() string {
	return fmt.Sprintf("risk limit exceeded: %s %.2f > %.2f", e.Limit, e.Value, e.Max)
}

func (e *RiskLimitError) Is(target error) bool { return target == ErrRiskLimit }
