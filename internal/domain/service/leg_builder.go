package service

import (
	"math"
	"time"

	"github.com/google/uuid"

	"fundarb/internal/domain/model"
)

// DefaultFeeRate 默认手续费率 1bp
const DefaultFeeRate = 0.0001

// LegInput 开仓参数
type LegInput struct {
	Exchange         string     `json:"exchange"`
	Symbol           string     `json:"symbol"`
	Side             model.Side `json:"side"`
	NotionalUsd      float64    `json:"notional_usd"`
	Leverage         float64    `json:"leverage"`
	EntryPrice       float64    `json:"entry_price"`
	EntryFundingRate float64    `json:"entry_funding_rate"`
	FeeRate          float64    `json:"fee_rate,omitempty"`
	// FeeRateSet 为 true 时 FeeRate=0 表示免手续费，否则 0 取 LegBuilder 默认费率
	FeeRateSet       bool       `json:"-"`
}

// OpenLeg 根据开仓参数构造一条腿，纯函数（不打时间戳）
func OpenLeg(in LegInput) (model.Leg, error) {
	if !in.Side.Valid() {
		return model.Leg{}, &model.InvalidOrderError{Field: "side", Reason: "must be long or short"}
	}
	if !finite(in.NotionalUsd) || in.NotionalUsd <= 0 {
		return model.Leg{}, &model.InvalidOrderError{Field: "notionalUsd", Value: in.NotionalUsd, Reason: "must be > 0"}
	}
	if !finite(in.Leverage) || in.Leverage < 1 {
		return model.Leg{}, &model.InvalidOrderError{Field: "leverage", Value: in.Leverage, Reason: "must be >= 1"}
	}
	if !finite(in.EntryPrice) || in.EntryPrice <= 0 {
		return model.Leg{}, &model.InvalidOrderError{Field: "entryPrice", Value: in.EntryPrice, Reason: "must be > 0"}
	}
	if !finite(in.FeeRate) || in.FeeRate < 0 {
		return model.Leg{}, &model.InvalidOrderError{Field: "feeRate", Value: in.FeeRate, Reason: "must be >= 0"}
	}
	if !finite(in.EntryFundingRate) {
		return model.Leg{}, &model.InvalidOrderError{Field: "entryFundingRate", Value: in.EntryFundingRate, Reason: "must be finite"}
	}

	return model.Leg{
		Exchange:         in.Exchange,
		Symbol:           in.Symbol,
		Side:             in.Side,
		QuantityBase:     in.NotionalUsd / in.EntryPrice,
		Leverage:         in.Leverage,
		NotionalUsd:      in.NotionalUsd,
		MarginUsd:        in.NotionalUsd / in.Leverage,
		EntryPrice:       in.EntryPrice,
		EntryFundingRate: in.EntryFundingRate,
		FeeUsd:           in.NotionalUsd * in.FeeRate,
	}, nil
}

// LegBuilder 负责打时间戳、分配 ID；时钟和 ID 生成器可注入便于测试
type LegBuilder struct {
	FeeRate float64
	Clock   func() time.Time
	IDs     func() string
}

// NewLegBuilder feeRate<=0 时使用默认费率
func NewLegBuilder(feeRate float64) *LegBuilder {
	if feeRate <= 0 {
		feeRate = DefaultFeeRate
	}
	return &LegBuilder{
		FeeRate: feeRate,
		Clock:   time.Now,
		IDs:     uuid.NewString,
	}
}

// Build 构造单腿交易
func (b *LegBuilder) Build(account string, in LegInput) (model.Trade, error) {
	leg, err := b.leg(in)
	if err != nil {
		return model.Trade{}, err
	}
	leg.OpenedAt = b.Clock().UnixMilli()
	return model.Trade{ID: b.IDs(), Account: account, Leg: leg}, nil
}

// Pair 构造一多一空的套利持仓
func (b *LegBuilder) Pair(account string, long, short LegInput) (*model.ArbitragePosition, error) {
	if long.Side != model.SideLong {
		return nil, &model.InconsistentLegError{Slot: model.SideLong, Side: long.Side}
	}
	if short.Side != model.SideShort {
		return nil, &model.InconsistentLegError{Slot: model.SideShort, Side: short.Side}
	}

	longLeg, err := b.leg(long)
	if err != nil {
		return nil, err
	}
	shortLeg, err := b.leg(short)
	if err != nil {
		return nil, err
	}

	ts := b.Clock().UnixMilli()
	longLeg.OpenedAt = ts
	shortLeg.OpenedAt = ts
	return &model.ArbitragePosition{
		ID:          b.IDs(),
		Account:     account,
		Long:        longLeg,
		Short:       shortLeg,
		EntrySpread: Spread(longLeg.EntryFundingRate, shortLeg.EntryFundingRate),
		OpenedAt:    ts,
	}, nil
}

func (b *LegBuilder) leg(in LegInput) (model.Leg, error) {
	if in.FeeRate == 0 && !in.FeeRateSet {
		in.FeeRate = b.FeeRate
	}
	return OpenLeg(in)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
