package domain

import "github.com/shopspring/decimal"

// TickKind discriminates organic price updates from the synthetic ones fired
// by the imbalance trigger detector.
type TickKind string

const (
	TickNormal    TickKind = "normal"
	TickSynthetic TickKind = "synthetic"
)

// PriceTick is the finalized output of the pipeline and the unit of broadcast
// to subscribers. Direction is meaningful for synthetic ticks only.
type PriceTick struct {
	Kind      TickKind
	Price     decimal.Decimal
	Direction TradeDirection
}

func NewNormalTick(price decimal.Decimal) PriceTick {
	return PriceTick{Kind: TickNormal, Price: price}
}

func NewSyntheticTick(price decimal.Decimal, direction TradeDirection) PriceTick {
	return PriceTick{Kind: TickSynthetic, Price: price, Direction: direction}
}
