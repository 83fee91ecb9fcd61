package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionType is the sum of supported position sides. Short is reserved
// for a future derivatives mode and is never set by any strategy here.
type PositionType int

const (
	PositionNone PositionType = iota
	PositionLong
	PositionShort
)

func (p PositionType) String() string {
	switch p {
	case PositionLong:
		return "long"
	case PositionShort:
		return "short"
	default:
		return "none"
	}
}

// Position is a strategy's current holding in one symbol. The invariant
// Type == PositionNone => EntryPrice.IsZero() && Volume.IsZero() is
// maintained by Book.ApplyFill and must never be set directly elsewhere.
type Position struct {
	Symbol        string
	Type          PositionType
	EntryPrice    decimal.Decimal
	Volume        decimal.Decimal
	EntryTS       time.Time
	UnrealizedPnL decimal.Decimal
	RealizedPnL   decimal.Decimal
}

// PartialPosition is one slice of a position carved out for staged
// take-profit exits. Slices close at most once, left to right.
type PartialPosition struct {
	Volume     decimal.Decimal
	EntryPrice decimal.Decimal
	EntryTS    time.Time
	Closed     bool
	ClosePrice decimal.Decimal
	CloseTS    time.Time
}

// OrderSide is buy or sell.
type OrderSide int

const (
	SideBuy OrderSide = iota
	SideSell
)

func (s OrderSide) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// OrderFill is produced only once the exchange reports an order as done.
type OrderFill struct {
	Symbol  string
	Side    OrderSide
	Price   decimal.Decimal
	Volume  decimal.Decimal
	TS      time.Time
	OrderID string
}
