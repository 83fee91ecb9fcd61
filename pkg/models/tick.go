package models

import "time"

// TickType distinguishes a trade print from a depth (orderbook) update.
type TickType int

const (
	TickTrade TickType = iota
	TickDepth
)

func (t TickType) String() string {
	switch t {
	case TickTrade:
		return "trade"
	case TickDepth:
		return "depth"
	default:
		return "unknown"
	}
}

// Tick is the unified market-data event flowing from Ingress through Merger
// into IndicatorWorker and Trader. For depth ticks, TradePrice is derived as
// the bid/ask midpoint by the producer before the tick is ever handed off,
// so downstream consumers never need to branch on Type to read a price.
type Tick struct {
	Symbol     string
	Type       TickType
	TradePrice float64
	BestBid    float64
	BestAsk    float64
	Spread     float64
	Timestamp  time.Time
}

// NewTradeTick builds a trade-print tick for symbol at price.
func NewTradeTick(symbol string, price float64) *Tick {
	return &Tick{
		Symbol:     symbol,
		Type:       TickTrade,
		TradePrice: price,
		Timestamp:  time.Now(),
	}
}

// NewDepthTick builds a depth-update tick, deriving TradePrice as the
// bid/ask midpoint per the unified-tick invariant.
func NewDepthTick(symbol string, bestBid, bestAsk float64) *Tick {
	return &Tick{
		Symbol:     symbol,
		Type:       TickDepth,
		BestBid:    bestBid,
		BestAsk:    bestAsk,
		Spread:     bestAsk - bestBid,
		TradePrice: (bestBid + bestAsk) / 2,
		Timestamp:  time.Now(),
	}
}
