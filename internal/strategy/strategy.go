// Package strategy implements the four pluggable entry/exit variants
// original_source's src/strategy/*.py defined, sharing position bookkeeping
// through position.Book rather than a BaseStrategy class hierarchy —
// composition over inheritance, per spec.md §9.
package strategy

import (
	"github.com/shopspring/decimal"

	"krw-trader/internal/config"
	"krw-trader/internal/position"
	"krw-trader/pkg/models"
)

// Action is what a Strategy wants Trader to do in response to a tick.
type Action int

const (
	ActionNone Action = iota
	ActionBuy
	ActionSell
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "none"
	}
}

// Signal is a Strategy's verdict on one tick. Volume is only meaningful for
// ActionSell: a non-zero Volume requests a partial close of that coin
// amount; zero means "sell the full balance" (spec.md §4.7 step 4).
type Signal struct {
	Action Action
	Price  decimal.Decimal
	Volume decimal.Decimal
	Reason string
}

var noneSignal = Signal{Action: ActionNone}

// Strategy is the polymorphic per-symbol entry/exit engine. Prepare seeds
// any historical state; OnTick reacts to each tick; OnOrderFill updates
// position bookkeeping once the exchange confirms a fill.
type Strategy interface {
	Symbol() string
	Prepare()
	OnTick(tick *models.Tick) Signal
	OnOrderFill(fill models.OrderFill)
	Book() *position.Book
}

// base holds the bookkeeping and config every variant embeds.
type base struct {
	symbol string
	cfg    config.StrategyConfig
	book   *position.Book

	bestBid, bestAsk float64
}

func newBase(symbol string, cfg config.StrategyConfig) base {
	return base{symbol: symbol, cfg: cfg, book: position.New(symbol)}
}

func (b *base) Symbol() string { return b.symbol }

func (b *base) Book() *position.Book { return b.book }

func (b *base) OnOrderFill(fill models.OrderFill) {
	b.book.ApplyFill(fill)
}

// updateDepth records the latest orderbook state from a depth tick; never
// drives a buy/sell by itself (spec.md §4.5 edge case).
func (b *base) updateDepth(tick *models.Tick) {
	b.bestBid = tick.BestBid
	b.bestAsk = tick.BestAsk
}

// spreadTooWide reports whether the current orderbook spread exceeds
// cfg.MaxSpread, suppressing all actions when it does (ScalpingStrategy's
// orderbook-spread filter).
func (b *base) spreadTooWide() bool {
	if b.cfg.MaxSpread <= 0 {
		return false
	}
	if b.bestBid == 0 || b.bestAsk == 0 {
		return false
	}
	return (b.bestAsk - b.bestBid) > b.cfg.MaxSpread
}

// gainPct returns the percentage gain of price over the position's entry
// price, or 0 if there is no open position or entry_price <= 0 (spec.md
// §4.5 edge case: entry_price <= 0 suppresses all exit logic).
func (b *base) gainPct(price float64) float64 {
	entry, _ := b.book.Position.EntryPrice.Float64()
	if entry <= 0 {
		return 0
	}
	return (price - entry) / entry * 100
}

// checkTakeProfitStopLoss is the common exit check shared by Scalping,
// MACross, and RSI: close the full position once the gain crosses either
// threshold.
func (b *base) checkTakeProfitStopLoss(price float64) (Signal, bool) {
	entry, _ := b.book.Position.EntryPrice.Float64()
	if entry <= 0 {
		return noneSignal, false
	}
	gain := b.gainPct(price)
	switch {
	case gain >= b.cfg.TakeProfitPct:
		return Signal{Action: ActionSell, Reason: "take_profit"}, true
	case gain <= -b.cfg.StopLossPct:
		return Signal{Action: ActionSell, Reason: "stop_loss"}, true
	}
	return noneSignal, false
}

func (b *base) isLong() bool {
	return b.book.Position.Type == models.PositionLong
}
