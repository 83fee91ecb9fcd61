// Package position holds the bookkeeping shared by every strategy variant:
// applying a fill to a Position, realizing PnL on exit, and marking
// unrealized PnL on every tick while a position is open.
package position

import (
	"github.com/shopspring/decimal"

	"krw-trader/pkg/models"
)

// Book is the plain-struct position bookkeeping reused by each strategy
// variant (composition, replacing the source's BaseStrategy inheritance).
type Book struct {
	Position models.Position

	TotalTrades   int
	WinningTrades int
	TotalPnL      decimal.Decimal
}

// New returns a Book with an empty (PositionNone) position for symbol.
func New(symbol string) *Book {
	return &Book{
		Position: models.Position{
			Symbol: symbol,
			Type:   models.PositionNone,
		},
	}
}

// ApplyFill updates the position and trade stats for a confirmed fill.
func (b *Book) ApplyFill(fill models.OrderFill) {
	b.TotalTrades++
	if fill.Side == models.SideBuy {
		b.applyBuy(fill)
		return
	}
	b.applySell(fill)
}

func (b *Book) applyBuy(fill models.OrderFill) {
	b.Position.Type = models.PositionLong
	b.Position.EntryPrice = fill.Price
	b.Position.Volume = fill.Volume
	b.Position.EntryTS = fill.TS
	b.Position.UnrealizedPnL = decimal.Zero
}

// applySell realizes PnL on the volume actually sold in fill, which may
// only partially close the position (AdvancedScalping's staged exits). The
// position is only cleared once its full remaining volume has been sold.
func (b *Book) applySell(fill models.OrderFill) {
	if b.Position.Type != models.PositionLong {
		return
	}

	soldVolume := fill.Volume
	if soldVolume.GreaterThan(b.Position.Volume) {
		soldVolume = b.Position.Volume
	}

	pnl := fill.Price.Sub(b.Position.EntryPrice).Mul(soldVolume)
	b.Position.RealizedPnL = b.Position.RealizedPnL.Add(pnl)
	b.TotalPnL = b.TotalPnL.Add(pnl)
	if pnl.IsPositive() {
		b.WinningTrades++
	}

	remaining := b.Position.Volume.Sub(soldVolume)
	if remaining.IsPositive() {
		b.Position.Volume = remaining
		return
	}

	b.Position.Type = models.PositionNone
	b.Position.EntryPrice = decimal.Zero
	b.Position.Volume = decimal.Zero
	b.Position.UnrealizedPnL = decimal.Zero
}

// UpdateUnrealized recomputes unrealized PnL against the last trade price,
// called on every tick while the position is long.
func (b *Book) UpdateUnrealized(currentPrice decimal.Decimal) {
	if b.Position.Type == models.PositionLong {
		b.Position.UnrealizedPnL = currentPrice.Sub(b.Position.EntryPrice).Mul(b.Position.Volume)
	}
}

// WinRate returns WinningTrades as a percentage (0-100) of TotalTrades,
// which counts every applied fill, buys included; 0 if no fill has been
// applied yet.
func (b *Book) WinRate() float64 {
	if b.TotalTrades == 0 {
		return 0
	}
	return float64(b.WinningTrades) / float64(b.TotalTrades) * 100
}

// Reset clears the book back to a flat, untraded state.
func (b *Book) Reset() {
	symbol := b.Position.Symbol
	*b = *New(symbol)
}
