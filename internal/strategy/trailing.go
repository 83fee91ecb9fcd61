package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"krw-trader/internal/config"
	"krw-trader/pkg/models"
)

// TrailingStop is the opt-in exit sub-component AdvancedScalping composes
// (not a mixin, per spec.md §9), grounded on original_source's
// trailing_stop_mixin.py: ratchets a stop price up as the position's high
// advances, and stages partial exits at configured gain levels.
type TrailingStop struct {
	cfg config.StrategyConfig

	highestPrice    float64
	trailingActive  bool
	trailingStop    float64
	remainingVolume decimal.Decimal

	partials     []models.PartialPosition
	nextLevelIdx int
}

// NewTrailingStop builds a TrailingStop with cfg's trailing/partial-close
// parameters, inactive until Reset is called on entry.
func NewTrailingStop(cfg config.StrategyConfig) *TrailingStop {
	return &TrailingStop{cfg: cfg}
}

// Reset (re)initializes tracking state on a new entry fill, splitting the
// entered volume into partial-close slices per cfg.PartialCloseRatios if
// partial close is enabled.
func (t *TrailingStop) Reset(entryPrice float64, volume decimal.Decimal, entryTS time.Time) {
	t.highestPrice = entryPrice
	t.trailingActive = false
	t.trailingStop = 0
	t.remainingVolume = volume
	t.nextLevelIdx = 0
	t.partials = nil

	if !t.cfg.PartialCloseEnabled || len(t.cfg.PartialCloseRatios) == 0 {
		return
	}

	remaining := volume
	for i, ratio := range t.cfg.PartialCloseRatios {
		var slice decimal.Decimal
		if i == len(t.cfg.PartialCloseRatios)-1 {
			slice = remaining
		} else {
			slice = volume.Mul(decimal.NewFromFloat(ratio))
			remaining = remaining.Sub(slice)
		}
		t.partials = append(t.partials, models.PartialPosition{
			Volume:     slice,
			EntryPrice: decimal.NewFromFloat(entryPrice),
			EntryTS:    entryTS,
		})
	}
}

// Evaluate runs trailing-stop then partial-close checks, in that order, per
// spec.md §4.5. Returns a sell Signal the first time either fires; callers
// should fall back to the base take-profit/stop-loss check when ok is
// false.
func (t *TrailingStop) Evaluate(entryPrice, current float64) (Signal, bool) {
	if entryPrice <= 0 {
		return noneSignal, false
	}

	if sig, ok := t.evaluateTrailing(entryPrice, current); ok {
		return sig, true
	}
	return t.evaluatePartialClose(entryPrice, current)
}

func (t *TrailingStop) evaluateTrailing(entryPrice, current float64) (Signal, bool) {
	if !t.cfg.TrailingStopEnabled {
		return noneSignal, false
	}

	if current > t.highestPrice {
		t.highestPrice = current
	}

	gainPct := (t.highestPrice - entryPrice) / entryPrice * 100
	if !t.trailingActive && gainPct >= t.cfg.TrailingActivationPct {
		t.trailingActive = true
	}
	if !t.trailingActive {
		return noneSignal, false
	}

	candidate := t.highestPrice * (1 - t.cfg.TrailingStopPct/100)
	if candidate > t.trailingStop {
		t.trailingStop = candidate
	}

	if current <= t.trailingStop && !t.remainingVolume.IsZero() {
		vol := t.remainingVolume
		t.remainingVolume = decimal.Zero
		return Signal{Action: ActionSell, Volume: vol, Reason: "trailing_stop"}, true
	}
	return noneSignal, false
}

func (t *TrailingStop) evaluatePartialClose(entryPrice, current float64) (Signal, bool) {
	if !t.cfg.PartialCloseEnabled || t.nextLevelIdx >= len(t.cfg.PartialCloseLevels) {
		return noneSignal, false
	}

	gainPct := (current - entryPrice) / entryPrice * 100
	level := t.cfg.PartialCloseLevels[t.nextLevelIdx]
	if gainPct < level {
		return noneSignal, false
	}

	if t.nextLevelIdx >= len(t.partials) {
		t.nextLevelIdx++
		return noneSignal, false
	}

	slice := &t.partials[t.nextLevelIdx]
	slice.Closed = true
	slice.ClosePrice = decimal.NewFromFloat(current)
	t.remainingVolume = t.remainingVolume.Sub(slice.Volume)
	vol := slice.Volume
	t.nextLevelIdx++

	return Signal{Action: ActionSell, Volume: vol, Reason: "partial_close"}, true
}

// RemainingVolume is the coin volume still open after any partial closes.
func (t *TrailingStop) RemainingVolume() decimal.Decimal {
	return t.remainingVolume
}
