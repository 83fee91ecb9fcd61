package strategy

import (
	"krw-trader/internal/config"
	"krw-trader/pkg/models"
)

// AdvancedScalping composes Scalping's entry logic with an opt-in
// TrailingStop exit, original_source's advanced_scalping_strategy.py. Exit
// priority per tick while long: trailing stop, then partial close, then the
// base take-profit/stop-loss (widened ×1.5 for TP, tightened ×0.8 for SL
// when either sub-feature is enabled).
type AdvancedScalping struct {
	base
	window   []float64
	trailing *TrailingStop
}

// NewAdvancedScalping builds an AdvancedScalping strategy for symbol.
func NewAdvancedScalping(symbol string, cfg config.StrategyConfig) *AdvancedScalping {
	return &AdvancedScalping{
		base:     newBase(symbol, cfg),
		trailing: NewTrailingStop(cfg),
	}
}

func (a *AdvancedScalping) Prepare() {
	a.window = nil
}

func (a *AdvancedScalping) OnOrderFill(fill models.OrderFill) {
	a.base.OnOrderFill(fill)
	if fill.Side == models.SideBuy {
		entry, _ := a.book.Position.EntryPrice.Float64()
		a.trailing.Reset(entry, fill.Volume, fill.TS)
	}
}

func (a *AdvancedScalping) OnTick(tick *models.Tick) Signal {
	if tick.Type == models.TickDepth {
		a.updateDepth(tick)
		return noneSignal
	}
	if a.spreadTooWide() {
		return noneSignal
	}

	price := tick.TradePrice
	a.pushWindow(price)

	if a.isLong() {
		return a.evaluateExit(price)
	}

	if a.shouldEnterLong(price) {
		return Signal{Action: ActionBuy, Reason: "scalping_window_low"}
	}
	return noneSignal
}

func (a *AdvancedScalping) evaluateExit(price float64) Signal {
	entry, _ := a.book.Position.EntryPrice.Float64()

	if sig, ok := a.trailing.Evaluate(entry, price); ok {
		return sig
	}

	takeProfit, stopLoss := a.cfg.TakeProfitPct, a.cfg.StopLossPct
	if a.cfg.TrailingStopEnabled || a.cfg.PartialCloseEnabled {
		takeProfit *= 1.5
		stopLoss *= 0.8
	}

	if entry <= 0 {
		return noneSignal
	}
	gain := (price - entry) / entry * 100
	switch {
	case gain >= takeProfit:
		return Signal{Action: ActionSell, Reason: "take_profit"}
	case gain <= -stopLoss:
		return Signal{Action: ActionSell, Reason: "stop_loss"}
	}
	return noneSignal
}

func (a *AdvancedScalping) shouldEnterLong(price float64) bool {
	window := a.cfg.Window
	if window <= 0 {
		window = 5
	}
	if len(a.window) < window {
		return false
	}
	min := a.window[0]
	for _, p := range a.window {
		if p < min {
			min = p
		}
	}
	return price <= min
}

func (a *AdvancedScalping) pushWindow(price float64) {
	window := a.cfg.Window
	if window <= 0 {
		window = 5
	}
	a.window = append(a.window, price)
	if len(a.window) > window {
		a.window = a.window[len(a.window)-window:]
	}
}
