package strategy

import (
	"krw-trader/internal/config"
	"krw-trader/pkg/models"
)

// Scalping keeps the last Window trade prices and enters long when the
// current price is at or below the window minimum — a pure mean-reversion
// scalp, original_source's scalping_strategy.py.
type Scalping struct {
	base
	window []float64
}

// NewScalping builds a Scalping strategy for symbol.
func NewScalping(symbol string, cfg config.StrategyConfig) *Scalping {
	return &Scalping{base: newBase(symbol, cfg)}
}

func (s *Scalping) Prepare() {
	s.window = nil
}

func (s *Scalping) OnTick(tick *models.Tick) Signal {
	if tick.Type == models.TickDepth {
		s.updateDepth(tick)
		return noneSignal
	}
	if s.spreadTooWide() {
		return noneSignal
	}

	price := tick.TradePrice
	s.pushWindow(price)

	if s.isLong() {
		if sig, ok := s.checkTakeProfitStopLoss(price); ok {
			return sig
		}
		return noneSignal
	}

	if s.shouldEnterLong(price) {
		return Signal{Action: ActionBuy, Reason: "scalping_window_low"}
	}
	return noneSignal
}

func (s *Scalping) shouldEnterLong(price float64) bool {
	window := s.cfg.Window
	if window <= 0 {
		window = 5
	}
	if len(s.window) < window {
		return false
	}
	min := s.window[0]
	for _, p := range s.window {
		if p < min {
			min = p
		}
	}
	return price <= min
}

func (s *Scalping) pushWindow(price float64) {
	window := s.cfg.Window
	if window <= 0 {
		window = 5
	}
	s.window = append(s.window, price)
	if len(s.window) > window {
		s.window = s.window[len(s.window)-window:]
	}
}
