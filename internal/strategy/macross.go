package strategy

import (
	"krw-trader/internal/config"
	"krw-trader/pkg/models"
)

// MACross enters long on a golden cross (fast SMA crossing above slow SMA)
// and exits on take-profit/stop-loss or a death cross, original_source's
// ma_cross_strategy.py.
type MACross struct {
	base
	prices []float64

	havePrev          bool
	prevFast, prevSlow float64
}

// NewMACross builds a MACross strategy for symbol.
func NewMACross(symbol string, cfg config.StrategyConfig) *MACross {
	return &MACross{base: newBase(symbol, cfg)}
}

func (m *MACross) Prepare() {
	m.prices = nil
	m.havePrev = false
}

func (m *MACross) OnTick(tick *models.Tick) Signal {
	if tick.Type == models.TickDepth {
		m.updateDepth(tick)
		return noneSignal
	}

	price := tick.TradePrice
	m.push(price)

	fast, fastOK := sma(m.prices, m.fastPeriod())
	slow, slowOK := sma(m.prices, m.slowPeriod())
	if !fastOK || !slowOK {
		return noneSignal
	}

	defer func() {
		m.prevFast, m.prevSlow = fast, slow
		m.havePrev = true
	}()

	if m.isLong() {
		if sig, ok := m.checkTakeProfitStopLoss(price); ok {
			return sig
		}
		if m.havePrev && m.prevFast >= m.prevSlow && fast < slow {
			return Signal{Action: ActionSell, Reason: "death_cross"}
		}
		return noneSignal
	}

	if m.havePrev && m.prevFast <= m.prevSlow && fast > slow {
		return Signal{Action: ActionBuy, Reason: "golden_cross"}
	}
	return noneSignal
}

func (m *MACross) fastPeriod() int {
	if m.cfg.FastPeriod > 0 {
		return m.cfg.FastPeriod
	}
	return 5
}

func (m *MACross) slowPeriod() int {
	if m.cfg.SlowPeriod > 0 {
		return m.cfg.SlowPeriod
	}
	return 20
}

func (m *MACross) push(price float64) {
	m.prices = append(m.prices, price)
	max := m.slowPeriod()
	if len(m.prices) > max {
		m.prices = m.prices[len(m.prices)-max:]
	}
}

func sma(prices []float64, period int) (float64, bool) {
	if len(prices) < period {
		return 0, false
	}
	window := prices[len(prices)-period:]
	sum := 0.0
	for _, p := range window {
		sum += p
	}
	return sum / float64(period), true
}
