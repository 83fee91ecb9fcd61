package strategy

import (
	"krw-trader/internal/config"
	"krw-trader/pkg/models"
)

// RSI enters long on an oversold reversal (previous RSI at or below
// oversold, current RSI higher than previous and above oversold) and exits
// on take-profit/stop-loss or overbought, original_source's
// rsi_strategy.py. RSI is computed the same way indicator.rsi is: simple
// means of the gains and losses over the last period price changes, with no
// Wilder smoothing carried from one tick to the next. It is kept as an
// independent implementation since this variant only needs the single
// latest value, not the worker's buy-signal filter.
type RSI struct {
	base
	prices []float64

	havePrev bool
	prevRSI  float64
}

// NewRSI builds an RSI strategy for symbol.
func NewRSI(symbol string, cfg config.StrategyConfig) *RSI {
	return &RSI{base: newBase(symbol, cfg)}
}

func (r *RSI) Prepare() {
	r.prices = nil
	r.havePrev = false
}

func (r *RSI) OnTick(tick *models.Tick) Signal {
	if tick.Type == models.TickDepth {
		r.updateDepth(tick)
		return noneSignal
	}

	price := tick.TradePrice
	period := r.period()
	r.push(price, period)

	current, ok := wilderRSI(r.prices, period)
	if !ok {
		return noneSignal
	}

	defer func() {
		r.prevRSI = current
		r.havePrev = true
	}()

	if r.isLong() {
		if sig, done := r.checkTakeProfitStopLoss(price); done {
			return sig
		}
		if current >= r.overbought() {
			return Signal{Action: ActionSell, Reason: "overbought"}
		}
		return noneSignal
	}

	if r.havePrev && r.prevRSI <= r.oversold() && current > r.prevRSI && current > r.oversold() {
		return Signal{Action: ActionBuy, Reason: "rsi_oversold_reversal"}
	}
	return noneSignal
}

func (r *RSI) period() int {
	if r.cfg.RSIPeriod > 0 {
		return r.cfg.RSIPeriod
	}
	return 14
}

func (r *RSI) oversold() float64 {
	if r.cfg.OversoldLevel > 0 {
		return r.cfg.OversoldLevel
	}
	return 30
}

func (r *RSI) overbought() float64 {
	if r.cfg.OverboughtLvl > 0 {
		return r.cfg.OverboughtLvl
	}
	return 70
}

func (r *RSI) push(price float64, period int) {
	r.prices = append(r.prices, price)
	max := period + 1
	if len(r.prices) > max {
		r.prices = r.prices[len(r.prices)-max:]
	}
}

// wilderRSI mirrors indicator.rsi: the average gain and loss are simple
// means over the last period price changes; no smoothing step follows.
func wilderRSI(prices []float64, period int) (float64, bool) {
	if len(prices) < period+1 {
		return 0, false
	}
	window := prices[len(prices)-(period+1):]

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}
