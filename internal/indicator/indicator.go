// Package indicator computes the EMA/RSI buy-signal filter original_source
// implemented with pandas, here on a bounded per-symbol price buffer using
// plain float64 — indicator math is continuous and has no decimal-precision
// requirement, unlike the money fields in pkg/models. The tick-consumption
// loop is grounded on the teacher's alerts.Engine: a buffered intake channel,
// non-blocking ProcessTick, and a single goroutine evaluating each tick in
// turn.
package indicator

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"krw-trader/internal/config"
	"krw-trader/pkg/models"
)

// maxTicks bounds the per-symbol price history, mirroring
// IndicatorWorker.MAX_TICKS in original_source.
const maxTicks = 1000

// priceBuffer is a drop-oldest ring of trade prices for one symbol.
type priceBuffer struct {
	prices []float64
}

func (p *priceBuffer) push(price float64) {
	p.prices = append(p.prices, price)
	if len(p.prices) > maxTicks {
		p.prices = p.prices[len(p.prices)-maxTicks:]
	}
}

// ema computes the exponential moving average over the last period prices,
// seeded with a simple average the way pandas' ewm(adjust=False) effectively
// converges from a cold start.
func ema(prices []float64, period int) (float64, bool) {
	if len(prices) < period {
		return 0, false
	}
	window := prices[len(prices)-period:]
	sum := 0.0
	for _, p := range window {
		sum += p
	}
	avg := sum / float64(period)

	alpha := 2.0 / (float64(period) + 1.0)
	value := avg
	for _, p := range window {
		value = alpha*p + (1-alpha)*value
	}
	return value, true
}

// rsi computes RSI over the last period+1 prices: the average gain and the
// average loss are simple (rolling) means over those period price changes,
// with no further Wilder smoothing step. A window with no losses yields 100.
func rsi(prices []float64, period int) (float64, bool) {
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

// warmupMargin is the buffer length required before a symbol is even
// considered for a buyable verdict: max(ema_slow, rsi_period) plus a 5-tick
// margin so the EMA/RSI recurrences have converged past their cold start,
// not merely the minimum length ema/rsi need to return a value at all.
func warmupMargin(params config.BuySignalParams) int {
	longest := params.EMASlow
	if params.RSIPeriod > longest {
		longest = params.RSIPeriod
	}
	return longest + 5
}

// BuyableSet is the process-resident, single-writer/many-reader set of
// symbols IndicatorWorker currently considers buyable. Readers take a
// point-in-time snapshot rather than holding the lock across a scan.
type BuyableSet struct {
	mu    sync.RWMutex
	state map[string]bool
}

// NewBuyableSet returns an empty set.
func NewBuyableSet() *BuyableSet {
	return &BuyableSet{state: make(map[string]bool)}
}

// Snapshot returns a copy of the currently-buyable symbols.
func (s *BuyableSet) Snapshot() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out
}

// IsBuyable reports whether symbol is currently flagged buyable.
func (s *BuyableSet) IsBuyable(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state[symbol]
}

func (s *BuyableSet) set(symbol string, buyable bool) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state[symbol] == buyable {
		return false
	}
	s.state[symbol] = buyable
	return true
}

// Set directly marks symbol's buyable state, for warm-starting from
// persisted state or from tests that need a BuyableSet without driving a
// full Worker through EMA/RSI history.
func (s *BuyableSet) Set(symbol string, buyable bool) {
	s.set(symbol, buyable)
}

// Worker consumes the merged tick stream and maintains BuyableSet, flagging
// a symbol buyable while EMA(fast) sits above EMA(slow) and RSI sits
// below the oversold threshold — the same EMA/RSI filter original_source
// computed per-tick in indicator_worker.py.
type Worker struct {
	log    *zap.SugaredLogger
	params config.BuySignalParams

	mu      sync.Mutex
	buffers map[string]*priceBuffer

	buyable *BuyableSet

	ticks   chan *models.Tick
	stopCh  chan struct{}
	running bool
	runMu   sync.Mutex
}

// NewWorker builds an IndicatorWorker with the given buy-signal parameters.
func NewWorker(log *zap.SugaredLogger, params config.BuySignalParams) *Worker {
	return &Worker{
		log:     log,
		params:  params,
		buffers: make(map[string]*priceBuffer),
		buyable: NewBuyableSet(),
		ticks:   make(chan *models.Tick, 1000),
		stopCh:  make(chan struct{}),
	}
}

// Buyable exposes the worker's BuyableSet for SymbolManager.
func (w *Worker) Buyable() *BuyableSet {
	return w.buyable
}

// Start begins consuming ticks from in until ctx is canceled or Stop is called.
func (w *Worker) Start(ctx context.Context, in <-chan *models.Tick) {
	w.runMu.Lock()
	if w.running {
		w.runMu.Unlock()
		return
	}
	w.running = true
	w.runMu.Unlock()

	go w.run(ctx, in)
}

// Stop halts the worker's consumption loop.
func (w *Worker) Stop() {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
}

func (w *Worker) run(ctx context.Context, in <-chan *models.Tick) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case tick, ok := <-in:
			if !ok {
				return
			}
			if tick.Type == models.TickTrade {
				w.evaluate(tick)
			}
		}
	}
}

func (w *Worker) evaluate(tick *models.Tick) {
	w.mu.Lock()
	buf, ok := w.buffers[tick.Symbol]
	if !ok {
		buf = &priceBuffer{}
		w.buffers[tick.Symbol] = buf
	}
	buf.push(tick.TradePrice)
	prices := append([]float64(nil), buf.prices...)
	w.mu.Unlock()

	if len(prices) < warmupMargin(w.params) {
		return
	}

	fast, fastOK := ema(prices, w.params.EMAFast)
	slow, slowOK := ema(prices, w.params.EMASlow)
	rsiValue, rsiOK := rsi(prices, w.params.RSIPeriod)

	if !fastOK || !slowOK || !rsiOK {
		return
	}

	buyable := fast > slow && rsiValue < w.params.RSIOversold
	if changed := w.buyable.set(tick.Symbol, buyable); changed {
		w.log.Infow("buyable state changed", "symbol", tick.Symbol, "buyable", buyable,
			"ema_fast", fast, "ema_slow", slow, "rsi", rsiValue)
	}
}
