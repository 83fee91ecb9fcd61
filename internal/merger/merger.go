// Package merger fans many per-symbol tick sources into the single ordered
// stream IndicatorWorker and StrategyManager consume. Mechanically it is the
// teacher's broker.go turned inside out: instead of one input fanning out to
// many subscribers, many inputs fan in to one reader, using the same
// non-blocking select/default send to avoid a slow consumer stalling the
// producers.
package merger

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"krw-trader/internal/metrics"
	"krw-trader/pkg/models"
)

// Merger merges ticks from any number of per-symbol/per-channel sources into
// a single bounded output channel. When the output is full, the oldest
// queued tick is dropped to make room rather than blocking a producer —
// Merger favors freshness over completeness.
type Merger struct {
	log *zap.SugaredLogger

	out     chan *models.Tick
	in      chan *models.Tick
	stopCh  chan struct{}
	mu      sync.Mutex
	running bool

	dropped int64
}

// New builds a Merger with the given output buffer size.
func New(log *zap.SugaredLogger, bufSize int) *Merger {
	return &Merger{
		log:    log,
		out:    make(chan *models.Tick, bufSize),
		in:     make(chan *models.Tick, bufSize),
		stopCh: make(chan struct{}),
	}
}

// Start begins the merge loop. Safe to call once; subsequent calls are a
// no-op.
func (m *Merger) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	go m.run(ctx)
}

// Stop halts the merge loop. The output channel is left open so readers
// draining it do not see a spurious close while ticks are still queued.
func (m *Merger) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
}

// Out returns the merged tick stream.
func (m *Merger) Out() <-chan *models.Tick {
	return m.out
}

// Submit feeds a tick from any producer (one per symbol, per channel type)
// into the merge. Non-blocking: if the intake buffer is saturated, the tick
// is dropped rather than stalling the producer goroutine.
func (m *Merger) Submit(tick *models.Tick) {
	select {
	case m.in <- tick:
	default:
		m.log.Warnw("merger intake full, dropping tick", "symbol", tick.Symbol)
	}
}

// Dropped returns the count of ticks dropped for output-side backpressure.
func (m *Merger) Dropped() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

func (m *Merger) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case tick := <-m.in:
			m.forward(tick)
		}
	}
}

// forward pushes tick onto the output, dropping the oldest queued tick to
// make room when the reader is falling behind.
func (m *Merger) forward(tick *models.Tick) {
	select {
	case m.out <- tick:
		return
	default:
	}

	select {
	case <-m.out:
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
		metrics.TicksDropped.WithLabelValues().Inc()
	default:
	}

	select {
	case m.out <- tick:
	default:
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
		metrics.TicksDropped.WithLabelValues().Inc()
	}
}
