package benchmarks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"krw-trader/internal/config"
	"krw-trader/internal/indicator"
	"krw-trader/internal/logging"
	"krw-trader/internal/merger"
	"krw-trader/pkg/models"
)

// TestThroughputMetrics measures sustained throughput of the pipeline's
// hot paths over a fixed wall-clock window, in the teacher's table-of-
// subtests shape.
func TestThroughputMetrics(t *testing.T) {
	t.Run("MergerThroughput", func(t *testing.T) {
		measureMergerThroughput(t)
	})

	t.Run("IndicatorWorkerThroughput", func(t *testing.T) {
		measureIndicatorThroughput(t)
	})

	t.Run("EndToEndThroughput", func(t *testing.T) {
		measureEndToEndThroughput(t)
	})
}

func measureMergerThroughput(t *testing.T) {
	m := merger.New(logging.Nop(), 4096)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	var forwarded int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range m.Out() {
			atomic.AddInt64(&forwarded, 1)
		}
	}()

	const window = 500 * time.Millisecond
	deadline := time.Now().Add(window)
	tick := models.NewTradeTick("KRW-BTC", 50_000_000)
	var submitted int64
	for time.Now().Before(deadline) {
		m.Submit(tick)
		submitted++
	}

	time.Sleep(50 * time.Millisecond)
	throughput := float64(atomic.LoadInt64(&forwarded)) / window.Seconds()
	t.Logf("merger: submitted=%d forwarded=%d dropped=%d throughput=%.0f ticks/sec",
		submitted, atomic.LoadInt64(&forwarded), m.Dropped(), throughput)
}

func measureIndicatorThroughput(t *testing.T) {
	worker := indicator.NewWorker(logging.Nop(), config.BuySignalParams{
		EMAFast: 5, EMASlow: 20, RSIPeriod: 14, RSIOversold: 30,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in := make(chan *models.Tick, 4096)
	worker.Start(ctx, in)
	defer worker.Stop()

	const n = 20_000
	start := time.Now()
	price := 50_000_000.0
	for i := 0; i < n; i++ {
		price += 1
		in <- models.NewTradeTick("KRW-BTC", price)
	}
	elapsed := time.Since(start)
	t.Logf("indicator: submitted %d ticks in %v (%.0f ticks/sec)", n, elapsed, float64(n)/elapsed.Seconds())
}

func measureEndToEndThroughput(t *testing.T) {
	m := merger.New(logging.Nop(), 4096)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	worker := indicator.NewWorker(logging.Nop(), config.BuySignalParams{
		EMAFast: 5, EMASlow: 20, RSIPeriod: 14, RSIOversold: 30,
	})
	worker.Start(ctx, m.Out())
	defer worker.Stop()

	const window = 300 * time.Millisecond
	deadline := time.Now().Add(window)
	price := 50_000_000.0
	var submitted int64
	for time.Now().Before(deadline) {
		price += 1
		m.Submit(models.NewTradeTick("KRW-BTC", price))
		submitted++
	}

	t.Logf("end-to-end: submitted %d ticks through merger+indicator in %v", submitted, window)
}
