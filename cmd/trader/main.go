// Command trader wires every worker of the trading pipeline together:
// Ingress, Merger, IndicatorWorker, SymbolManager, StrategyManager, Trader,
// and APIWorker, connected by the Go channels described in spec.md §2, plus
// the ambient Redis control-channel and trade-log adapters. Grounded on the
// teacher's cmd/server/main.go construct-then-Start-then-wait-for-signal
// shape.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"krw-trader/internal/adapters/rediscontrol"
	"krw-trader/internal/adapters/tradelog"
	"krw-trader/internal/apiworker"
	"krw-trader/internal/config"
	"krw-trader/internal/errs"
	"krw-trader/internal/exchange"
	"krw-trader/internal/indicator"
	"krw-trader/internal/ingress"
	"krw-trader/internal/logging"
	"krw-trader/internal/merger"
	"krw-trader/internal/metrics"
	"krw-trader/internal/ratelimit"
	"krw-trader/internal/strategy"
	"krw-trader/internal/symbols"
	"krw-trader/internal/trader"
	"krw-trader/pkg/models"
)

const (
	upbitWSURL            = "wss://api.upbit.com/websocket/v1"
	upbitRESTURL          = "https://api.upbit.com"
	symbolRefreshInterval = 30 * time.Second
	mergerBufferSize      = 4096
)

func main() {
	cfg, err := config.Load(os.Getenv("TRADER_CONFIG"))
	if err != nil {
		log.Fatalf("%v", fmt.Errorf("%w: %v", errs.ErrFatal, err))
	}

	logger := logging.New()
	defer logger.Sync()

	metrics.Register(prometheus.DefaultRegisterer)
	go serveMetrics(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := exchange.NewUpbitClient(upbitRESTURL, cfg.ExchangeAccessKey, cfg.ExchangeSecretKey)
	limiter := ratelimit.New()
	api := apiworker.New(logger.Named("apiworker"), client, limiter)
	// symbols.Manager needs its own Worker instance: it is the only reader
	// of its Responses() channel, so it cannot share Trader's. Both share
	// the same ratelimit.Limiter and exchange.Client, so token-bucket
	// gating still applies to every exchange-bound call.
	marketAPI := apiworker.New(logger.Named("apiworker.market"), client, limiter)

	indicatorWorker := indicator.NewWorker(logger.Named("indicator"), cfg.BuySignalParams)

	symbolMgr := symbols.New(logger.Named("symbols"), marketAPI, indicatorWorker.Buyable(), symbols.Config{
		TopN:              cfg.TopNSymbols,
		RefreshInterval:   symbolRefreshInterval,
		MinStableInterval: time.Duration(cfg.MinSymbolStableSec) * time.Second,
		ExcludeWarning:    cfg.SafetyFilters.ExcludeWarning,
		ExcludeSmallAcc:   cfg.SafetyFilters.ExcludeSmallAcc,
	})

	tickMerger := merger.New(logger.Named("merger"), mergerBufferSize)
	feedCfg := ingress.Config{
		HeartbeatTimeout: cfg.WebSocket.HeartbeatTimeout,
		MaxRetries:       cfg.WebSocket.MaxRetries,
		BackoffBase:      cfg.WebSocket.BackoffBase,
		MaxBackoff:       cfg.WebSocket.MaxBackoff,
	}
	tradeFeed := ingress.NewFeed(logger.Named("ingress.trade"), upbitWSURL, ingress.ChannelTrade, ingress.UpbitDecoder{}, tickMerger, feedCfg)
	depthFeed := ingress.NewFeed(logger.Named("ingress.depth"), upbitWSURL, ingress.ChannelDepth, ingress.UpbitDecoder{}, tickMerger, feedCfg)

	strategyMgr := strategy.NewManager(logger.Named("strategy"), cfg, cfg.Symbols)

	tradeLog := openTradeLog(logger, cfg)

	control := rediscontrol.New(logger.Named("control"), cfg.RedisAddr, cfg.CommandChannel, cfg.NotifyChannel)
	defer control.Close()

	t := trader.New(logger.Named("trader"), cfg, strategyMgr, api, control, control, tradeLog, cfg.Symbols)

	traderTicks := make(chan *models.Tick, mergerBufferSize)
	indicatorTicks := make(chan *models.Tick, mergerBufferSize)
	go fanOutTicks(tickMerger.Out(), traderTicks, indicatorTicks)

	symbolUpdates := make(chan []string, 1)
	go relaySymbolUpdates(symbolMgr.Publish(), symbolUpdates, tradeFeed, depthFeed)

	go api.Run(ctx)
	go marketAPI.Run(ctx)
	go indicatorWorker.Start(ctx, indicatorTicks)
	go symbolMgr.Run(ctx)
	tradeFeed.Start(ctx, cfg.Symbols)
	depthFeed.Start(ctx, cfg.Symbols)
	go func() {
		if err := control.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Warnw("control channel stopped", "err", err)
		}
	}()

	go t.Run(ctx, traderTicks, symbolUpdates)

	logger.Infow("krw-trader started", "symbols", cfg.Symbols)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		logger.Infow("shutting down on signal")
	case <-t.ShutdownRequested():
		logger.Infow("shutting down on shutdown command")
	}
	cancel()
	tradeFeed.Stop()
	depthFeed.Stop()
	tickMerger.Stop()
}

func openTradeLog(logger interface {
	Warnw(string, ...interface{})
}, cfg *config.Config) trader.TradeLogSink {
	if cfg.TradeLogDSN == "" {
		return tradelog.NewMemorySink()
	}
	sink, err := tradelog.OpenPostgresSink(cfg.TradeLogDSN)
	if err != nil {
		logger.Warnw("trade log: falling back to in-memory sink", "err", err)
		return tradelog.NewMemorySink()
	}
	return sink
}

func serveMetrics(logger interface{ Warnw(string, ...interface{}) }) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":9100", mux); err != nil {
		logger.Warnw("metrics server stopped", "err", err)
	}
}

// fanOutTicks mirrors spec.md §2's unified stream going to both
// IndicatorWorker and Trader: each tick is offered to both, non-blockingly,
// so a slow consumer drops rather than stalls the merge.
func fanOutTicks(in <-chan *models.Tick, toTrader, toIndicator chan<- *models.Tick) {
	for tick := range in {
		select {
		case toTrader <- tick:
		default:
		}
		select {
		case toIndicator <- tick:
		default:
		}
	}
}

// relaySymbolUpdates applies a new active set to every ingress feed (each
// diffs and reconnects only if the set actually changed) and forwards it
// to Trader's rebind channel.
func relaySymbolUpdates(in <-chan []string, out chan<- []string, feeds ...*ingress.Feed) {
	for symbols := range in {
		for _, feed := range feeds {
			feed.UpdateSymbols(symbols)
		}
		select {
		case out <- symbols:
		default:
		}
	}
}
