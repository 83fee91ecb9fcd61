// Package trader is the central decider: it consumes the unified tick
// stream, routes each tick to its strategy, enforces the global
// order-submission rate cap, and drives the pending-order lifecycle
// (submit, poll, timeout-cancel) against APIWorker, per spec.md §4.7.
// Grounded on original_source's src/trading/trader.py, translated from its
// single asyncio loop into a goroutine with the same suspension points:
// a bounded-timeout channel receive, command/response draining, and a
// time-comparison pending-order poll.
package trader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"krw-trader/internal/apiworker"
	"krw-trader/internal/config"
	"krw-trader/internal/metrics"
	"krw-trader/internal/risk"
	"krw-trader/internal/strategy"
	"krw-trader/pkg/models"
)

// CommandType enumerates spec.md §6's command-channel message shapes.
type CommandType string

const (
	CommandPause               CommandType = "pause"
	CommandResume              CommandType = "resume"
	CommandShutdown            CommandType = "shutdown"
	CommandPortfolioStatus     CommandType = "portfolio_status"
	CommandStrategyPerformance CommandType = "strategy_performance"
)

// Command is one decoded command-channel message.
type Command struct {
	Type CommandType
}

// CommandSource is the out-of-band control-channel's read side. Trader
// receives from it as one case of its main select loop, one command per
// iteration.
type CommandSource interface {
	Commands() <-chan Command
}

// Notifier is the out-of-band control-channel's write side, carrying the
// free-form UTF-8 notification strings of spec.md §6.
type Notifier interface {
	Notify(message string)
}

// TradeLogSink appends one row per confirmed fill.
type TradeLogSink interface {
	Record(ctx context.Context, fill models.OrderFill) error
}

const (
	orderInterval        = 150 * time.Millisecond
	pendingCheckInterval = 300 * time.Millisecond
	pendingTimeout       = 10 * time.Second
	tickWaitTimeout      = time.Second
)

// Trader owns the order lifecycle, the pending-order table, the per-symbol
// risk managers, and the in-memory balance/price bookkeeping the risk gate
// reads fresh on every buy.
type Trader struct {
	log       *zap.SugaredLogger
	cfg       *config.Config
	strategies *strategy.Manager
	api       *apiworker.Worker
	commands  CommandSource
	notifier  Notifier
	tradeLog  TradeLogSink

	active map[string]bool

	krwBalance   decimal.Decimal
	coinBalances map[string]decimal.Decimal
	lastPrice    map[string]decimal.Decimal
	riskManagers map[string]*risk.Manager

	pending      map[string]*PendingOrder
	correlations map[string]Correlation

	lastOrderTS time.Time
	paused      bool

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New builds a Trader for the given initial active symbol set.
func New(
	log *zap.SugaredLogger,
	cfg *config.Config,
	strategies *strategy.Manager,
	api *apiworker.Worker,
	commands CommandSource,
	notifier Notifier,
	tradeLog TradeLogSink,
	initialSymbols []string,
) *Trader {
	t := &Trader{
		log:          log,
		cfg:          cfg,
		strategies:   strategies,
		api:          api,
		commands:     commands,
		notifier:     notifier,
		tradeLog:     tradeLog,
		active:       make(map[string]bool),
		coinBalances: make(map[string]decimal.Decimal),
		lastPrice:    make(map[string]decimal.Decimal),
		riskManagers: make(map[string]*risk.Manager),
		pending:      make(map[string]*PendingOrder),
		correlations: make(map[string]Correlation),
		shutdownCh:   make(chan struct{}),
	}
	for _, symbol := range initialSymbols {
		t.activateSymbol(symbol)
	}
	return t
}

func (t *Trader) activateSymbol(symbol string) {
	t.active[symbol] = true
	t.coinBalances[symbol] = decimal.Zero
	t.lastPrice[symbol] = decimal.Zero
	t.riskManagers[symbol] = risk.New(risk.Limits{
		DailyLossLimitKRW:      decimal.NewFromFloat(t.cfg.DailyLossLimitKRW),
		MaxCoinRatio:           decimal.NewFromFloat(t.cfg.MaxCoinRatio),
		MaxConcurrentPositions: t.cfg.MaxConcurrentPositions,
		MaxPositionKRW:         decimal.NewFromFloat(t.cfg.MaxPositionKRWFor(symbol)),
	})
}

// ShutdownRequested is closed once a CommandShutdown has been received, so
// the process entrypoint can treat it the same as an OS signal and begin
// teardown — Trader has no way to cancel the top-level context itself.
func (t *Trader) ShutdownRequested() <-chan struct{} {
	return t.shutdownCh
}

// Run is the main loop: tick handling, command/response draining, dynamic
// rebind, and pending-order polling, on the suspension points of spec.md
// §5.
func (t *Trader) Run(ctx context.Context, ticks <-chan *models.Tick, symbolUpdates <-chan []string) {
	t.requestStartupBalances()

	pollTicker := time.NewTicker(pendingCheckInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-t.commands.Commands():
			t.handleCommand(cmd)

		case resp := <-t.api.Responses():
			t.handleResponse(ctx, resp)

		case newSymbols := <-symbolUpdates:
			t.rebind(ctx, newSymbols)

		case <-pollTicker.C:
			t.pollPending(ctx)

		case tick, ok := <-ticks:
			if !ok {
				return
			}
			t.handleTick(ctx, tick)

		case <-time.After(tickWaitTimeout):
			// No tick within the window; loop back to service commands,
			// responses, and pending polling (spec.md §4.7 step 1).
		}
	}
}

func (t *Trader) requestStartupBalances() {
	t.submitRequest(apiworker.Request{Kind: apiworker.ReqGetBalance, Currency: "KRW"}, Correlation{Kind: CorrBalanceKRW})
	for symbol := range t.active {
		currency := coinCurrency(symbol)
		t.submitRequest(apiworker.Request{Kind: apiworker.ReqGetBalance, Currency: currency}, Correlation{Kind: CorrBalanceCoin, Symbol: symbol})
	}
}

func (t *Trader) handleCommand(cmd Command) {
	switch cmd.Type {
	case CommandPause:
		t.paused = true
		t.notifier.Notify("[INFO] trading paused")
	case CommandResume:
		t.paused = false
		t.notifier.Notify("[INFO] trading resumed")
	case CommandShutdown:
		t.notifier.Notify("[INFO] shutdown requested")
		t.shutdownOnce.Do(func() { close(t.shutdownCh) })
	case CommandPortfolioStatus:
		t.notifier.Notify(fmt.Sprintf("[PORTFOLIO] %+v", t.strategies.PortfolioStatus()))
	case CommandStrategyPerformance:
		t.notifier.Notify(fmt.Sprintf("[PERFORMANCE] %+v", t.strategies.StrategyPerformance()))
	}
}

func (t *Trader) handleTick(ctx context.Context, tick *models.Tick) {
	if !t.active[tick.Symbol] {
		return
	}
	if tick.Type == models.TickTrade {
		t.lastPrice[tick.Symbol] = decimal.NewFromFloat(tick.TradePrice)
	}
	if t.paused {
		return
	}

	sig, ok := t.strategies.ProcessTick(tick.Symbol, tick)
	if !ok {
		return
	}

	switch sig.Action {
	case strategy.ActionBuy:
		t.maybeSubmitBuy(ctx, tick.Symbol)
	case strategy.ActionSell:
		t.submitSell(ctx, tick.Symbol, sig.Volume, "signal")
	}
}

func coinCurrency(symbol string) string {
	for i := len(symbol) - 1; i >= 0; i-- {
		if symbol[i] == '-' {
			return symbol[i+1:]
		}
	}
	return symbol
}

func (t *Trader) submitRequest(req apiworker.Request, corr Correlation) {
	req.RequestID = uuid.NewString()
	t.correlations[req.RequestID] = corr
	t.api.Submit(req)
}
