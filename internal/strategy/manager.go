package strategy

import (
	"sync"

	"go.uber.org/zap"

	"krw-trader/internal/config"
	"krw-trader/pkg/models"
)

// New builds the Strategy variant named by cfg.Strategy, original_source's
// StrategyManager.AVAILABLE_STRATEGIES registry.
func New(symbol string, cfg config.StrategyConfig) Strategy {
	switch cfg.Strategy {
	case "ma_cross":
		return NewMACross(symbol, cfg)
	case "rsi":
		return NewRSI(symbol, cfg)
	case "advanced_scalping":
		return NewAdvancedScalping(symbol, cfg)
	default:
		return NewScalping(symbol, cfg)
	}
}

// GateDecision is the portfolio gate's verdict for a buy signal.
type GateDecision struct {
	Allowed bool
	Reason  string
}

// Manager owns the symbol→Strategy mapping and the portfolio-wide gate a
// buy signal must clear before Trader ever sees it, original_source's
// strategy_manager.py.
type Manager struct {
	log *zap.SugaredLogger
	cfg *config.Config

	mu         sync.Mutex
	strategies map[string]Strategy
}

// NewManager builds a Manager with one Strategy per initial symbol.
func NewManager(log *zap.SugaredLogger, cfg *config.Config, initialSymbols []string) *Manager {
	m := &Manager{
		log:        log,
		cfg:        cfg,
		strategies: make(map[string]Strategy),
	}
	for _, symbol := range initialSymbols {
		m.addStrategy(symbol)
	}
	return m
}

func (m *Manager) addStrategy(symbol string) {
	s := New(symbol, m.cfg.StrategyConfigFor(symbol))
	s.Prepare()
	m.strategies[symbol] = s
}

// Strategy returns the strategy instance for symbol, or nil if it is not
// currently tracked.
func (m *Manager) Strategy(symbol string) Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strategies[symbol]
}

// ProcessTick dispatches tick to symbol's strategy. The caller (Trader) is
// responsible for calling Gate before acting on a buy Signal — Manager does
// not submit orders itself.
func (m *Manager) ProcessTick(symbol string, tick *models.Tick) (Signal, bool) {
	m.mu.Lock()
	s, ok := m.strategies[symbol]
	m.mu.Unlock()
	if !ok {
		return noneSignal, false
	}
	return s.OnTick(tick), true
}

// ProcessOrderFill dispatches a fill to the owning strategy's bookkeeping.
func (m *Manager) ProcessOrderFill(fill models.OrderFill) {
	m.mu.Lock()
	s, ok := m.strategies[fill.Symbol]
	m.mu.Unlock()
	if ok {
		s.OnOrderFill(fill)
	}
}

// Gate applies the three-step portfolio check of spec.md §4.6 to a proposed
// buy on symbol. totalPositionValueKRW excludes symbol's own current value.
func (m *Manager) Gate(symbol string, totalPositionValueKRW float64) GateDecision {
	if m.activePositions() >= m.cfg.MaxConcurrentPositions {
		return GateDecision{Reason: "portfolio_limit"}
	}

	maxKRW := m.cfg.MaxPositionKRWFor(symbol)
	if maxKRW <= 0 {
		return GateDecision{Reason: "no_symbol_allocation"}
	}

	if totalPositionValueKRW+maxKRW > m.cfg.MaxTotalPositionKRW {
		return GateDecision{Reason: "total_position_limit"}
	}

	return GateDecision{Allowed: true}
}

func (m *Manager) activePositions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.strategies {
		if s.Book().Position.Type == models.PositionLong {
			count++
		}
	}
	return count
}

// UpdateSymbols adds a fresh Strategy for each newly-active symbol and
// drops strategies for removed symbols whose position is flat. A removed
// symbol with an open position is retained (conservative policy, spec.md
// §4.6) so Trader can still route its eventual sell fill; Trader's rebind
// path is responsible for actually closing it out.
func (m *Manager) UpdateSymbols(active []string) (removedWithPosition []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(active))
	for _, s := range active {
		wanted[s] = true
		if _, ok := m.strategies[s]; !ok {
			m.addStrategy(s)
		}
	}

	for symbol, s := range m.strategies {
		if wanted[symbol] {
			continue
		}
		if s.Book().Position.Type != models.PositionNone {
			removedWithPosition = append(removedWithPosition, symbol)
			m.log.Warnw("strategy: retaining removed symbol with open position", "symbol", symbol)
			continue
		}
		delete(m.strategies, symbol)
	}

	return removedWithPosition
}

// TotalRealizedPnL sums every strategy's realized PnL, feeding Trader's
// realized_daily_pnl risk input.
func (m *Manager) TotalRealizedPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0.0
	for _, s := range m.strategies {
		pnl, _ := s.Book().TotalPnL.Float64()
		total += pnl
	}
	return total
}

// PortfolioStatus reports every tracked symbol's current position for the
// Trader command-handling path (`portfolio_status`).
func (m *Manager) PortfolioStatus() map[string]models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.Position, len(m.strategies))
	for symbol, s := range m.strategies {
		out[symbol] = s.Book().Position
	}
	return out
}

// Performance is per-symbol win-rate/trade-count reporting for the
// `strategy_performance` command.
type Performance struct {
	TotalTrades   int
	WinningTrades int
	WinRate       float64
	TotalPnL      float64
}

// StrategyPerformance reports every tracked symbol's trade stats.
func (m *Manager) StrategyPerformance() map[string]Performance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Performance, len(m.strategies))
	for symbol, s := range m.strategies {
		b := s.Book()
		pnl, _ := b.TotalPnL.Float64()
		out[symbol] = Performance{
			TotalTrades:   b.TotalTrades,
			WinningTrades: b.WinningTrades,
			WinRate:       b.WinRate(),
			TotalPnL:      pnl,
		}
	}
	return out
}
