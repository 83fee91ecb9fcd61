// Package risk implements the per-symbol portfolio risk gate
// original_source's risk_manager.py computed before every buy: reject in a
// fixed order on daily loss limit, coin ratio, concurrent-position count,
// and minimum order size.
package risk

import "github.com/shopspring/decimal"

// Limits are the thresholds one Manager enforces, resolved from config per
// symbol (MaxPositionKRW varies per symbol; the rest are process-wide).
type Limits struct {
	DailyLossLimitKRW      decimal.Decimal
	MaxCoinRatio           decimal.Decimal
	MaxConcurrentPositions int
	MaxPositionKRW         decimal.Decimal
}

// minBalanceKRW is the exchange's minimum order size, matching
// original_source's hardcoded 5000 KRW floor.
var minBalanceKRW = decimal.NewFromInt(5000)

// Manager gates buy orders against portfolio-wide risk limits. One Manager
// is created per symbol when the symbol becomes active (spec.md §4.7's
// dynamic rebind), matching original_source creating a fresh RiskManager on
// symbol add.
type Manager struct {
	limits Limits
}

// New builds a Manager with the given limits.
func New(limits Limits) *Manager {
	return &Manager{limits: limits}
}

// AllowOrder is the four-arg canonical form (spec.md's resolved Open
// Question): krwBalance and realizedDailyPnl fresh at call time,
// coinRatio = total_coin_value / (total_coin_value + krw_balance),
// activePositions = count of currently-open LONG positions across symbols.
func (m *Manager) AllowOrder(krwBalance, coinRatio, realizedDailyPnl decimal.Decimal, activePositions int) bool {
	if realizedDailyPnl.LessThanOrEqual(m.limits.DailyLossLimitKRW.Neg()) {
		return false
	}
	if coinRatio.GreaterThanOrEqual(m.limits.MaxCoinRatio) {
		return false
	}
	if activePositions >= m.limits.MaxConcurrentPositions {
		return false
	}
	if krwBalance.LessThan(minBalanceKRW) {
		return false
	}
	if krwBalance.LessThan(m.limits.MaxPositionKRW.Mul(decimal.NewFromFloat(0.1))) {
		return false
	}
	return true
}
