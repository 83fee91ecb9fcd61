package trader

import (
	"context"
	"fmt"

	"krw-trader/internal/apiworker"
	"krw-trader/internal/exchange"
)

// rebind applies a new active symbol set: removed symbols with a non-zero
// coin balance are auto-sold, then dropped from bookkeeping; added symbols
// get a fresh RiskManager and a balance refresh. StrategyManager's own
// update runs last, per spec.md §4.7.
func (t *Trader) rebind(ctx context.Context, newSymbols []string) {
	wanted := make(map[string]bool, len(newSymbols))
	for _, s := range newSymbols {
		wanted[s] = true
	}

	for symbol := range t.active {
		if wanted[symbol] {
			continue
		}
		if bal, ok := t.coinBalances[symbol]; ok && bal.IsPositive() {
			t.submitAutoSell(symbol)
		}
		delete(t.active, symbol)
		delete(t.coinBalances, symbol)
		delete(t.lastPrice, symbol)
		delete(t.riskManagers, symbol)
	}

	for symbol := range wanted {
		if t.active[symbol] {
			continue
		}
		t.activateSymbol(symbol)
		currency := coinCurrency(symbol)
		t.submitRequest(apiworker.Request{Kind: apiworker.ReqGetBalance, Currency: currency}, Correlation{Kind: CorrBalanceCoin, Symbol: symbol})
	}

	t.strategies.UpdateSymbols(newSymbols)
	t.notifier.Notify(fmt.Sprintf("[SYMBOLS] active set now %v", newSymbols))
}

func (t *Trader) submitAutoSell(symbol string) {
	bal := t.coinBalances[symbol]
	t.submitRequest(apiworker.Request{
		Kind:    apiworker.ReqSubmitOrder,
		Market:  symbol,
		Side:    exchange.SideSell,
		OrdType: exchange.OrderTypeMarket,
		Volume:  bal,
	}, Correlation{Kind: CorrSellOrder, Symbol: symbol, Volume: bal})
	t.notifier.Notify(fmt.Sprintf("[AUTO SELL] %s volume=%s reason=symbol_removed", symbol, bal))
}
