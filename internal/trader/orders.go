package trader

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"krw-trader/internal/apiworker"
	"krw-trader/internal/exchange"
	"krw-trader/internal/metrics"
	"krw-trader/pkg/models"
)

// minOrderKRW is the exchange's minimum order size, enforced alongside
// RiskManager.AllowOrder per spec.md §4.7 step 3.
var minOrderKRW = decimal.NewFromInt(5000)

// maybeSubmitBuy enforces the global order-rate cap, then the portfolio
// risk gate computed fresh from current balances/prices, before submitting
// a market buy for min(krw_balance, MAX_POSITION_KRW[symbol]).
func (t *Trader) maybeSubmitBuy(ctx context.Context, symbol string) {
	if !t.canSubmitOrder() {
		return
	}

	rm, ok := t.riskManagers[symbol]
	if !ok {
		return
	}

	totalCoinValue := t.totalCoinValue()
	coinRatio := decimal.Zero
	denom := totalCoinValue.Add(t.krwBalance)
	if !denom.IsZero() {
		coinRatio = totalCoinValue.Div(denom)
	}
	realizedDailyPnl := decimal.NewFromFloat(t.strategies.TotalRealizedPnL())
	activePositions := t.countActivePositions()

	if !rm.AllowOrder(t.krwBalance, coinRatio, realizedDailyPnl, activePositions) {
		return
	}

	symbolValue := t.coinBalances[symbol].Mul(t.lastPrice[symbol])
	otherPositionsValueKRW, _ := totalCoinValue.Sub(symbolValue).Float64()
	if decision := t.strategies.Gate(symbol, otherPositionsValueKRW); !decision.Allowed {
		t.log.Debugw("trader: portfolio gate rejected buy", "symbol", symbol, "reason", decision.Reason)
		return
	}

	maxKRW := decimal.NewFromFloat(t.cfg.MaxPositionKRWFor(symbol))
	krwAmount := t.krwBalance
	if maxKRW.LessThan(krwAmount) {
		krwAmount = maxKRW
	}
	if krwAmount.LessThan(minOrderKRW) {
		return
	}

	price := t.lastPrice[symbol]
	var intendedVolume decimal.Decimal
	if !price.IsZero() {
		intendedVolume = krwAmount.Div(price)
	}

	t.submitRequest(apiworker.Request{
		Kind:    apiworker.ReqSubmitOrder,
		Market:  symbol,
		Side:    exchange.SideBuy,
		OrdType: exchange.OrderTypeMarket,
		Volume:  krwAmount,
	}, Correlation{Kind: CorrBuyOrder, Symbol: symbol, Price: price, Volume: intendedVolume})

	metrics.OrdersSubmitted.WithLabelValues(symbol, "buy").Inc()
	t.lastOrderTS = time.Now()
}

// submitSell honors an explicit partial-close volume when given; otherwise
// sells the full coin balance. Zero-volume sells are skipped entirely
// (spec.md §4.7 step 4).
func (t *Trader) submitSell(ctx context.Context, symbol string, volume decimal.Decimal, reason string) {
	if !t.canSubmitOrder() {
		return
	}

	sellVolume := volume
	if sellVolume.IsZero() {
		sellVolume = t.coinBalances[symbol]
	}
	if sellVolume.IsZero() {
		return
	}

	price := t.lastPrice[symbol]

	t.submitRequest(apiworker.Request{
		Kind:    apiworker.ReqSubmitOrder,
		Market:  symbol,
		Side:    exchange.SideSell,
		OrdType: exchange.OrderTypeMarket,
		Volume:  sellVolume,
	}, Correlation{Kind: CorrSellOrder, Symbol: symbol, Price: price, Volume: sellVolume})

	metrics.OrdersSubmitted.WithLabelValues(symbol, "sell").Inc()
	t.lastOrderTS = time.Now()
}

func (t *Trader) canSubmitOrder() bool {
	return time.Since(t.lastOrderTS) >= orderInterval
}

func (t *Trader) totalCoinValue() decimal.Decimal {
	total := decimal.Zero
	for symbol, bal := range t.coinBalances {
		total = total.Add(bal.Mul(t.lastPrice[symbol]))
	}
	return total
}

func (t *Trader) countActivePositions() int {
	count := 0
	for symbol := range t.active {
		if s := t.strategies.Strategy(symbol); s != nil && s.Book().Position.Type == models.PositionLong {
			count++
		}
	}
	return count
}
