package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"krw-trader/internal/apiworker"
	"krw-trader/internal/errs"
	"krw-trader/internal/exchange"
	"krw-trader/internal/metrics"
	"krw-trader/pkg/models"
)

// PendingState is the order lifecycle state of spec.md §4.7.
type PendingState int

const (
	StateSubmitted PendingState = iota
	StatePolling
	StateCancelRequested
	StateFilled
	StateClosed
)

// PendingOrder tracks one submitted order until it reaches a terminal
// state.
type PendingOrder struct {
	OrderID        string
	Symbol         string
	Side           models.OrderSide
	IntendedVolume decimal.Decimal
	IntendedPrice  decimal.Decimal
	SentTS         time.Time
	LastPollTS     time.Time
	State          PendingState
}

// pollPending advances every tracked order: polls if its check interval
// has elapsed, and requests cancellation once PENDING_TIMEOUT has passed
// without reaching a terminal state.
func (t *Trader) pollPending(ctx context.Context) {
	now := time.Now()
	for orderID, po := range t.pending {
		if po.State == StateFilled || po.State == StateClosed {
			delete(t.pending, orderID)
			continue
		}

		if po.State != StateCancelRequested && now.Sub(po.SentTS) >= pendingTimeout {
			po.State = StateCancelRequested
			t.log.Warnw("trader: pending order exceeded timeout, requesting cancel",
				"order_id", orderID, "symbol", po.Symbol, "err", fmt.Errorf("%w: %s", errs.ErrOrderTimeout, orderID))
			t.submitRequest(apiworker.Request{Kind: apiworker.ReqCancelOrder, UUID: orderID}, Correlation{Kind: CorrCancelOrder, OrderID: orderID})
			continue
		}

		if now.Sub(po.LastPollTS) >= pendingCheckInterval {
			po.LastPollTS = now
			po.State = StatePolling
			t.submitRequest(apiworker.Request{Kind: apiworker.ReqGetOrder, UUID: orderID}, Correlation{Kind: CorrOrderStatus, OrderID: orderID})
		}
	}

	counts := make(map[string]float64)
	for symbol := range t.active {
		counts[symbol] = 0
	}
	for _, po := range t.pending {
		counts[po.Symbol]++
	}
	for symbol, count := range counts {
		metrics.PendingOrders.WithLabelValues(symbol).Set(count)
	}
}

func (t *Trader) handleResponse(ctx context.Context, resp apiworker.Response) {
	corr, ok := t.correlations[resp.RequestID]
	if !ok {
		return
	}
	delete(t.correlations, resp.RequestID)

	if resp.Err != nil {
		t.handleResponseErr(corr, resp.Err)
		return
	}

	switch corr.Kind {
	case CorrBalanceKRW:
		t.krwBalance = resp.Balance
	case CorrBalanceCoin:
		t.coinBalances[corr.Symbol] = resp.Balance
	case CorrBuyOrder, CorrSellOrder:
		t.handleOrderSubmission(corr, resp.OrderAck)
	case CorrOrderStatus:
		t.handleOrderStatus(ctx, corr, resp.OrderStatus)
	case CorrCancelOrder:
		delete(t.pending, corr.OrderID)
		t.notifier.Notify(fmt.Sprintf("[CANCELLED] order %s", corr.OrderID))
	}
}

func (t *Trader) handleResponseErr(corr Correlation, err error) {
	switch corr.Kind {
	case CorrBuyOrder:
		t.notifier.Notify(fmt.Sprintf("[ERROR] buy request failed for %s: %v", corr.Symbol, err))
	case CorrSellOrder:
		t.notifier.Notify(fmt.Sprintf("[ERROR] sell request failed for %s: %v", corr.Symbol, err))
	default:
		t.log.Warnw("trader: response error", "kind", corr.Kind, "err", err)
	}
}

func (t *Trader) handleOrderSubmission(corr Correlation, ack exchange.OrderAck) {
	if ack.UUID == "" {
		err := fmt.Errorf("%w: %s %s", errs.ErrExchangeRejection, sideLabel(corr.Kind), corr.Symbol)
		t.log.Warnw("trader: order submission rejected", "symbol", corr.Symbol, "err", err)
		t.notifier.Notify(fmt.Sprintf("[ERROR] %s rejected for %s, no uuid returned", sideLabel(corr.Kind), corr.Symbol))
		return
	}

	side := models.SideBuy
	if corr.Kind == CorrSellOrder {
		side = models.SideSell
	}

	t.pending[ack.UUID] = &PendingOrder{
		OrderID:        ack.UUID,
		Symbol:         corr.Symbol,
		Side:           side,
		IntendedVolume: corr.Volume,
		IntendedPrice:  corr.Price,
		SentTS:         time.Now(),
		LastPollTS:     time.Now(),
		State:          StateSubmitted,
	}
	t.notifier.Notify(fmt.Sprintf("[%s REQUEST] %s uuid=%s", sideLabel(corr.Kind), corr.Symbol, ack.UUID))
}

func sideLabel(kind CorrelationKind) string {
	if kind == CorrSellOrder {
		return "SELL"
	}
	return "BUY"
}

func (t *Trader) handleOrderStatus(ctx context.Context, corr Correlation, status exchange.OrderStatus) {
	po, ok := t.pending[corr.OrderID]
	if !ok {
		return
	}

	switch status.State {
	case exchange.OrderDone:
		fill := buildFill(po, status)
		po.State = StateFilled
		delete(t.pending, corr.OrderID)

		t.strategies.ProcessOrderFill(fill)
		metrics.OrdersFilled.WithLabelValues(fill.Symbol, fill.Side.String()).Inc()
		metrics.ActivePositions.WithLabelValues().Set(float64(t.countActivePositions()))
		t.notifier.Notify(fmt.Sprintf("[FILL] %s %s price=%s volume=%s", fill.Symbol, fill.Side, fill.Price, fill.Volume))

		if t.tradeLog != nil {
			if err := t.tradeLog.Record(ctx, fill); err != nil {
				t.log.Warnw("trader: trade log write failed", "err", err)
			}
		}
		t.refreshBalances(fill.Symbol)

	case exchange.OrderCancel, exchange.OrderFail:
		po.State = StateClosed
		delete(t.pending, corr.OrderID)
		t.notifier.Notify(fmt.Sprintf("[CANCEL] %s order %s", po.Symbol, po.OrderID))

	default:
		po.State = StatePolling
	}
}

// buildFill computes the volume-weighted average fill price over reported
// trades, falling back to the intended price when none were reported.
func buildFill(po *PendingOrder, status exchange.OrderStatus) models.OrderFill {
	price := po.IntendedPrice
	volume := po.IntendedVolume

	if len(status.Trades) > 0 {
		var notional, totalVolume decimal.Decimal
		for _, tr := range status.Trades {
			notional = notional.Add(tr.Price.Mul(tr.Volume))
			totalVolume = totalVolume.Add(tr.Volume)
		}
		if !totalVolume.IsZero() {
			price = notional.Div(totalVolume)
			volume = totalVolume
		}
	}

	return models.OrderFill{
		Symbol:  po.Symbol,
		Side:    po.Side,
		Price:   price,
		Volume:  volume,
		TS:      time.Now(),
		OrderID: po.OrderID,
	}
}

func (t *Trader) refreshBalances(symbol string) {
	t.submitRequest(apiworker.Request{Kind: apiworker.ReqGetBalance, Currency: "KRW"}, Correlation{Kind: CorrBalanceKRW})
	t.submitRequest(apiworker.Request{Kind: apiworker.ReqGetBalance, Currency: coinCurrency(symbol)}, Correlation{Kind: CorrBalanceCoin, Symbol: symbol})
}
