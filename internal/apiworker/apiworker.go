// Package apiworker serializes Trader's order/query requests onto the
// exchange REST client under per-endpoint-class rate limiting, per spec.md
// §4.9. It is single-threaded by design: one goroutine drains the request
// channel so the exchange never sees concurrent calls that could exceed a
// token bucket mid-refill.
package apiworker

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"krw-trader/internal/errs"
	"krw-trader/internal/exchange"
	"krw-trader/internal/ratelimit"
)

// RequestKind identifies what a Request asks APIWorker to do.
type RequestKind int

const (
	ReqSubmitOrder RequestKind = iota
	ReqGetOrder
	ReqCancelOrder
	ReqGetBalance
	ReqGetMarkets
	ReqGetTicker
)

// Request is one typed unit of work, carrying its own request_id so the
// Response can be correlated back by Trader.
type Request struct {
	RequestID string
	Kind      RequestKind

	Market   string
	Side     exchange.OrderSide
	OrdType  exchange.OrderType
	Volume   decimal.Decimal
	Price    decimal.Decimal
	UUID     string
	Currency string
	Markets  []string
}

// Response carries the result of a Request, always tagged with the
// originating request_id so Trader can retire the correlation even when
// Err is non-nil.
type Response struct {
	RequestID string
	Err       error

	OrderAck    exchange.OrderAck
	OrderStatus exchange.OrderStatus
	Balance     decimal.Decimal
	Markets     []exchange.Market
	Tickers     []exchange.Ticker
}

// classFor maps a request kind to the token-bucket class it consumes.
func classFor(kind RequestKind) ratelimit.Class {
	switch kind {
	case ReqSubmitOrder:
		return ratelimit.ClassOrder
	case ReqCancelOrder:
		return ratelimit.ClassCancel
	case ReqGetBalance:
		return ratelimit.ClassAccount
	case ReqGetMarkets, ReqGetTicker:
		return ratelimit.ClassMarket
	default:
		return ratelimit.ClassDefault
	}
}

// Worker drives exchange.Client from a single goroutine, rate-limited per
// endpoint class.
type Worker struct {
	log     *zap.SugaredLogger
	client  exchange.Client
	limiter *ratelimit.Limiter

	requests  chan Request
	responses chan Response
}

// New builds a Worker. limiter is owned by the caller (constructed once at
// bootstrap) rather than a package-level global, per spec.md §9.
func New(log *zap.SugaredLogger, client exchange.Client, limiter *ratelimit.Limiter) *Worker {
	return &Worker{
		log:       log,
		client:    client,
		limiter:   limiter,
		requests:  make(chan Request, 256),
		responses: make(chan Response, 256),
	}
}

// Submit enqueues a request on a 256-entry buffer; it blocks only while that
// buffer is full. Worker internally serializes all exchange calls.
func (w *Worker) Submit(req Request) {
	w.requests <- req
}

// Responses is the channel Trader reads completed Responses from.
func (w *Worker) Responses() <-chan Response {
	return w.responses
}

// Run drives the single-threaded request loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			w.handle(ctx, req)
		}
	}
}

func (w *Worker) handle(ctx context.Context, req Request) {
	if err := w.limiter.Acquire(ctx, classFor(req.Kind)); err != nil {
		w.respond(Response{RequestID: req.RequestID, Err: fmt.Errorf("%w: %v", errs.ErrRateLimited, err)})
		return
	}

	switch req.Kind {
	case ReqSubmitOrder:
		ack, err := w.client.SubmitOrder(ctx, req.Market, req.Side, req.OrdType, req.Volume, req.Price)
		w.respond(Response{RequestID: req.RequestID, OrderAck: ack, Err: wrapRemote(err)})
	case ReqGetOrder:
		status, err := w.client.GetOrder(ctx, req.UUID)
		w.respond(Response{RequestID: req.RequestID, OrderStatus: status, Err: wrapRemote(err)})
	case ReqCancelOrder:
		err := w.client.CancelOrder(ctx, req.UUID)
		w.respond(Response{RequestID: req.RequestID, Err: wrapRemote(err)})
	case ReqGetBalance:
		bal, err := w.client.GetBalance(ctx, req.Currency)
		w.respond(Response{RequestID: req.RequestID, Balance: bal, Err: wrapRemote(err)})
	case ReqGetMarkets:
		markets, err := w.client.GetMarkets(ctx)
		w.respond(Response{RequestID: req.RequestID, Markets: markets, Err: wrapRemote(err)})
	case ReqGetTicker:
		tickers, err := w.client.GetTicker(ctx, req.Markets)
		w.respond(Response{RequestID: req.RequestID, Tickers: tickers, Err: wrapRemote(err)})
	}
}

func wrapRemote(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", errs.ErrTransientNetwork, err)
}

func (w *Worker) respond(resp Response) {
	select {
	case w.responses <- resp:
	default:
		w.log.Warnw("apiworker: response channel full, dropping", "request_id", resp.RequestID)
	}
}
