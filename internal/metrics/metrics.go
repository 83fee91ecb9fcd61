// Package metrics registers the bot's Prometheus instrumentation: order
// throughput, rate-limiter wait time, tick ingress volume, and the
// pending-order lifecycle. Grounded on the CounterVec/HistogramVec/
// GaugeVec + package-level MustRegister pattern used for streaming-api's
// trading metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krw_trader_orders_submitted_total",
			Help: "Total number of orders submitted to the exchange",
		},
		[]string{"symbol", "side"},
	)

	OrdersFilled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krw_trader_orders_filled_total",
			Help: "Total number of orders confirmed filled",
		},
		[]string{"symbol", "side"},
	)

	TicksIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krw_trader_ticks_ingested_total",
			Help: "Total number of ticks received from the exchange websocket",
		},
		[]string{"symbol", "channel"},
	)

	TicksDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krw_trader_ticks_dropped_total",
			Help: "Total number of ticks dropped by the merger due to a full output queue",
		},
		[]string{},
	)

	RateLimiterWaitSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "krw_trader_rate_limiter_wait_seconds",
			Help:    "Time spent waiting for a rate-limiter token before an exchange call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"class"},
	)

	PendingOrders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "krw_trader_pending_orders",
			Help: "Current number of orders awaiting a terminal state",
		},
		[]string{"symbol"},
	)

	ActivePositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "krw_trader_active_positions",
			Help: "Current number of open long positions",
		},
		[]string{},
	)
)

// Register adds every collector to reg. Called once at bootstrap with
// prometheus.DefaultRegisterer, or with a dedicated registry in tests.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(OrdersSubmitted, OrdersFilled, TicksIngested, TicksDropped, RateLimiterWaitSeconds, PendingOrders, ActivePositions)
}
