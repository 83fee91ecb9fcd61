// Package ratelimit enforces the per-endpoint-class token buckets
// original_source's rate_limiter.py implemented by hand. Here each bucket is
// a golang.org/x/time/rate.Limiter, owned by a single Limiter instance that
// APIWorker constructs and holds — deliberately not a package-level global,
// since a global limiter shared by unrelated callers would make the accept
// rate depend on load order rather than the class it actually gates.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"krw-trader/internal/metrics"
)

// Class identifies an exchange endpoint category. Each has its own budget
// because order placement, cancellation, account queries, and market data
// are throttled independently by the exchange.
type Class string

const (
	ClassDefault Class = "default"
	ClassOrder   Class = "order"
	ClassCancel  Class = "cancel"
	ClassAccount Class = "account"
	ClassMarket  Class = "market"
)

// defaultLimits mirrors original_source's RateLimiter.DEFAULT_LIMITS:
// (capacity, refill per second) per endpoint class.
var defaultLimits = map[Class]struct {
	capacity int
	perSec   float64
}{
	ClassDefault: {10, 10},
	ClassOrder:   {8, 8},
	ClassCancel:  {8, 8},
	ClassAccount: {30, 30},
	ClassMarket:  {100, 100},
}

// acquireTimeout bounds how long Acquire will wait for a token before giving
// up, matching original_source's wait_for_token default timeout.
const acquireTimeout = 30 * time.Second

// Limiter owns one token bucket per endpoint class.
type Limiter struct {
	buckets map[Class]*rate.Limiter
}

// New builds a Limiter with the default per-class budgets.
func New() *Limiter {
	l := &Limiter{buckets: make(map[Class]*rate.Limiter, len(defaultLimits))}
	for class, limit := range defaultLimits {
		l.buckets[class] = rate.NewLimiter(rate.Limit(limit.perSec), limit.capacity)
	}
	return l
}

// Acquire blocks until a token for class is available, ctx is canceled, or
// acquireTimeout elapses — whichever comes first.
func (l *Limiter) Acquire(ctx context.Context, class Class) error {
	bucket, ok := l.buckets[class]
	if !ok {
		return fmt.Errorf("ratelimit: unknown class %q", class)
	}

	waitCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	defer cancel()

	start := time.Now()
	err := bucket.Wait(waitCtx)
	metrics.RateLimiterWaitSeconds.WithLabelValues(string(class)).Observe(time.Since(start).Seconds())
	return err
}

// Allow reports whether a token for class is immediately available. It never
// waits and never consumes a token. Useful for health/debug reporting.
func (l *Limiter) Allow(class Class) bool {
	bucket, ok := l.buckets[class]
	if !ok {
		return false
	}
	return bucket.Tokens() >= 1
}
