package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_AcquireConsumesBudget(t *testing.T) {
	l := New()
	ctx := context.Background()

	for i := 0; i < defaultLimits[ClassOrder].capacity; i++ {
		if err := l.Acquire(ctx, ClassOrder); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
}

func TestLimiter_AcquireRespectsCallerDeadline(t *testing.T) {
	l := New()

	for i := 0; i < defaultLimits[ClassCancel].capacity; i++ {
		if err := l.Acquire(context.Background(), ClassCancel); err != nil {
			t.Fatalf("drain bucket: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Acquire(ctx, ClassCancel); err == nil {
		t.Fatal("expected acquire to fail once the bucket is drained and deadline is short")
	}
}

func TestLimiter_UnknownClassErrors(t *testing.T) {
	l := New()
	if err := l.Acquire(context.Background(), Class("bogus")); err == nil {
		t.Fatal("expected an error for an unknown class")
	}
}

// TestLimiter_ConcurrentAcquiresStayWithinCapacity hammers the same class
// from many goroutines at once and checks that the bucket still honors its
// capacity rather than over-admitting under contention: admissions never
// exceed the burst plus the tokens refilled while the test ran.
func TestLimiter_ConcurrentAcquiresStayWithinCapacity(t *testing.T) {
	start := time.Now()
	l := New()
	cap := defaultLimits[ClassMarket].capacity

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)

	for i := 0; i < cap*3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			if err := l.Acquire(ctx, ClassMarket); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	refilled := int(time.Since(start).Seconds()*defaultLimits[ClassMarket].perSec) + 1

	require.GreaterOrEqual(t, admitted, cap, "bucket should admit at least its burst capacity")
	require.LessOrEqual(t, admitted, cap+refilled, "bucket should never admit more than its capacity plus what refilled during the test")
}
