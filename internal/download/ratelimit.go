package download

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dlbench/pkg/fetch"
	"dlbench/pkg/logger"

	"go.uber.org/zap"
)

// limiter cooperatively throttles fetches against the rate-limit window the
// server reports in its response headers.
//
// Before a fetch starts, reserve takes one unit of the budget. The effective
// budget is
//
//	remaining := last.Remaining
//	if now > last.ResetAt { remaining = last.Limit }
//
// and a fetch may start while remaining - inFlight > 0. Otherwise the caller
// waits until the window resets or the state changes. A window that has
// already reset without budget (Limit 0) lets one fetch through when none is
// in flight, so a fresh status can arrive.
//
// After every fetch release merges the reported status: a later ResetAt is
// always adopted, and within the same window the lower Remaining wins.
//
// Until the first response arrives the limiter assumes a window of one request
// that never resets, so exactly one probe goes out. When the probe reports no
// rate-limit headers the limiter turns itself off.
type limiter struct {
	mu       sync.Mutex
	inFlight int
	last     fetch.RateLimitStatus
	probed   bool
	disabled bool
	// changed is closed and replaced every time the state changes, waking all
	// goroutines blocked in reserve.
	changed chan struct{}
}

func newLimiter() *limiter {
	return &limiter{
		last: fetch.RateLimitStatus{
			Limit:     1,
			Remaining: 1,
			ResetAt:   time.Now().Add(365 * 24 * time.Hour),
		},
		changed: make(chan struct{}),
	}
}

// reserve blocks until a slot is available or ctx is done.
func (l *limiter) reserve(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.disabled {
			l.mu.Unlock()

			return nil
		}

		remaining := l.last.Remaining
		expired := time.Now().After(l.last.ResetAt)
		if expired {
			remaining = l.last.Limit
		}
		// an expired window with no budget is refreshed by a single fetch
		if remaining-l.inFlight > 0 || (expired && l.inFlight == 0) {
			l.inFlight++
			l.mu.Unlock()

			return nil
		}

		resetAt := l.last.ResetAt
		changed := l.changed
		logger.Debug(ctx, "waiting for rate limit slot",
			zap.Int("remaining", remaining),
			zap.Int("limit", l.last.Limit),
			zap.Time("resetAt", resetAt),
			zap.Int("inFlight", l.inFlight))
		l.mu.Unlock()

		// past the reset only a finishing fetch can change the budget
		var (
			timer  *time.Timer
			expiry <-chan time.Time
		)
		if !expired {
			timer = time.NewTimer(time.Until(resetAt))
			expiry = timer.C
		}
		select {
		case <-ctx.Done():
			stopTimer(timer)

			return fmt.Errorf("could not reserve rate limit slot: %w", ctx.Err())
		case <-changed:
		case <-expiry:
		}
		stopTimer(timer)
	}
}

// release returns the slot taken by reserve and merges the status reported by
// the finished fetch.
func (l *limiter) release(ctx context.Context, status fetch.RateLimitStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.disabled {
		return
	}
	if l.inFlight > 0 {
		l.inFlight--
	}
	defer l.broadcast()

	if !l.probed {
		l.probed = true
		if !status.Known() {
			logger.Debug(ctx, "server reports no rate limit, throttling disabled")
			l.disabled = true

			return
		}
		l.last = status

		return
	}
	if !status.Known() {
		return
	}

	newer := status.ResetAt.After(l.last.ResetAt)
	sameWindow := status.ResetAt.Equal(l.last.ResetAt)
	if newer || (sameWindow && status.Remaining < l.last.Remaining) {
		l.last = status
		logger.Debug(ctx, "rate limit status updated",
			zap.Int("limit", status.Limit),
			zap.Int("remaining", status.Remaining),
			zap.Time("resetAt", status.ResetAt),
			zap.Int("inFlight", l.inFlight))
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// broadcast must be called with mu held.
func (l *limiter) broadcast() {
	close(l.changed)
	l.changed = make(chan struct{})
}
