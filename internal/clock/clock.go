// Package clock is the single time authority for the attempt engine.
// Remaining time is always derived from absolute timestamps, never
// decremented, so reloads and scheduling jitter cannot skew deadlines.
package clock

import (
	"sync"
	"time"
)

// Clock abstracts wall time so the engine is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Remaining returns how much of the budget is left at the given
// instant, floored at zero.
func Remaining(startedAt time.Time, budget time.Duration, now time.Time) time.Duration {
	left := startedAt.Add(budget).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Scheduler drives periodic re-evaluation. Every invokes fn at the
// given interval until the returned stop function is called. Stop is
// idempotent.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler is the production Scheduler backed by time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
