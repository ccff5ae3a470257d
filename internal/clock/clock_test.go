package clock

import (
	"testing"
	"time"
)

func TestRemainingDerivesFromAbsoluteTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	budget := 30 * time.Minute

	if got := Remaining(start, budget, start); got != budget {
		t.Fatalf("at start expected full budget, got %v", got)
	}
	if got := Remaining(start, budget, start.Add(10*time.Minute)); got != 20*time.Minute {
		t.Fatalf("expected 20m, got %v", got)
	}
	if got := Remaining(start, budget, start.Add(30*time.Minute)); got != 0 {
		t.Fatalf("expected 0 at the deadline, got %v", got)
	}
}

func TestRemainingFloorsAtZero(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	got := Remaining(start, 30*time.Minute, start.Add(2*time.Hour))
	if got != 0 {
		t.Fatalf("expected 0 past the deadline, got %v", got)
	}
}

func TestTickerSchedulerStopIsIdempotent(t *testing.T) {
	fired := make(chan struct{}, 10)

	stop := TickerScheduler{}.Every(time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("expected at least one tick")
	}

	stop()
	stop() // must not panic
}
