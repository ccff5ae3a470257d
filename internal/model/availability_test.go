package model

import (
	"testing"
	"time"
)

func TestAvailabilityNeverAttempted(t *testing.T) {
	rec := &AvailabilityRecord{Level: LevelA1, Outcome: OutcomeNeverAttempted}
	if !rec.Available(time.Now()) {
		t.Fatalf("never attempted must be available")
	}
}

func TestAvailabilityPassedStaysClosed(t *testing.T) {
	rec := &AvailabilityRecord{Level: LevelA1, Outcome: OutcomePassed}
	if rec.Available(time.Now().Add(100 * 365 * 24 * time.Hour)) {
		t.Fatalf("a passed level never reopens")
	}
}

func TestAvailabilityCooldownExpires(t *testing.T) {
	next := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	for _, outcome := range []AvailabilityOutcome{OutcomeFailedCooldown, OutcomeViolationCooldown} {
		rec := &AvailabilityRecord{Level: LevelA2, Outcome: outcome, NextAvailableAt: &next}

		if rec.Available(next.Add(-time.Second)) {
			t.Fatalf("%s: closed before next_available_at", outcome)
		}
		if !rec.Available(next) {
			t.Fatalf("%s: open exactly at next_available_at", outcome)
		}
		if !rec.Available(next.Add(time.Hour)) {
			t.Fatalf("%s: open after next_available_at", outcome)
		}
	}
}

func TestAvailabilityProgressionLockNeverExpires(t *testing.T) {
	requires := LevelA1
	rec := &AvailabilityRecord{Level: LevelA2, Outcome: OutcomeProgressionLocked, RequiresLevel: &requires}

	if rec.Available(time.Now().Add(1000 * 24 * time.Hour)) {
		t.Fatalf("a progression lock cannot be waited out")
	}
}
