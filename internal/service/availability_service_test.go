package service

import (
	"testing"
	"time"

	"github.com/ledionnezirii/germanmaster-sub001/internal/model"
)

func TestOverlayProgressionFillsMissingLevels(t *testing.T) {
	result := OverlayProgression(7, nil)

	if len(result) != len(model.LevelChain) {
		t.Fatalf("got %d levels, want %d", len(result), len(model.LevelChain))
	}
	if result[model.LevelA1].Outcome != model.OutcomeNeverAttempted {
		t.Fatalf("A1 = %s, want never_attempted", result[model.LevelA1].Outcome)
	}
	for _, level := range model.LevelChain[1:] {
		rec := result[level]
		if rec.Outcome != model.OutcomeProgressionLocked {
			t.Fatalf("%s = %s, want progression_locked", level, rec.Outcome)
		}
		if rec.RequiresLevel == nil || *rec.RequiresLevel != level.Previous() {
			t.Fatalf("%s requires %v, want %s", level, rec.RequiresLevel, level.Previous())
		}
	}
}

func TestOverlayProgressionUnlocksAfterPass(t *testing.T) {
	rows := []model.AvailabilityRecord{
		{UserID: 7, Level: model.LevelA1, Outcome: model.OutcomePassed},
	}
	result := OverlayProgression(7, rows)

	if result[model.LevelA2].Outcome != model.OutcomeNeverAttempted {
		t.Fatalf("A2 = %s, want never_attempted", result[model.LevelA2].Outcome)
	}
	if result[model.LevelB1].Outcome != model.OutcomeProgressionLocked {
		t.Fatalf("B1 = %s, want progression_locked", result[model.LevelB1].Outcome)
	}
}

func TestOverlayProgressionLockWinsOverCooldown(t *testing.T) {
	// A cooldown row can sit under a still-locked level after an admin
	// reseed. The lock must win over the cooldown state.
	next := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []model.AvailabilityRecord{
		{UserID: 7, Level: model.LevelA1, Outcome: model.OutcomeFailedCooldown, NextAvailableAt: &next},
		{UserID: 7, Level: model.LevelA2, Outcome: model.OutcomeFailedCooldown, NextAvailableAt: &next},
	}
	result := OverlayProgression(7, rows)

	if result[model.LevelA1].Outcome != model.OutcomeFailedCooldown {
		t.Fatalf("A1 = %s, want failed_cooldown", result[model.LevelA1].Outcome)
	}
	a2 := result[model.LevelA2]
	if a2.Outcome != model.OutcomeProgressionLocked {
		t.Fatalf("A2 = %s, want progression_locked", a2.Outcome)
	}
	// The underlying cooldown state is preserved on the record.
	if a2.NextAvailableAt == nil || !a2.NextAvailableAt.Equal(next) {
		t.Fatalf("A2 lost its cooldown timestamp")
	}
}

func TestOverlayProgressionFailedPrerequisiteKeepsLock(t *testing.T) {
	next := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []model.AvailabilityRecord{
		{UserID: 7, Level: model.LevelA1, Outcome: model.OutcomeViolationCooldown, NextAvailableAt: &next},
	}
	result := OverlayProgression(7, rows)

	if result[model.LevelA2].Outcome != model.OutcomeProgressionLocked {
		t.Fatalf("a failed A1 must not unlock A2")
	}
}
