package model

import "time"

// AvailabilityOutcome describes why a level is or is not startable.
type AvailabilityOutcome string

const (
	OutcomeNeverAttempted    AvailabilityOutcome = "never_attempted"
	OutcomePassed            AvailabilityOutcome = "passed"
	OutcomeFailedCooldown    AvailabilityOutcome = "failed_cooldown"
	OutcomeViolationCooldown AvailabilityOutcome = "violation_cooldown"
	OutcomeProgressionLocked AvailabilityOutcome = "progression_locked"
)

// AvailabilityRecord is the per-user, per-level ledger entry. Created
// on first attempt, updated after every terminal outcome, never
// deleted.
type AvailabilityRecord struct {
	UserID          int                 `json:"user_id"`
	Level           Level               `json:"level"`
	LastAttemptAt   *time.Time          `json:"last_attempt_at,omitempty"`
	LastScore       *int                `json:"last_score,omitempty"`
	Outcome         AvailabilityOutcome `json:"outcome"`
	NextAvailableAt *time.Time          `json:"next_available_at,omitempty"`
	RequiresLevel   *Level              `json:"requires_level,omitempty"`
}

// Available reports whether a new attempt at this level may start at
// the given instant. Passed levels stay closed; there is nothing left
// to attempt. A progression lock can never be waited out.
func (r *AvailabilityRecord) Available(now time.Time) bool {
	switch r.Outcome {
	case OutcomeNeverAttempted:
		return true
	case OutcomeFailedCooldown, OutcomeViolationCooldown:
		return r.NextAvailableAt != nil && !now.Before(*r.NextAvailableAt)
	default:
		return false
	}
}
