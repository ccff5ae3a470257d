package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates assessment attempt states. Status is
// monotonic: InProgress moves to exactly one terminal state and never
// leaves it.
type SessionStatus string

const (
	SessionStatusInProgress      SessionStatus = "IN_PROGRESS"
	SessionStatusSubmitted       SessionStatus = "SUBMITTED"
	SessionStatusExpired         SessionStatus = "EXPIRED"
	SessionStatusViolationFailed SessionStatus = "VIOLATION_FAILED"
	SessionStatusCancelled       SessionStatus = "CANCELLED"
)

// Terminal reports whether the status is an end state.
func (s SessionStatus) Terminal() bool {
	return s != "" && s != SessionStatusInProgress
}

// OutcomeKind tags how an attempt reached grading.
type OutcomeKind string

const (
	OutcomeNormal        OutcomeKind = "normal"
	OutcomeAutoSubmitted OutcomeKind = "autoSubmitted"
	OutcomeForceFailure  OutcomeKind = "forceFailure"
)

// ViolationKind identifies the integrity breach that forced a failure.
type ViolationKind string

const (
	ViolationTabSwitch  ViolationKind = "tab_switch"
	ViolationWindowBlur ViolationKind = "window_blur"
	ViolationAbandoned  ViolationKind = "test_abandoned"
	ViolationCancelled  ViolationKind = "cancelled"
)

// AssessmentSession is the core aggregate for one graded attempt.
// It is mutated only by the lifecycle controller; the guard flags are
// part of the aggregate so the state machine is fully testable.
type AssessmentSession struct {
	SessionID    uuid.UUID            `json:"session_id"`
	AssessmentID uuid.UUID            `json:"assessment_id"`
	UserID       int                  `json:"user_id"`
	Level        Level                `json:"level"`
	StartedAt    time.Time            `json:"started_at"`
	Answers      map[uuid.UUID]Answer `json:"answers"`
	Status       SessionStatus        `json:"status"`

	// Finalizing is the single-flight guard: once a terminal transition
	// begins, every other trigger is a no-op.
	Finalizing bool `json:"-"`
	// ViolationRaised makes violations exactly-once per session.
	ViolationRaised bool `json:"-"`
}

// GradingSubmission is the contract between the lifecycle controller
// and the grading service: the final answers plus how the attempt
// ended. Finalization is idempotent per SessionID.
type GradingSubmission struct {
	SessionID     uuid.UUID            `json:"session_id"`
	AssessmentID  uuid.UUID            `json:"assessment_id"`
	UserID        int                  `json:"user_id"`
	Level         Level                `json:"level"`
	StartedAt     time.Time            `json:"started_at"`
	Answers       map[uuid.UUID]Answer `json:"answers"`
	Kind          OutcomeKind          `json:"kind"`
	ViolationKind ViolationKind        `json:"violation_kind,omitempty"`
}

// AttemptResult is the graded outcome returned by the grading service.
type AttemptResult struct {
	SessionID     uuid.UUID           `json:"session_id"`
	AssessmentID  uuid.UUID           `json:"assessment_id"`
	UserID        int                 `json:"user_id"`
	Score         int                 `json:"score"`
	Passed        bool                `json:"passed"`
	OutcomeKind   OutcomeKind         `json:"outcome_kind"`
	ViolationKind ViolationKind       `json:"violation_kind,omitempty"`
	XPAwarded     int                 `json:"xp_awarded,omitempty"`
	FinishedAt    time.Time           `json:"finished_at"`
	Availability  *AvailabilityRecord `json:"updated_availability,omitempty"`
}
