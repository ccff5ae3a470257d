package engine

import (
	"errors"
	"fmt"
)

// Error taxonomy of the attempt engine. Nothing here is fatal to the
// host process: every failure resolves to a well-defined session
// status or a retryable condition.
var (
	// ErrNotAvailable: cooldown, progression or violation lock. Only
	// waiting (or passing the prerequisite level) can clear it.
	ErrNotAvailable = errors.New("assessment is not available for this user")

	// ErrAttemptAlreadyInProgress: a recovery record exists. Not an
	// error to the user; the caller should run the resume flow.
	ErrAttemptAlreadyInProgress = errors.New("an attempt is already in progress")

	// ErrNoActiveAttempt: the operation needs an in-flight attempt and
	// there is none.
	ErrNoActiveAttempt = errors.New("no active attempt")

	// ErrAlreadyFinalized: a terminal transition is running or done;
	// the concurrent trigger is a no-op.
	ErrAlreadyFinalized = errors.New("attempt already finalized")

	// ErrNotFinalized: acknowledgement requires a graded terminal state.
	ErrNotFinalized = errors.New("attempt has not been finalized")

	// ErrUnknownQuestion: the answered question is not part of the
	// assessment definition.
	ErrUnknownQuestion = errors.New("question does not belong to this assessment")

	// ErrGradingUnavailable: transient grading failure. The recovery
	// record is retained and the operation is safe to retry, because
	// grading is idempotent by session id.
	ErrGradingUnavailable = errors.New("grading service unavailable")
)

// IncompleteAnswersError rejects a submission with unanswered
// questions. It is a validation gate, not a terminal transition: the
// session stays InProgress.
type IncompleteAnswersError struct {
	Count    int
	Ordinals []int
}

func (e *IncompleteAnswersError) Error() string {
	return fmt.Sprintf("%d questions unanswered: %v", e.Count, e.Ordinals)
}
