package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrLearnerAccessOnly ErrCode = "LEARNER_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Assessment attempts ───────────────────────────────────────────
	ErrNotAvailable        ErrCode = "NOT_AVAILABLE"
	ErrAttemptInProgress   ErrCode = "ATTEMPT_ALREADY_IN_PROGRESS"
	ErrNoActiveAttempt     ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrIncompleteAnswers   ErrCode = "INCOMPLETE_ANSWERS"
	ErrAttemptFinalized    ErrCode = "ATTEMPT_FINALIZED"
	ErrAttemptNotFinalized ErrCode = "ATTEMPT_NOT_FINALIZED"
	ErrViolationDetected   ErrCode = "VIOLATION_DETECTED"
	ErrUnknownQuestion     ErrCode = "UNKNOWN_QUESTION"
	ErrGradingUnavailable  ErrCode = "GRADING_SERVICE_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrLearnerAccessOnly:
		return "This resource is restricted to learners."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Assessment attempts ───────────────────────────────────────────
	case ErrNotAvailable:
		return "This level test is not available to you right now."
	case ErrAttemptInProgress:
		return "You already have a test attempt in progress."
	case ErrNoActiveAttempt:
		return "You have no test attempt in progress."
	case ErrIncompleteAnswers:
		return "Please answer every question before submitting."
	case ErrAttemptFinalized:
		return "This attempt has already been finalized."
	case ErrAttemptNotFinalized:
		return "This attempt has not been graded yet."
	case ErrViolationDetected:
		return "An integrity violation ended this attempt."
	case ErrUnknownQuestion:
		return "This question does not belong to the current test."
	case ErrGradingUnavailable:
		return "Grading is temporarily unavailable. Your attempt is safe, please retry."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
