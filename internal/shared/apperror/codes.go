package apperror

const (
	// Client errors (4xx)
	CodeInvalidInput = "INVALID_INPUT"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInvalidState = "INVALID_STATE"
	CodeTooMany      = "TOO_MANY_REQUESTS"

	// Leave rule violations (4xx)
	CodeInvalidRange        = "INVALID_RANGE"
	CodePreJoining          = "PRE_JOINING"
	CodeNonPositiveDuration = "NON_POSITIVE_DURATION"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeOverlap             = "OVERLAP"

	// Server errors (5xx)
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)
