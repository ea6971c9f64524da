package errors

import (
	"errors"
)

// AsError attempts to convert an error to an *Error.
// Returns the Error and true if successful, nil and false otherwise.
// This function traverses the error chain using errors.As.
//
// Example:
//
//	if e, ok := errors.AsError(err); ok {
//	    log.Printf("error code: %s, message: %s", e.Code, e.Message)
//	}
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetCode returns the error code from an error.
// If the error is not an *Error or is nil, returns an empty string.
//
// Example:
//
//	code := errors.GetCode(err)
//	if code == errors.CodeTimeout {
//	    // handle timeout
//	}
func GetCode(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// CodeOrUnknown returns the error code from an error, or [CodeUnknown]
// when the error carries no platform code. This is the lookup used by
// retry-policy allow-list checks, which treat uncoded errors uniformly.
func CodeOrUnknown(err error) Code {
	if code := GetCode(err); code != "" {
		return code
	}
	return CodeUnknown
}

// HasCode checks if an error has the specified error code.
// Returns false if the error is nil or not an *Error.
//
// Example:
//
//	if errors.HasCode(err, errors.CodeValidation) {
//	    // handle validation error
//	}
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

// IsValidation checks if the error is a validation error (VAL_xxx).
// Returns true if the error code starts with "VAL".
//
// Example:
//
//	if errors.IsValidation(err) {
//	    // return 400 Bad Request
//	}
func IsValidation(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "VAL"
}

// IsBudgetExceeded checks if the error is a budget error (BUDGET_xxx).
// Both the pre-flight ceiling check (BUDGET_001) and a rejected cost
// recording (BUDGET_002) match.
//
// Example:
//
//	if errors.IsBudgetExceeded(err) {
//	    // block further executions on this session
//	}
func IsBudgetExceeded(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "BUDGET"
}

// IsExecution checks if the error is an execution error (EXEC_xxx):
// a task failure, a recovered panic, or a caller cancellation.
func IsExecution(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "EXEC"
}

// IsHook checks if the error is a lifecycle hook error (HOOK_xxx).
func IsHook(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "HOOK"
}

// IsGuardrail checks if the error is a guardrail error (GUARD_xxx).
//
// Example:
//
//	if errors.IsGuardrail(err) {
//	    // return 422 Unprocessable Entity
//	}
func IsGuardrail(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "GUARD"
}

// IsNotFound checks if the error is a not found error (NF_xxx).
// Returns true if the error code starts with "NF".
//
// Example:
//
//	if errors.IsNotFound(err) {
//	    // return 404 Not Found
//	}
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "NF"
}

// IsConflict checks if the error is a conflict error (CONF_xxx).
// Returns true if the error code starts with "CONF".
//
// Example:
//
//	if errors.IsConflict(err) {
//	    // handle invalid status transition
//	}
func IsConflict(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "CONF"
}

// IsInternal checks if the error is an internal error (INT_xxx).
// Returns true if the error code starts with "INT".
//
// Example:
//
//	if errors.IsInternal(err) {
//	    // log error details, return generic message to client
//	}
func IsInternal(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "INT"
}

// IsUnavailable checks if the error is a service unavailable error (UNAVAIL_xxx).
// Returns true if the error code starts with "UNAVAIL".
//
// Example:
//
//	if errors.IsUnavailable(err) {
//	    // return 503 Service Unavailable, maybe with Retry-After header
//	}
func IsUnavailable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "UNAVAIL"
}

// IsTimeout checks if the error is a timeout error (TIMEOUT_xxx).
// Returns true if the error code starts with "TIMEOUT".
//
// Example:
//
//	if errors.IsTimeout(err) {
//	    // return 504 Gateway Timeout
//	}
func IsTimeout(err error) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == "TIMEOUT"
}

// IsRetryable checks if the error is potentially retryable by its
// category classification. Timeout and unavailable errors are considered
// retryable. This is the platform-wide default; the retry package's
// per-policy retryability check (allow-list or custom predicate) is
// separate and consulted by the engine instead when a policy is supplied.
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    // implement retry with backoff
//	}
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code.Category() {
	case "TIMEOUT", "UNAVAIL":
		return true
	default:
		return false
	}
}

// IsClientError checks if the error is a client error (4xx HTTP status).
// Client errors include validation, budget, not found, conflict, and
// guardrail errors.
//
// Example:
//
//	if errors.IsClientError(err) {
//	    // error is due to client request, not server issue
//	}
func IsClientError(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code.Category() {
	case "VAL", "BUDGET", "NF", "CONF", "GUARD":
		return true
	default:
		return false
	}
}

// IsServerError checks if the error is a server error (5xx HTTP status).
// Server errors include execution, hook, internal, unavailable, and
// timeout errors.
//
// Example:
//
//	if errors.IsServerError(err) {
//	    // error is due to server issue, may need alerting
//	}
func IsServerError(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code.Category() {
	case "EXEC", "HOOK", "INT", "UNAVAIL", "TIMEOUT":
		return true
	default:
		return false
	}
}
