package errors

import (
	"errors"
	"fmt"
)

// New creates a new Error with the specified code and message.
// Use this for creating errors without an underlying cause.
//
// Example:
//
//	err := errors.New(errors.CodeValidation, "retry policy maxRetries must be >= 0")
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with the specified code and formatted message.
// Use this for creating errors with dynamic content in the message.
//
// Example:
//
//	err := errors.Newf(errors.CodeNotFoundSession, "session %q not found", sessionID)
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context.
// The wrapped error becomes the Cause of the new error.
// If err is nil, Wrap returns nil.
//
// Example:
//
//	res := task.Execute(ctx, input, sess)
//	if res.Err != nil {
//	    return errors.Wrap(res.Err, errors.CodeExecutionFailed, "task execution failed")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with a formatted message.
// The wrapped error becomes the Cause of the new error.
// If err is nil, Wrapf returns nil.
//
// Example:
//
//	err := errors.Wrapf(err, errors.CodeInternalDatabase, "failed to persist execution %q", execID)
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// Validation creates a new validation error.
// This is a convenience function equivalent to New(CodeValidation, message).
//
// Example:
//
//	err := errors.Validation("session budget must be greater than zero")
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Validationf creates a new validation error with a formatted message.
//
// Example:
//
//	err := errors.Validationf("field %q must be at least %d", field, min)
func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// BudgetExceeded creates a new budget-exceeded error with code
// [CodeBudgetExceeded]. Use this when a session's accumulated cost has
// already met or exceeded its configured ceiling.
//
// Example:
//
//	err := errors.BudgetExceededf("session %q spent $%.4f of $%.4f budget", id, spent, budget)
func BudgetExceeded(message string) *Error {
	return New(CodeBudgetExceeded, message)
}

// BudgetExceededf creates a new budget-exceeded error with a formatted message.
func BudgetExceededf(format string, args ...any) *Error {
	return Newf(CodeBudgetExceeded, format, args...)
}

// NotFound creates a new not found error.
// This is a convenience function equivalent to New(CodeNotFound, message).
//
// Example:
//
//	err := errors.NotFound("session snapshot not found")
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// NotFoundf creates a new not found error with a formatted message.
//
// Example:
//
//	err := errors.NotFoundf("execution %q not found", execID)
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// Conflict creates a new conflict error.
// Use this when an operation conflicts with the current state, such as an
// invalid execution status transition.
//
// Example:
//
//	err := errors.Conflict("execution already in a terminal state")
func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// Internal creates a new internal error.
// Use this for unexpected system failures that should not expose details to users.
//
// Example:
//
//	err := errors.Internal("an unexpected error occurred")
func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// Internalf creates a new internal error with a formatted message.
// Use this for logging detailed internal errors.
//
// Example:
//
//	err := errors.Internalf("failed to process execution: %v", underlyingErr)
func Internalf(format string, args ...any) *Error {
	return Newf(CodeInternal, format, args...)
}

// Unavailable creates a new service unavailable error.
// Use this when a service or dependency is temporarily unavailable.
//
// Example:
//
//	err := errors.Unavailable("session store is temporarily unavailable")
func Unavailable(message string) *Error {
	return New(CodeUnavailable, message)
}

// Timeout creates a new timeout error with code [CodeTimeout].
// Use this when an execution exceeds its configured time limit.
//
// Example:
//
//	err := errors.Timeoutf("task %q did not settle within %v", name, timeout)
func Timeout(message string) *Error {
	return New(CodeTimeout, message)
}

// Timeoutf creates a new timeout error with a formatted message.
func Timeoutf(format string, args ...any) *Error {
	return Newf(CodeTimeout, format, args...)
}

// TaskFailed wraps an error returned by a task into an execution failure
// with code [CodeExecutionFailed]. The task's error is preserved as the
// cause so its original code (if any) remains visible to the retry
// policy's allow-list check via [GetCode].
//
// Example:
//
//	err := errors.TaskFailed(res.Err, "model call failed")
func TaskFailed(err error, message string) *Error {
	return Wrap(err, CodeExecutionFailed, message)
}

// FromError converts a standard error to an Error.
// If the error is already an *Error, it is returned as-is.
// Otherwise, it is wrapped as an internal error.
//
// Example:
//
//	platformErr := errors.FromError(err)
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return Wrap(err, CodeInternal, "an unexpected error occurred")
}
