// Package errors provides standardized error types and error handling utilities
// for the StricklySoft execution engine. It defines common error categories,
// error codes, and helper functions for creating, wrapping, and inspecting
// errors across all engine subsystems.
//
// # Error Categories
//
// The package defines several error categories that map to the failure
// scenarios of orchestrated executions:
//
//   - Validation errors: Invalid input, missing required fields
//   - Budget errors: Session cost ceiling met or would be crossed
//   - Execution errors: Task failure, recovered panic, caller cancellation
//   - Hook errors: Lifecycle hook (before/after/error) failures
//   - Guardrail errors: Content blocked or a broken guardrail implementation
//   - NotFound errors: Stored session or execution record does not exist
//   - Conflict errors: Invalid execution status transition
//   - Internal errors: Unexpected system failures
//   - Unavailable errors: Backing store temporarily unavailable
//   - Timeout errors: Execution or dependency call exceeded its time limit
//
// # Error Codes
//
// Each error includes a machine-readable code (e.g., "BUDGET_001") that can be
// used for error tracking, alerting, and client-side error handling. Error
// codes follow the pattern: CATEGORY_XXX where CATEGORY is a short identifier
// and XXX is a numeric code.
//
// # Usage
//
// Create a new error with context:
//
//	err := errors.New(errors.CodeBudgetExceeded, "session budget of $1.00 already spent")
//
// Wrap an existing error:
//
//	err := errors.Wrap(err, errors.CodeExecutionFailed, "task returned an error")
//
// Check error category:
//
//	if errors.IsBudgetExceeded(err) {
//	    // block further executions on this session
//	}
//
// Extract error details for logging:
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Error("execution failed",
//	        "code", e.Code,
//	        "message", e.Message,
//	    )
//	}
package errors
