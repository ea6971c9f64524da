package errors

// Code represents a machine-readable error code for categorizing errors.
// Error codes follow the pattern CATEGORY_XXX where CATEGORY is a short
// identifier (e.g., BUDGET, VAL, EXEC) and XXX is a three-digit numeric code.
//
// Error codes are designed to be:
//   - Stable: Codes do not change once assigned
//   - Unique: Each error condition has a distinct code
//   - Searchable: Codes can be used to find documentation and solutions
//   - Machine-readable: Suitable for automated error handling
type Code string

// Error code categories and their ranges:
//
//	VAL_xxx     - Validation errors (400 Bad Request)
//	BUDGET_xxx  - Budget ceiling errors (402 Payment Required)
//	NF_xxx      - Not found errors (404 Not Found)
//	CONF_xxx    - Conflict errors (409 Conflict)
//	GUARD_xxx   - Guardrail errors (422 Unprocessable Entity)
//	EXEC_xxx    - Execution errors (500 Internal Server Error)
//	HOOK_xxx    - Lifecycle hook errors (500 Internal Server Error)
//	INT_xxx     - Internal errors (500 Internal Server Error)
//	UNAVAIL_xxx - Service unavailable (503 Service Unavailable)
//	TIMEOUT_xxx - Timeout errors (504 Gateway Timeout)
const (
	// Validation errors (VAL_xxx) - HTTP 400
	// Used when input fails validation rules.

	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required field is missing.
	CodeValidationRequired Code = "VAL_002"

	// CodeValidationFormat indicates a field has an invalid format.
	CodeValidationFormat Code = "VAL_003"

	// CodeValidationRange indicates a value is outside acceptable range.
	CodeValidationRange Code = "VAL_004"

	// Budget errors (BUDGET_xxx) - HTTP 402
	// Used when a session's cost ceiling blocks work.

	// CodeBudgetExceeded indicates the session's accumulated cost has
	// already met or exceeded its configured ceiling. Raised by the
	// engine's pre-flight check before any task side effect.
	CodeBudgetExceeded Code = "BUDGET_001"

	// CodeBudgetWouldExceed indicates recording a cost would push the
	// session's total strictly past its ceiling. Raised synchronously
	// from cost recording; no new session value is produced.
	CodeBudgetWouldExceed Code = "BUDGET_002"

	// Not found errors (NF_xxx) - HTTP 404
	// Used when a requested resource does not exist.

	// CodeNotFound indicates a general not found error.
	CodeNotFound Code = "NF_001"

	// CodeNotFoundSession indicates the requested session snapshot was
	// not found in the store.
	CodeNotFoundSession Code = "NF_002"

	// CodeNotFoundExecution indicates the requested execution record was
	// not found in the store.
	CodeNotFoundExecution Code = "NF_003"

	// Conflict errors (CONF_xxx) - HTTP 409
	// Used when an operation conflicts with current state.

	// CodeConflict indicates a general conflict error, including an
	// invalid execution status transition.
	CodeConflict Code = "CONF_001"

	// CodeConflictAlreadyExists indicates the resource already exists.
	CodeConflictAlreadyExists Code = "CONF_002"

	// Guardrail errors (GUARD_xxx) - HTTP 422
	// Used when content validation blocks or breaks.

	// CodeGuardrailBlocked indicates the guardrail chain decided the
	// content must not proceed.
	CodeGuardrailBlocked Code = "GUARD_001"

	// CodeGuardrailFailed indicates a guardrail implementation itself
	// failed (returned an error or panicked). The chain converts this
	// into a critical-severity failing result rather than propagating.
	CodeGuardrailFailed Code = "GUARD_002"

	// Execution errors (EXEC_xxx) - HTTP 500
	// Used for failures of the orchestrated task itself.

	// CodeExecutionFailed indicates the task returned a failure. The
	// task's own error is carried as the cause.
	CodeExecutionFailed Code = "EXEC_001"

	// CodeExecutionPanic indicates the task panicked and the engine
	// recovered the panic into a failure result.
	CodeExecutionPanic Code = "EXEC_002"

	// CodeExecutionCanceled indicates the caller's context was canceled
	// before the task settled.
	CodeExecutionCanceled Code = "EXEC_003"

	// Hook errors (HOOK_xxx) - HTTP 500
	// Used for lifecycle hook failures. Only the before-hook failure
	// surfaces as a primary failure; after/error hook failures are
	// logged and suppressed by the engine.

	// CodeHookBefore indicates the before-execute hook failed.
	CodeHookBefore Code = "HOOK_001"

	// CodeHookAfter indicates the after-execute hook failed.
	CodeHookAfter Code = "HOOK_002"

	// CodeHookError indicates the on-error hook failed.
	CodeHookError Code = "HOOK_003"

	// Internal errors (INT_xxx) - HTTP 500
	// Used for unexpected internal failures.

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"

	// CodeInternalDatabase indicates a storage operation failed.
	CodeInternalDatabase Code = "INT_002"

	// CodeInternalConfiguration indicates a configuration error.
	CodeInternalConfiguration Code = "INT_003"

	// Unavailable errors (UNAVAIL_xxx) - HTTP 503
	// Used when a service is temporarily unavailable.

	// CodeUnavailable indicates a general service unavailable error.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeUnavailableDependency indicates a dependent service is unavailable.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// Timeout errors (TIMEOUT_xxx) - HTTP 504
	// Used when an operation exceeds its time limit.

	// CodeTimeout indicates the configured execution deadline elapsed
	// before the task settled (the engine's timeout race).
	CodeTimeout Code = "TIMEOUT_001"

	// CodeTimeoutDatabase indicates a storage operation timed out.
	CodeTimeoutDatabase Code = "TIMEOUT_002"

	// CodeUnknown is the pseudo-code used by retry allow-list checks when
	// an error carries no platform code. It is never assigned to an Error
	// constructed by this package.
	CodeUnknown Code = "UNKNOWN"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the error code (e.g., "VAL", "BUDGET").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
