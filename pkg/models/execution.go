// Package models defines the data models shared across the engine.
//
// The central type is [Execution] — the audit record created for every
// engine call, connecting the owning session, the task that ran, its
// status, and its outcome (attempts, tokens, cost, error). Records are
// designed for serialization (JSON) and database persistence.
//
// An Execution flows through a defined lifecycle:
//
//	pending → running → completed
//	                  → failed
//	                  → canceled
//	                  → timeout
//
// A running execution may also move to retrying while a backoff delay
// elapses, then back to running for the next attempt. Once an execution
// reaches a terminal state (completed, failed, canceled, timeout) it
// cannot transition further. All transitions are validated against the
// [validTransitions] matrix by [Execution.TransitionTo].
package models

import (
	"time"

	"github.com/google/uuid"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
)

// ExecutionSchemaVersion identifies the current schema version of the
// Execution model. Increment this when making breaking changes to the
// struct fields or serialization format to support schema migration.
const ExecutionSchemaVersion = 1

// ExecutionStatus represents the lifecycle state of an execution.
// Executions begin in [ExecutionStatusPending] and progress through the
// lifecycle until reaching a terminal state.
type ExecutionStatus string

const (
	// ExecutionStatusPending indicates the execution record has been
	// created but the first attempt has not started. This is the
	// initial state set by [NewExecution].
	ExecutionStatusPending ExecutionStatus = "pending"

	// ExecutionStatusRunning indicates an attempt is actively executing.
	ExecutionStatusRunning ExecutionStatus = "running"

	// ExecutionStatusRetrying indicates the last attempt failed and the
	// execution is waiting out a backoff delay before the next attempt.
	ExecutionStatusRetrying ExecutionStatus = "retrying"

	// ExecutionStatusCompleted indicates the execution finished
	// successfully. This is a terminal state.
	ExecutionStatusCompleted ExecutionStatus = "completed"

	// ExecutionStatusFailed indicates the execution exhausted its
	// attempts or hit a non-retryable error. This is a terminal state.
	// The error details are recorded in [Execution.ErrorMessage].
	ExecutionStatusFailed ExecutionStatus = "failed"

	// ExecutionStatusCanceled indicates the caller's context was
	// canceled before completion. This is a terminal state.
	ExecutionStatusCanceled ExecutionStatus = "canceled"

	// ExecutionStatusTimeout indicates the execution exceeded its
	// configured deadline. This is a terminal state.
	ExecutionStatusTimeout ExecutionStatus = "timeout"
)

// String returns the string representation of the execution status.
func (s ExecutionStatus) String() string {
	return string(s)
}

// Valid reports whether the execution status is one of the recognized values.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionStatusPending, ExecutionStatusRunning,
		ExecutionStatusRetrying, ExecutionStatusCompleted,
		ExecutionStatusFailed, ExecutionStatusCanceled,
		ExecutionStatusTimeout:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether this status represents a final state from
// which no further transitions are possible.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusCompleted, ExecutionStatusFailed,
		ExecutionStatusCanceled, ExecutionStatusTimeout:
		return true
	default:
		return false
	}
}

// validTransitions defines the allowed status transitions for the
// execution state machine. Each key is a source status, and the value
// is the set of statuses it may transition to. Transitions not present
// in this map are rejected by [ValidTransition].
//
// Transition matrix:
//
//	pending  → running, canceled
//	running  → retrying, completed, failed, canceled, timeout
//	retrying → running, failed, canceled
var validTransitions = map[ExecutionStatus][]ExecutionStatus{
	ExecutionStatusPending: {ExecutionStatusRunning, ExecutionStatusCanceled},
	ExecutionStatusRunning: {ExecutionStatusRetrying, ExecutionStatusCompleted,
		ExecutionStatusFailed, ExecutionStatusCanceled, ExecutionStatusTimeout},
	ExecutionStatusRetrying: {ExecutionStatusRunning, ExecutionStatusFailed,
		ExecutionStatusCanceled},
}

// ValidTransition reports whether transitioning from status from to
// status to is allowed by the execution state machine. The transition
// must be present in the [validTransitions] matrix; same-state
// transitions are always rejected.
func ValidTransition(from, to ExecutionStatus) bool {
	if from == to {
		return false
	}
	for _, allowed := range validTransitions[from] {
		if to == allowed {
			return true
		}
	}
	return false
}

// Execution is the audit record for one engine call. It captures which
// session ran which task, how it went, and what it consumed.
//
// Every field is annotated with both JSON tags (for API serialization)
// and db tags (for database mapping). Optional fields use omitempty to
// exclude zero values from serialized output.
//
// Records are created via [NewExecution] and updated by the engine
// through [Execution.TransitionTo] and direct outcome-field writes
// (Attempts, TokensUsed, CostUSD, ErrorCode, ErrorMessage, Metadata).
type Execution struct {
	// ID is the unique identifier for this execution (UUID v4).
	ID string `json:"id" db:"id"`

	// SessionID is the ID of the session the execution ran under.
	SessionID string `json:"session_id" db:"session_id"`

	// TaskName identifies the task that was executed.
	TaskName string `json:"task_name" db:"task_name"`

	// Provider is the model provider used for this execution
	// (e.g. "anthropic"). Empty if not reported.
	Provider string `json:"provider,omitempty" db:"provider"`

	// Model is the model identifier used for this execution
	// (e.g. "claude-sonnet-4"). Empty if not reported.
	Model string `json:"model,omitempty" db:"model"`

	// Status is the current lifecycle state of the execution.
	// See [ExecutionStatus] for valid values.
	Status ExecutionStatus `json:"status" db:"status"`

	// Attempts is the number of attempts made, including the first.
	// Zero until the first attempt starts.
	Attempts int `json:"attempts" db:"attempts"`

	// StartTime is the UTC timestamp when the execution began.
	// Set to the creation time by [NewExecution].
	StartTime time.Time `json:"start_time" db:"start_time"`

	// EndTime is the UTC timestamp when the execution reached a
	// terminal state. Nil while the execution is still in flight.
	EndTime *time.Time `json:"end_time,omitempty" db:"end_time"`

	// TokensUsed is the total number of tokens consumed (input +
	// output). Zero until the execution reports usage.
	TokensUsed int `json:"tokens_used,omitempty" db:"tokens_used"`

	// CostUSD is the cost attributed to this execution in USD.
	CostUSD float64 `json:"cost_usd,omitempty" db:"cost_usd"`

	// ErrorCode is the platform error code when the execution failed.
	// Empty for successful executions.
	ErrorCode string `json:"error_code,omitempty" db:"error_code"`

	// ErrorMessage contains the error details when the execution has
	// failed. Empty for non-failed executions.
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`

	// Metadata is an extensible key-value store for caller-specific
	// data. Nil metadata is normalized to an empty map by
	// [NewExecution], so this field is always present in JSON output
	// for constructor-created executions.
	Metadata map[string]any `json:"metadata" db:"metadata"`

	// CreatedAt is the UTC timestamp when the record was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the UTC timestamp when the record was last modified.
	// Updated on every status change.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewExecution creates a new Execution record with a generated UUID,
// pending status, and UTC timestamps. The metadata map is initialized
// to an empty map.
//
// Returns an error if sessionID or taskName is empty. These fields are
// required because they are essential for audit trails and cannot be
// meaningfully defaulted.
func NewExecution(sessionID, taskName string) (*Execution, error) {
	if sessionID == "" {
		return nil, sserr.New(sserr.CodeValidationRequired,
			"models: execution session ID must not be empty")
	}
	if taskName == "" {
		return nil, sserr.New(sserr.CodeValidationRequired,
			"models: execution task name must not be empty")
	}

	now := time.Now().UTC()
	return &Execution{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		TaskName:  taskName,
		Status:    ExecutionStatusPending,
		StartTime: now,
		Metadata:  make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TransitionTo moves the execution to a new status, validating the
// transition against the state machine. On success it updates
// UpdatedAt and, for terminal statuses, sets EndTime.
//
// Returns a [sserr.CodeConflict] error for transitions the matrix does
// not allow, and a [sserr.CodeValidation] error for unrecognized
// statuses.
func (e *Execution) TransitionTo(status ExecutionStatus) error {
	if !status.Valid() {
		return sserr.Newf(sserr.CodeValidation,
			"models: unrecognized execution status %q", status)
	}
	if !ValidTransition(e.Status, status) {
		return sserr.Newf(sserr.CodeConflict,
			"models: invalid execution status transition %s -> %s", e.Status, status)
	}

	now := time.Now().UTC()
	e.Status = status
	e.UpdatedAt = now
	if status.IsTerminal() {
		e.EndTime = &now
	}
	return nil
}

// Validate checks that all required fields are present and that the
// status is a recognized value. Returns the first validation error
// encountered, or nil if the execution is valid.
func (e *Execution) Validate() error {
	if e.ID == "" {
		return sserr.New(sserr.CodeValidationRequired, "models: execution ID is required")
	}
	if e.SessionID == "" {
		return sserr.New(sserr.CodeValidationRequired, "models: execution session ID is required")
	}
	if e.TaskName == "" {
		return sserr.New(sserr.CodeValidationRequired, "models: execution task name is required")
	}
	if !e.Status.Valid() {
		return sserr.Newf(sserr.CodeValidation, "models: invalid execution status %q", e.Status)
	}
	if e.StartTime.IsZero() {
		return sserr.New(sserr.CodeValidationRequired, "models: execution start time is required")
	}
	if e.CreatedAt.IsZero() {
		return sserr.New(sserr.CodeValidationRequired, "models: execution created_at is required")
	}
	if e.UpdatedAt.IsZero() {
		return sserr.New(sserr.CodeValidationRequired, "models: execution updated_at is required")
	}
	if e.Attempts < 0 {
		return sserr.Newf(sserr.CodeValidationRange,
			"models: execution attempts must not be negative, got %d", e.Attempts)
	}
	if e.TokensUsed < 0 {
		return sserr.Newf(sserr.CodeValidationRange,
			"models: execution tokens_used must not be negative, got %d", e.TokensUsed)
	}
	if e.CostUSD < 0 {
		return sserr.Newf(sserr.CodeValidationRange,
			"models: execution cost_usd must not be negative, got %v", e.CostUSD)
	}
	return nil
}

// IsTerminal reports whether the execution has reached a final state
// from which no further transitions are possible.
func (e *Execution) IsTerminal() bool {
	return e.Status.IsTerminal()
}

// Duration returns the wall-clock duration of the execution. If the
// execution has an EndTime, the duration is calculated from StartTime
// to EndTime. If the execution is still in progress (EndTime is nil),
// the duration is calculated from StartTime to the current time.
//
// Returns zero if StartTime is zero.
func (e *Execution) Duration() time.Duration {
	if e.StartTime.IsZero() {
		return 0
	}
	if e.EndTime != nil {
		return e.EndTime.Sub(e.StartTime)
	}
	return time.Since(e.StartTime)
}
