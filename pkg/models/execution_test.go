package models

import (
	"encoding/json"
	"testing"
	"time"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
)

// mustNewExecution creates an Execution, failing the test if construction
// returns an error.
func mustNewExecution(t *testing.T, sessionID, taskName string) *Execution {
	t.Helper()
	exec, err := NewExecution(sessionID, taskName)
	if err != nil {
		t.Fatalf("NewExecution(%q, %q) unexpected error: %v", sessionID, taskName, err)
	}
	return exec
}

// ---------------------------------------------------------------------------
// ExecutionStatus
// ---------------------------------------------------------------------------

func TestExecutionStatus_String(t *testing.T) {
	tests := []struct {
		name     string
		status   ExecutionStatus
		expected string
	}{
		{name: "pending", status: ExecutionStatusPending, expected: "pending"},
		{name: "running", status: ExecutionStatusRunning, expected: "running"},
		{name: "retrying", status: ExecutionStatusRetrying, expected: "retrying"},
		{name: "completed", status: ExecutionStatusCompleted, expected: "completed"},
		{name: "failed", status: ExecutionStatusFailed, expected: "failed"},
		{name: "canceled", status: ExecutionStatusCanceled, expected: "canceled"},
		{name: "timeout", status: ExecutionStatusTimeout, expected: "timeout"},
		{name: "custom", status: ExecutionStatus("custom"), expected: "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.String(); got != tt.expected {
				t.Errorf("ExecutionStatus.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExecutionStatus_Valid(t *testing.T) {
	tests := []struct {
		name     string
		status   ExecutionStatus
		expected bool
	}{
		{name: "pending is valid", status: ExecutionStatusPending, expected: true},
		{name: "running is valid", status: ExecutionStatusRunning, expected: true},
		{name: "retrying is valid", status: ExecutionStatusRetrying, expected: true},
		{name: "completed is valid", status: ExecutionStatusCompleted, expected: true},
		{name: "failed is valid", status: ExecutionStatusFailed, expected: true},
		{name: "canceled is valid", status: ExecutionStatusCanceled, expected: true},
		{name: "timeout is valid", status: ExecutionStatusTimeout, expected: true},
		{name: "empty is invalid", status: ExecutionStatus(""), expected: false},
		{name: "unknown is invalid", status: ExecutionStatus("paused"), expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.expected {
				t.Errorf("ExecutionStatus.Valid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		status   ExecutionStatus
		expected bool
	}{
		{name: "pending is not terminal", status: ExecutionStatusPending, expected: false},
		{name: "running is not terminal", status: ExecutionStatusRunning, expected: false},
		{name: "retrying is not terminal", status: ExecutionStatusRetrying, expected: false},
		{name: "completed is terminal", status: ExecutionStatusCompleted, expected: true},
		{name: "failed is terminal", status: ExecutionStatusFailed, expected: true},
		{name: "canceled is terminal", status: ExecutionStatusCanceled, expected: true},
		{name: "timeout is terminal", status: ExecutionStatusTimeout, expected: true},
		{name: "unknown is not terminal", status: ExecutionStatus("paused"), expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("ExecutionStatus.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ValidTransition
// ---------------------------------------------------------------------------

func TestValidTransition_AllowedMatrix(t *testing.T) {
	allowed := []struct {
		from ExecutionStatus
		to   ExecutionStatus
	}{
		{ExecutionStatusPending, ExecutionStatusRunning},
		{ExecutionStatusPending, ExecutionStatusCanceled},
		{ExecutionStatusRunning, ExecutionStatusRetrying},
		{ExecutionStatusRunning, ExecutionStatusCompleted},
		{ExecutionStatusRunning, ExecutionStatusFailed},
		{ExecutionStatusRunning, ExecutionStatusCanceled},
		{ExecutionStatusRunning, ExecutionStatusTimeout},
		{ExecutionStatusRetrying, ExecutionStatusRunning},
		{ExecutionStatusRetrying, ExecutionStatusFailed},
		{ExecutionStatusRetrying, ExecutionStatusCanceled},
	}
	for _, tt := range allowed {
		if !ValidTransition(tt.from, tt.to) {
			t.Errorf("ValidTransition(%s, %s) = false, want true", tt.from, tt.to)
		}
	}
}

func TestValidTransition_Rejected(t *testing.T) {
	rejected := []struct {
		name string
		from ExecutionStatus
		to   ExecutionStatus
	}{
		{"same state", ExecutionStatusRunning, ExecutionStatusRunning},
		{"skip running", ExecutionStatusPending, ExecutionStatusCompleted},
		{"pending to retrying", ExecutionStatusPending, ExecutionStatusRetrying},
		{"pending to timeout", ExecutionStatusPending, ExecutionStatusTimeout},
		{"retrying to completed", ExecutionStatusRetrying, ExecutionStatusCompleted},
		{"retrying to timeout", ExecutionStatusRetrying, ExecutionStatusTimeout},
		{"out of terminal completed", ExecutionStatusCompleted, ExecutionStatusRunning},
		{"out of terminal failed", ExecutionStatusFailed, ExecutionStatusRunning},
		{"out of terminal timeout", ExecutionStatusTimeout, ExecutionStatusRetrying},
		{"backwards to pending", ExecutionStatusRunning, ExecutionStatusPending},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			if ValidTransition(tt.from, tt.to) {
				t.Errorf("ValidTransition(%s, %s) = true, want false", tt.from, tt.to)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// NewExecution
// ---------------------------------------------------------------------------

func TestNewExecution(t *testing.T) {
	exec := mustNewExecution(t, "sess-123", "summarize")

	if exec.ID == "" {
		t.Error("ID should not be empty")
	}
	if exec.SessionID != "sess-123" {
		t.Errorf("SessionID = %q, want %q", exec.SessionID, "sess-123")
	}
	if exec.TaskName != "summarize" {
		t.Errorf("TaskName = %q, want %q", exec.TaskName, "summarize")
	}
	if exec.Status != ExecutionStatusPending {
		t.Errorf("Status = %q, want %q", exec.Status, ExecutionStatusPending)
	}
	if exec.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", exec.Attempts)
	}
	if exec.Metadata == nil {
		t.Error("Metadata should not be nil")
	}
	if len(exec.Metadata) != 0 {
		t.Errorf("Metadata should be empty, got %v", exec.Metadata)
	}
	if exec.EndTime != nil {
		t.Error("EndTime should be nil for a new execution")
	}
}

func TestNewExecution_GeneratesUniqueIDs(t *testing.T) {
	a := mustNewExecution(t, "sess-1", "task")
	b := mustNewExecution(t, "sess-1", "task")
	if a.ID == b.ID {
		t.Errorf("two executions share ID %q", a.ID)
	}
}

func TestNewExecution_TimestampsAreUTC(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "task")
	for name, ts := range map[string]time.Time{
		"StartTime": exec.StartTime,
		"CreatedAt": exec.CreatedAt,
		"UpdatedAt": exec.UpdatedAt,
	} {
		if ts.Location() != time.UTC {
			t.Errorf("%s location = %v, want UTC", name, ts.Location())
		}
	}
}

func TestNewExecution_EmptySessionID(t *testing.T) {
	_, err := NewExecution("", "task")
	if err == nil {
		t.Fatal("expected error for empty session ID")
	}
	if code := sserr.GetCode(err); code != sserr.CodeValidationRequired {
		t.Errorf("error code = %v, want %v", code, sserr.CodeValidationRequired)
	}
}

func TestNewExecution_EmptyTaskName(t *testing.T) {
	_, err := NewExecution("sess-1", "")
	if err == nil {
		t.Fatal("expected error for empty task name")
	}
	if code := sserr.GetCode(err); code != sserr.CodeValidationRequired {
		t.Errorf("error code = %v, want %v", code, sserr.CodeValidationRequired)
	}
}

// ---------------------------------------------------------------------------
// TransitionTo
// ---------------------------------------------------------------------------

func TestTransitionTo_FullLifecycle(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "task")

	steps := []ExecutionStatus{
		ExecutionStatusRunning,
		ExecutionStatusRetrying,
		ExecutionStatusRunning,
		ExecutionStatusCompleted,
	}
	for _, status := range steps {
		if err := exec.TransitionTo(status); err != nil {
			t.Fatalf("TransitionTo(%s) unexpected error: %v", status, err)
		}
		if exec.Status != status {
			t.Fatalf("Status = %s, want %s", exec.Status, status)
		}
	}
	if exec.EndTime == nil {
		t.Error("EndTime must be set when reaching a terminal status")
	}
}

func TestTransitionTo_InvalidTransition(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "task")

	err := exec.TransitionTo(ExecutionStatusCompleted)
	if err == nil {
		t.Fatal("expected error for pending -> completed")
	}
	if code := sserr.GetCode(err); code != sserr.CodeConflict {
		t.Errorf("error code = %v, want %v", code, sserr.CodeConflict)
	}
	if exec.Status != ExecutionStatusPending {
		t.Errorf("Status = %s, want pending after rejected transition", exec.Status)
	}
	if exec.EndTime != nil {
		t.Error("EndTime must stay nil after a rejected transition")
	}
}

func TestTransitionTo_UnrecognizedStatus(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "task")

	err := exec.TransitionTo(ExecutionStatus("paused"))
	if err == nil {
		t.Fatal("expected error for unrecognized status")
	}
	if code := sserr.GetCode(err); code != sserr.CodeValidation {
		t.Errorf("error code = %v, want %v", code, sserr.CodeValidation)
	}
}

func TestTransitionTo_TerminalIsFinal(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "task")
	if err := exec.TransitionTo(ExecutionStatusRunning); err != nil {
		t.Fatal(err)
	}
	if err := exec.TransitionTo(ExecutionStatusFailed); err != nil {
		t.Fatal(err)
	}

	if err := exec.TransitionTo(ExecutionStatusRunning); err == nil {
		t.Error("expected error transitioning out of a terminal status")
	}
}

func TestTransitionTo_UpdatesUpdatedAt(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "task")
	before := exec.UpdatedAt

	time.Sleep(time.Millisecond)
	if err := exec.TransitionTo(ExecutionStatusRunning); err != nil {
		t.Fatal(err)
	}
	if !exec.UpdatedAt.After(before) {
		t.Error("UpdatedAt must advance on transition")
	}
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate_ValidExecution(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "task")
	if err := exec.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Execution)
	}{
		{"empty ID", func(e *Execution) { e.ID = "" }},
		{"empty session ID", func(e *Execution) { e.SessionID = "" }},
		{"empty task name", func(e *Execution) { e.TaskName = "" }},
		{"invalid status", func(e *Execution) { e.Status = "bogus" }},
		{"zero start time", func(e *Execution) { e.StartTime = time.Time{} }},
		{"zero created_at", func(e *Execution) { e.CreatedAt = time.Time{} }},
		{"zero updated_at", func(e *Execution) { e.UpdatedAt = time.Time{} }},
		{"negative attempts", func(e *Execution) { e.Attempts = -1 }},
		{"negative tokens", func(e *Execution) { e.TokensUsed = -1 }},
		{"negative cost", func(e *Execution) { e.CostUSD = -0.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := mustNewExecution(t, "sess-1", "task")
			tt.mutate(exec)
			if err := exec.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestValidate_AllStatuses(t *testing.T) {
	for _, status := range []ExecutionStatus{
		ExecutionStatusPending, ExecutionStatusRunning, ExecutionStatusRetrying,
		ExecutionStatusCompleted, ExecutionStatusFailed,
		ExecutionStatusCanceled, ExecutionStatusTimeout,
	} {
		exec := mustNewExecution(t, "sess-1", "task")
		exec.Status = status
		if err := exec.Validate(); err != nil {
			t.Errorf("Validate() with status %s unexpected error: %v", status, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Duration
// ---------------------------------------------------------------------------

func TestDuration_WithEndTime(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "task")
	end := exec.StartTime.Add(2 * time.Second)
	exec.EndTime = &end

	if got := exec.Duration(); got != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", got)
	}
}

func TestDuration_WithoutEndTime(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "task")
	exec.StartTime = time.Now().UTC().Add(-time.Second)
	exec.EndTime = nil

	if got := exec.Duration(); got < time.Second {
		t.Errorf("Duration() = %v, want at least 1s", got)
	}
}

func TestDuration_ZeroStartTime(t *testing.T) {
	exec := &Execution{}
	if got := exec.Duration(); got != 0 {
		t.Errorf("Duration() = %v, want 0", got)
	}
}

// ---------------------------------------------------------------------------
// JSON
// ---------------------------------------------------------------------------

func TestExecution_JSONRoundTrip(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "summarize")
	exec.Provider = "anthropic"
	exec.Model = "claude-sonnet-4"
	exec.Attempts = 2
	exec.TokensUsed = 512
	exec.CostUSD = 0.04
	exec.Metadata["trace_id"] = "abc"

	data, err := json.Marshal(exec)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}

	var decoded Execution
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}

	if decoded.ID != exec.ID {
		t.Errorf("ID = %q, want %q", decoded.ID, exec.ID)
	}
	if decoded.SessionID != exec.SessionID {
		t.Errorf("SessionID = %q, want %q", decoded.SessionID, exec.SessionID)
	}
	if decoded.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q, want claude-sonnet-4", decoded.Model)
	}
	if decoded.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", decoded.Attempts)
	}
	if decoded.CostUSD != 0.04 {
		t.Errorf("CostUSD = %v, want 0.04", decoded.CostUSD)
	}
	if decoded.Metadata["trace_id"] != "abc" {
		t.Errorf("Metadata[trace_id] = %v, want abc", decoded.Metadata["trace_id"])
	}
}

func TestExecution_JSONOmitsEmptyOptionalFields(t *testing.T) {
	exec := mustNewExecution(t, "sess-1", "task")

	data, err := json.Marshal(exec)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}

	for _, field := range []string{"provider", "model", "end_time", "tokens_used", "cost_usd", "error_code", "error_message"} {
		if _, present := raw[field]; present {
			t.Errorf("field %q should be omitted when empty", field)
		}
	}
	if _, present := raw["metadata"]; !present {
		t.Error("metadata should always be present for constructor-created executions")
	}
}
