// Package guardrail provides the engine's content validation pipeline:
// independently pluggable checks ([Guardrail]) composed into a [Chain]
// that decides whether execution should be blocked.
//
// Each guardrail inspects an [Input] (content plus the owning session)
// and returns a [Result] with a pass/fail verdict and a [Severity]. The
// chain runs its guardrails sequentially or in parallel, aggregates the
// failing results, and reports whether the highest failing severity
// crosses the chain's blocking threshold. A guardrail that returns an
// error or panics is converted to a critical failing result, so one
// broken check cannot crash the pipeline.
//
// Builtin guardrails ([MaxLength], [DenyPatterns], [TokenBudget]) cover
// common checks; anything implementing [Guardrail] can join a chain.
package guardrail

import (
	"context"
	"time"

	"github.com/StricklySoft/stricklysoft-engine/pkg/session"
)

// Severity classifies how serious a failing guardrail result is. The
// total order is [SeverityInfo] < [SeverityWarning] < [SeverityError] <
// [SeverityCritical]; a chain blocks when any failing result reaches
// its blocking threshold.
type Severity string

const (
	// SeverityInfo marks advisory findings that never block on their own.
	SeverityInfo Severity = "info"

	// SeverityWarning marks findings worth surfacing but usually not
	// blocking.
	SeverityWarning Severity = "warning"

	// SeverityError marks findings that should block under the default
	// threshold.
	SeverityError Severity = "error"

	// SeverityCritical marks the most serious findings, including
	// guardrail implementation failures.
	SeverityCritical Severity = "critical"
)

// severityRank positions each severity in the total order. Unknown
// severities rank below info.
var severityRank = map[Severity]int{
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityError:    3,
	SeverityCritical: 4,
}

// String returns the severity's string form.
func (s Severity) String() string {
	return string(s)
}

// Valid reports whether the severity is one of the defined values.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether the severity is equal to or more serious than
// other in the total order.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// Input is what a guardrail inspects: the content under validation and
// the session it belongs to. Session may carry the budget and token
// totals that session-aware guardrails like [TokenBudget] check.
type Input struct {
	// Content is the text under validation.
	Content string

	// Session is the owning session, or nil when no session applies.
	Session *session.Context
}

// Result is one guardrail's verdict on an [Input].
type Result struct {
	// Passed reports whether the content cleared the check.
	Passed bool

	// Severity classifies a failing result. Ignored when Passed.
	Severity Severity

	// Message is a human-readable explanation of the verdict.
	Message string

	// Details carries optional structured findings (matched pattern,
	// measured length, error code).
	Details map[string]any

	// GuardrailName identifies the guardrail that produced the result.
	// Filled in by the chain when a guardrail leaves it empty.
	GuardrailName string

	// Timestamp is when the result was produced. Filled in by the
	// chain when a guardrail leaves it zero.
	Timestamp time.Time
}

// Pass returns a passing [Result].
func Pass() Result {
	return Result{Passed: true, Timestamp: time.Now().UTC()}
}

// Fail returns a failing [Result] with the given severity and message.
func Fail(severity Severity, message string) Result {
	return Result{
		Passed:    false,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Guardrail is one pluggable content check. Implementations must be
// safe for concurrent use: a parallel [Chain] evaluates its guardrails
// from multiple goroutines.
//
// Evaluate may return an error or panic; the chain converts either into
// a critical failing [Result] instead of propagating it.
type Guardrail interface {
	// Name identifies the guardrail in results, logs, and spans.
	Name() string

	// Enabled reports whether the chain should run this guardrail.
	// Disabled guardrails are skipped entirely.
	Enabled() bool

	// Evaluate inspects the input and returns a verdict.
	Evaluate(ctx context.Context, input Input) (Result, error)
}
