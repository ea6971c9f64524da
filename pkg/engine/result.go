package engine

import (
	"time"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
)

// Metadata carries the measurable facts of an execution: which model
// ran, what it consumed, how long it took, and how many attempts were
// made. Metadata is monotonically accumulable via [Metadata.Merge].
type Metadata struct {
	// Provider is the model provider that served the execution.
	Provider string

	// Model is the model identifier that served the execution.
	Model string

	// InputTokens is the number of prompt tokens consumed.
	InputTokens int

	// OutputTokens is the number of completion tokens produced.
	OutputTokens int

	// CostUSD is the cost attributed to the execution in USD.
	CostUSD float64

	// Duration is the wall-clock time spent, including retries and
	// backoff waits once the engine finalizes the result.
	Duration time.Duration

	// Attempts is the number of attempts made, including the first.
	Attempts int
}

// TotalTokens returns the sum of input and output tokens.
func (m Metadata) TotalTokens() int {
	return m.InputTokens + m.OutputTokens
}

// Merge combines two metadata values: numeric fields (tokens, cost,
// duration, attempts) are summed, and the most recent non-empty
// provider/model win. The receiver is unchanged.
func (m Metadata) Merge(other Metadata) Metadata {
	merged := Metadata{
		Provider:     m.Provider,
		Model:        m.Model,
		InputTokens:  m.InputTokens + other.InputTokens,
		OutputTokens: m.OutputTokens + other.OutputTokens,
		CostUSD:      m.CostUSD + other.CostUSD,
		Duration:     m.Duration + other.Duration,
		Attempts:     m.Attempts + other.Attempts,
	}
	if other.Provider != "" {
		merged.Provider = other.Provider
	}
	if other.Model != "" {
		merged.Model = other.Model
	}
	return merged
}

// Result is the outcome of one execution: either a success carrying a
// value, or a failure carrying an error. Both variants carry [Metadata]
// and a success may carry informational warnings (for example that it
// needed retries).
//
// Construct results with [Success] and [Failure]; inspect them with
// [Result.IsSuccess], [Result.Value], and [Result.Err]. The zero value
// is a failure with a nil error — always use the constructors.
type Result[O any] struct {
	value    O
	err      error
	metadata Metadata
	warnings []string
	success  bool
}

// Success returns a successful result carrying value.
func Success[O any](value O) Result[O] {
	return Result[O]{value: value, success: true}
}

// Failure returns a failed result carrying err.
func Failure[O any](err error) Result[O] {
	return Result[O]{err: err}
}

// IsSuccess reports whether the result is a success.
func (r Result[O]) IsSuccess() bool {
	return r.success
}

// Value returns the success value, or the zero value for failures.
func (r Result[O]) Value() O {
	return r.value
}

// Err returns the failure error, or nil for successes.
func (r Result[O]) Err() error {
	return r.err
}

// Code returns the platform error code of a failure, or
// [sserr.CodeUnknown] when the failure carries no structured code.
// Returns "" for successes.
func (r Result[O]) Code() sserr.Code {
	if r.success {
		return ""
	}
	return sserr.CodeOrUnknown(r.err)
}

// Metadata returns the result's accumulated metadata.
func (r Result[O]) Metadata() Metadata {
	return r.metadata
}

// Warnings returns a copy of the result's informational warnings.
func (r Result[O]) Warnings() []string {
	out := make([]string, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// WithMetadata returns a copy of the result with its metadata replaced.
func (r Result[O]) WithMetadata(md Metadata) Result[O] {
	r.metadata = md
	return r
}

// WithWarning returns a copy of the result with a warning appended.
func (r Result[O]) WithWarning(warning string) Result[O] {
	warnings := make([]string, len(r.warnings), len(r.warnings)+1)
	copy(warnings, r.warnings)
	r.warnings = append(warnings, warning)
	return r
}
