package engine

import (
	"context"

	"github.com/StricklySoft/stricklysoft-engine/pkg/session"
)

// Report is the type-erased outcome view handed to [Hooks.AfterExecute].
// It exposes what non-generic observers need without the result's typed
// value.
type Report struct {
	// Success reports whether the execution succeeded.
	Success bool

	// Err is the failure error, nil on success.
	Err error

	// Metadata is the result's accumulated metadata.
	Metadata Metadata

	// Warnings are the result's informational warnings.
	Warnings []string
}

// Hooks observes the engine's execution lifecycle. The engine invokes
// hooks around every attempt, including retried ones.
//
// Failure semantics differ per hook:
//   - BeforeExecute runs before any task side effect, so its error
//     becomes the attempt's failure (wrapped as a hook failure) and
//     feeds the retry policy.
//   - AfterExecute runs only after a successful attempt; its error is
//     logged and swallowed so it can never mask a legitimate success.
//   - OnError runs after a failed attempt; its error is logged and
//     swallowed so it can never mask the true failure cause.
//
// Embed [NoopHooks] to implement only the methods you need. Hooks are
// selected at engine construction ([WithHooks]) and must be safe for
// concurrent use when the engine serves parallel fan-outs.
type Hooks interface {
	// BeforeExecute is invoked before each attempt.
	BeforeExecute(ctx context.Context, task TaskInfo, sess *session.Context) error

	// AfterExecute is invoked after each successful attempt.
	AfterExecute(ctx context.Context, task TaskInfo, report Report, sess *session.Context) error

	// OnError is invoked after each failed attempt with the attempt's
	// error.
	OnError(ctx context.Context, task TaskInfo, err error, sess *session.Context) error
}

// NoopHooks is the null-object [Hooks] implementation. It is the
// engine's default, and embedding it lets custom hooks override only
// the lifecycle points they care about.
type NoopHooks struct{}

var _ Hooks = NoopHooks{}

// BeforeExecute implements [Hooks].
func (NoopHooks) BeforeExecute(context.Context, TaskInfo, *session.Context) error {
	return nil
}

// AfterExecute implements [Hooks].
func (NoopHooks) AfterExecute(context.Context, TaskInfo, Report, *session.Context) error {
	return nil
}

// OnError implements [Hooks].
func (NoopHooks) OnError(context.Context, TaskInfo, error, *session.Context) error {
	return nil
}
