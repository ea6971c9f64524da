// Package engine orchestrates task execution under the platform's
// resilience policies: budget limits, timeouts, retries with backoff,
// and lifecycle hooks.
//
// The engine itself ([Engine]) is non-generic configuration — hooks,
// logger, recorder, default [Config] — while execution happens through
// the free generic functions [Execute], [Execute2] through [Execute4],
// and [ExecuteAll], so one engine serves heterogeneously typed tasks.
//
// One call to [Execute] runs this state machine:
//
//	budget check → before-hook → execute (timeout race) → after-hook
//	                                    ↘ error-hook → retry or fail
//
// The engine never panics and never returns a Go error from [Execute]:
// every outcome, including budget exhaustion, timeouts, panics inside
// the task, and hook failures, surfaces as a [Result].
package engine

import (
	"context"

	"github.com/StricklySoft/stricklysoft-engine/pkg/session"
)

// ModelRef identifies the provider and model a task targets. It is
// carried for diagnostics and audit records only; the engine never
// changes behavior based on it.
type ModelRef struct {
	// Provider is the model provider (e.g. "anthropic").
	Provider string

	// Model is the provider-specific model identifier.
	Model string
}

// TaskInfo is the type-erased task descriptor handed to [Hooks] and
// recorded on audit rows. It lets non-generic collaborators observe
// generically typed tasks.
type TaskInfo struct {
	// Name identifies the task.
	Name string

	// Model is the task's model descriptor.
	Model ModelRef
}

// Task is the unit of work the engine orchestrates. Implementations
// hold the business logic (building a prompt, calling a model, parsing
// a response); the engine supplies budget, timeout, retry, and hook
// semantics around Execute.
//
// Execute receives the context the engine derived for this attempt;
// when a timeout or caller cancellation fires, the context is canceled.
// Tasks that ignore their context are abandoned on timeout and may run
// to completion in the background — see [Config.Timeout].
//
// Execute must not panic; if it does, the engine recovers and converts
// the panic into a failure result.
type Task[I, O any] interface {
	// Name identifies the task for diagnostics, hooks, and audit
	// records.
	Name() string

	// Model describes the provider/model the task targets.
	Model() ModelRef

	// Execute runs the task once.
	Execute(ctx context.Context, input I, sess *session.Context) Result[O]
}

// taskFunc adapts a plain function into a [Task].
type taskFunc[I, O any] struct {
	name  string
	model ModelRef
	fn    func(ctx context.Context, input I, sess *session.Context) Result[O]
}

// NewTask wraps a function as a [Task] with the given name and model
// descriptor.
//
// Example:
//
//	summarize := engine.NewTask("summarize",
//	    engine.ModelRef{Provider: "anthropic", Model: "claude-sonnet-4"},
//	    func(ctx context.Context, text string, sess *session.Context) engine.Result[string] {
//	        return engine.Success("summary of " + text)
//	    })
func NewTask[I, O any](name string, model ModelRef, fn func(ctx context.Context, input I, sess *session.Context) Result[O]) Task[I, O] {
	return &taskFunc[I, O]{name: name, model: model, fn: fn}
}

func (t *taskFunc[I, O]) Name() string {
	return t.name
}

func (t *taskFunc[I, O]) Model() ModelRef {
	return t.model
}

func (t *taskFunc[I, O]) Execute(ctx context.Context, input I, sess *session.Context) Result[O] {
	return t.fn(ctx, input, sess)
}
