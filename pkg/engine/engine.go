package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
	"github.com/StricklySoft/stricklysoft-engine/pkg/models"
	"github.com/StricklySoft/stricklysoft-engine/pkg/retry"
	"github.com/StricklySoft/stricklysoft-engine/pkg/session"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/StricklySoft/stricklysoft-engine/pkg/engine"

// Recorder receives the finalized audit record of every engine call.
// Implementations typically persist records (see pkg/store/postgres).
// Recorder failures are logged by the engine and never surface to the
// caller. Must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, exec *models.Execution) error
}

// Engine holds the execution collaborators shared across calls: hooks,
// logger, recorder, and the default [Config]. An Engine is immutable
// after [New] and safe for concurrent use; execution happens through
// the free functions [Execute], [Execute2] through [Execute4], and
// [ExecuteAll].
type Engine struct {
	hooks    Hooks
	logger   *slog.Logger
	recorder Recorder
	defaults Config
	tracer   trace.Tracer
}

// Option configures an [Engine] during construction with [New].
type Option func(*Engine)

// WithHooks sets the lifecycle hooks invoked around every attempt.
// Defaults to [NoopHooks].
func WithHooks(hooks Hooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithLogger sets the engine's logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithRecorder sets the audit recorder receiving every execution's
// finalized [models.Execution]. No recording happens without one.
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// WithDefaults sets the engine's default [Config], used whenever a
// call passes a nil config.
func WithDefaults(cfg Config) Option {
	return func(e *Engine) { e.defaults = cfg }
}

// New constructs an [Engine]. Returns a [sserr.CodeValidation] error
// when the default config is invalid.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		hooks:  NoopHooks{},
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if err := e.defaults.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Execute runs one task under the engine's policies and returns its
// result. It never returns a Go error and never panics: budget
// exhaustion, timeouts, task panics, hook failures, and cancellation
// all surface as a failure [Result] with a structured error code.
//
// cfg overrides the engine's default [Config] for this call; pass nil
// to use the defaults.
//
// The call proceeds as:
//  1. Pre-flight budget check — a session already at its ceiling fails
//     with [sserr.CodeBudgetExceeded] before any hook or task runs.
//  2. Before-hook — its failure is the attempt's failure.
//  3. Task execution, raced against cfg.Timeout when set.
//  4. After-hook (success) or error-hook (failure) — failures here are
//     logged and swallowed.
//  5. On failure, the retry policy decides whether to back off and
//     re-attempt; an eventual success carries a warning noting how
//     many retries it needed.
func Execute[I, O any](ctx context.Context, eng *Engine, task Task[I, O], input I, sess *session.Context, cfg *Config) Result[O] {
	if task == nil {
		return Failure[O](sserr.New(sserr.CodeValidationRequired,
			"engine: task must not be nil"))
	}
	if sess == nil {
		return Failure[O](sserr.New(sserr.CodeValidationRequired,
			"engine: session must not be nil"))
	}

	conf := eng.defaults
	if cfg != nil {
		conf = *cfg
	}
	if err := conf.Validate(); err != nil {
		return Failure[O](err)
	}

	info := TaskInfo{Name: task.Name(), Model: task.Model()}

	ctx, span := eng.tracer.Start(ctx, "engine.execute",
		trace.WithAttributes(
			attribute.String("task.name", info.Name),
			attribute.String("task.provider", info.Model.Provider),
			attribute.String("task.model", info.Model.Model),
			attribute.String("session.id", sess.SessionID()),
		),
	)
	defer span.End()

	rec := eng.newRecord(ctx, sess, info, conf)
	start := time.Now()

	// Pre-flight budget check. Read-then-act: not atomic with respect
	// to concurrent recorders sharing this session snapshot.
	if sess.IsBudgetExceeded() {
		err := sserr.Newf(sserr.CodeBudgetExceeded,
			"engine: session %s budget of $%.6f already spent ($%.6f)",
			sess.SessionID(), sess.Budget(), sess.TotalCost())
		result := Failure[O](err).WithMetadata(Metadata{Duration: time.Since(start)})
		eng.finalize(ctx, span, rec, report(result), models.ExecutionStatusCanceled)
		return result
	}

	result := runAttempts(ctx, eng, task, input, sess, conf, info, rec)
	result = result.WithMetadata(mergeDuration(result.Metadata(), time.Since(start)))
	eng.finalize(ctx, span, rec, report(result), terminalStatus(result.Err(), result.IsSuccess()))
	return result
}

// runAttempts drives the retry loop: the first attempt plus up to
// MaxRetries retried ones, with a context-aware backoff wait between
// them.
func runAttempts[I, O any](ctx context.Context, eng *Engine, task Task[I, O], input I, sess *session.Context, conf Config, info TaskInfo, rec *models.Execution) Result[O] {
	policy := conf.Retry

	var result Result[O]
	for attempt := 0; ; attempt++ {
		eng.transition(ctx, rec, models.ExecutionStatusRunning)
		if rec != nil {
			rec.Attempts = attempt + 1
		}

		result = runOnce(ctx, eng, task, input, sess, conf, info)
		md := result.Metadata()
		md.Attempts = attempt + 1
		result = result.WithMetadata(md)

		if result.IsSuccess() {
			if attempt > 0 {
				result = result.WithWarning(fmt.Sprintf("Succeeded after %d retries", attempt))
			}
			return result
		}

		err := result.Err()
		next := attempt + 1
		if !policy.ShouldAttemptRetry(next) || !policy.IsRetryable(err) {
			return result
		}

		delay, delayErr := policy.CalculateDelay(next)
		if delayErr != nil {
			return result
		}
		eng.transition(ctx, rec, models.ExecutionStatusRetrying)
		eng.logger.DebugContext(ctx, "backing off before retry",
			"task", info.Name,
			"attempt", next,
			"delay", delay,
			"error", err,
		)
		if waitErr := retry.Wait(ctx, delay); waitErr != nil {
			return Failure[O](sserr.Wrapf(waitErr, sserr.CodeExecutionCanceled,
				"engine: canceled while waiting to retry %s", info.Name)).
				WithMetadata(result.Metadata())
		}
	}
}

// runOnce runs a single attempt: before-hook, the timeout race, and
// the after/error hook.
func runOnce[I, O any](ctx context.Context, eng *Engine, task Task[I, O], input I, sess *session.Context, conf Config, info TaskInfo) Result[O] {
	start := time.Now()

	if err := eng.hooks.BeforeExecute(ctx, info, sess); err != nil {
		failure := Failure[O](sserr.Wrapf(err, sserr.CodeHookBefore,
			"engine: before-hook failed for %s", info.Name))
		eng.notifyError(ctx, info, failure.Err(), sess)
		return failure.WithMetadata(Metadata{Duration: time.Since(start)})
	}

	result := invoke(ctx, eng, task, input, sess, conf.Timeout, info)
	result = result.WithMetadata(mergeDuration(result.Metadata(), time.Since(start)))

	if result.IsSuccess() {
		if err := eng.hooks.AfterExecute(ctx, info, report(result), sess); err != nil {
			eng.logger.WarnContext(ctx, "after-hook failed; result preserved",
				"task", info.Name,
				"error", sserr.Wrapf(err, sserr.CodeHookAfter,
					"engine: after-hook failed for %s", info.Name),
			)
		}
		return result
	}

	eng.notifyError(ctx, info, result.Err(), sess)
	return result
}

// invoke executes the task, racing it against the configured timeout.
// The attempt's context is canceled when the race is lost, so
// context-honoring tasks stop promptly; others are abandoned. A panic
// inside the task is recovered into a failure.
func invoke[I, O any](ctx context.Context, eng *Engine, task Task[I, O], input I, sess *session.Context, timeout time.Duration, info TaskInfo) Result[O] {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan Result[O], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Failure[O](sserr.Newf(sserr.CodeExecutionPanic,
					"engine: task %s panicked: %v", info.Name, r))
			}
		}()
		done <- task.Execute(runCtx, input, sess)
	}()

	select {
	case result := <-done:
		if !result.IsSuccess() && result.Err() == nil {
			// A task built a failure without an error; normalize so
			// retry classification and reporting have something to
			// work with.
			return Failure[O](sserr.Newf(sserr.CodeExecutionFailed,
				"engine: task %s failed without an error", info.Name)).
				WithMetadata(result.Metadata())
		}
		if !result.IsSuccess() {
			if _, ok := sserr.AsError(result.Err()); !ok {
				// A cooperative task that returned its context error is
				// classified the same as losing the race below, so the
				// outcome does not depend on which select arm fired.
				err := result.Err()
				switch {
				case errors.Is(err, context.Canceled) && ctx.Err() != nil:
					return Failure[O](sserr.Wrapf(err, sserr.CodeExecutionCanceled,
						"engine: execution of %s canceled", info.Name)).
						WithMetadata(result.Metadata())
				case errors.Is(err, context.DeadlineExceeded) && runCtx.Err() != nil:
					return Failure[O](sserr.Newf(sserr.CodeTimeout,
						"engine: task %s exceeded timeout of %v", info.Name, timeout)).
						WithMetadata(result.Metadata())
				}
				return Failure[O](sserr.TaskFailed(result.Err(),
					fmt.Sprintf("engine: task %s failed", info.Name))).
					WithMetadata(result.Metadata())
			}
		}
		return result
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return Failure[O](sserr.Wrapf(ctx.Err(), sserr.CodeExecutionCanceled,
				"engine: execution of %s canceled", info.Name))
		}
		eng.logger.WarnContext(ctx, "task timed out; abandoning attempt",
			"task", info.Name,
			"timeout", timeout,
		)
		return Failure[O](sserr.Newf(sserr.CodeTimeout,
			"engine: task %s exceeded timeout of %v", info.Name, timeout))
	}
}

// notifyError invokes the error-hook, logging and swallowing its
// failure so it can never mask the true failure cause.
func (e *Engine) notifyError(ctx context.Context, info TaskInfo, execErr error, sess *session.Context) {
	if err := e.hooks.OnError(ctx, info, execErr, sess); err != nil {
		e.logger.WarnContext(ctx, "error-hook failed; original failure preserved",
			"task", info.Name,
			"error", sserr.Wrapf(err, sserr.CodeHookError,
				"engine: error-hook failed for %s", info.Name),
		)
	}
}

// newRecord creates the audit record for one call. Record creation
// failures are logged, not propagated; auditing must never break
// execution.
func (e *Engine) newRecord(ctx context.Context, sess *session.Context, info TaskInfo, conf Config) *models.Execution {
	rec, err := models.NewExecution(sess.SessionID(), info.Name)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to create execution record", "error", err)
		return nil
	}
	rec.Provider = info.Model.Provider
	rec.Model = info.Model.Model
	for k, v := range conf.Metadata {
		rec.Metadata[k] = v
	}
	return rec
}

// transition advances the audit record's status, tolerating rejected
// transitions (for example running → running on the first loop pass
// after a retry).
func (e *Engine) transition(ctx context.Context, rec *models.Execution, status models.ExecutionStatus) {
	if rec == nil || rec.Status == status {
		return
	}
	if err := rec.TransitionTo(status); err != nil {
		e.logger.ErrorContext(ctx, "execution record transition rejected",
			"execution_id", rec.ID,
			"from", rec.Status.String(),
			"to", status.String(),
			"error", err,
		)
	}
}

// finalize closes the span, completes the audit record, and hands it
// to the recorder.
func (e *Engine) finalize(ctx context.Context, span trace.Span, rec *models.Execution, rep Report, status models.ExecutionStatus) {
	if rep.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.RecordError(rep.Err)
		span.SetStatus(codes.Error, rep.Err.Error())
	}
	span.SetAttributes(
		attribute.Bool("execution.success", rep.Success),
		attribute.Int("execution.attempts", rep.Metadata.Attempts),
		attribute.Int("execution.tokens", rep.Metadata.TotalTokens()),
	)

	if rec == nil {
		return
	}
	e.transition(ctx, rec, status)
	rec.TokensUsed = rep.Metadata.TotalTokens()
	rec.CostUSD = rep.Metadata.CostUSD
	if !rep.Success {
		rec.ErrorCode = string(sserr.CodeOrUnknown(rep.Err))
		rec.ErrorMessage = rep.Err.Error()
	}

	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(ctx, rec); err != nil {
		e.logger.ErrorContext(ctx, "failed to record execution",
			"execution_id", rec.ID,
			"error", err,
		)
	}
}

// terminalStatus maps an outcome to the audit record's terminal status.
func terminalStatus(err error, success bool) models.ExecutionStatus {
	if success {
		return models.ExecutionStatusCompleted
	}
	switch {
	case sserr.HasCode(err, sserr.CodeTimeout):
		return models.ExecutionStatusTimeout
	case sserr.HasCode(err, sserr.CodeExecutionCanceled):
		return models.ExecutionStatusCanceled
	default:
		return models.ExecutionStatusFailed
	}
}

// report builds the type-erased outcome view of a result.
func report[O any](r Result[O]) Report {
	return Report{
		Success:  r.IsSuccess(),
		Err:      r.Err(),
		Metadata: r.Metadata(),
		Warnings: r.Warnings(),
	}
}

// mergeDuration replaces the metadata's duration with the measured
// one. Task-reported durations are overwritten because the engine's
// wall clock includes hook and backoff time.
func mergeDuration(md Metadata, d time.Duration) Metadata {
	md.Duration = d
	return md
}
