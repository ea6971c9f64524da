package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
	"github.com/StricklySoft/stricklysoft-engine/pkg/models"
	"github.com/StricklySoft/stricklysoft-engine/pkg/retry"
	"github.com/StricklySoft/stricklysoft-engine/pkg/session"
)

// ---------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------

// recordingHooks appends every lifecycle event it observes, optionally
// failing at selected points.
type recordingHooks struct {
	mu        sync.Mutex
	calls     []string
	beforeErr error
	afterErr  error
	onErrErr  error
}

func (h *recordingHooks) BeforeExecute(_ context.Context, task TaskInfo, _ *session.Context) error {
	h.record("before:" + task.Name)
	return h.beforeErr
}

func (h *recordingHooks) AfterExecute(_ context.Context, task TaskInfo, _ Report, _ *session.Context) error {
	h.record("after:" + task.Name)
	return h.afterErr
}

func (h *recordingHooks) OnError(_ context.Context, task TaskInfo, _ error, _ *session.Context) error {
	h.record("error:" + task.Name)
	return h.onErrErr
}

func (h *recordingHooks) record(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, event)
}

func (h *recordingHooks) events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.calls))
	copy(out, h.calls)
	return out
}

// captureRecorder stores every record it receives, optionally failing.
type captureRecorder struct {
	mu      sync.Mutex
	records []*models.Execution
	err     error
}

func (r *captureRecorder) Record(_ context.Context, exec *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, exec)
	return r.err
}

func (r *captureRecorder) last(t *testing.T) *models.Execution {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.records)
	return r.records[len(r.records)-1]
}

func newTestSession(t *testing.T, opts ...session.Option) *session.Context {
	t.Helper()
	sess, err := session.New(opts...)
	require.NoError(t, err)
	return sess
}

// fastRetry retries quickly so retry tests stay fast and deterministic.
func fastRetry(maxRetries int, codes ...sserr.Code) retry.Policy {
	return retry.Policy{
		MaxRetries:        maxRetries,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 1.0,
		RetryableCodes:    codes,
	}
}

var testModel = ModelRef{Provider: "anthropic", Model: "claude-sonnet-4"}

func echoTask(name string) Task[string, string] {
	return NewTask(name, testModel,
		func(_ context.Context, input string, _ *session.Context) Result[string] {
			return Success("echo: " + input)
		})
}

// ---------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)
	require.NotNil(t, eng)
	assert.NotNil(t, eng.hooks)
	assert.NotNil(t, eng.logger)
}

func TestNew_InvalidDefaults(t *testing.T) {
	_, err := New(WithDefaults(Config{Timeout: -time.Second}))
	require.Error(t, err)
	assert.True(t, sserr.HasCode(err, sserr.CodeValidationRange))
}

// ---------------------------------------------------------------------
// Basic execution
// ---------------------------------------------------------------------

func TestExecute_Success(t *testing.T) {
	hooks := &recordingHooks{}
	recorder := &captureRecorder{}
	eng, err := New(WithHooks(hooks), WithRecorder(recorder))
	require.NoError(t, err)
	sess := newTestSession(t)

	result := Execute(context.Background(), eng, echoTask("echo"), "hello", sess, nil)

	require.True(t, result.IsSuccess())
	assert.Equal(t, "echo: hello", result.Value())
	assert.Equal(t, 1, result.Metadata().Attempts)
	assert.Empty(t, result.Warnings())
	assert.Equal(t, []string{"before:echo", "after:echo"}, hooks.events())

	rec := recorder.last(t)
	assert.Equal(t, models.ExecutionStatusCompleted, rec.Status)
	assert.Equal(t, sess.SessionID(), rec.SessionID)
	assert.Equal(t, "echo", rec.TaskName)
	assert.Equal(t, "anthropic", rec.Provider)
	assert.Equal(t, 1, rec.Attempts)
	assert.Empty(t, rec.ErrorCode)
}

func TestExecute_NilTask(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	result := Execute[string, string](context.Background(), eng, nil, "in", newTestSession(t), nil)

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeValidationRequired, result.Code())
}

func TestExecute_NilSession(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	result := Execute(context.Background(), eng, echoTask("echo"), "in", nil, nil)

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeValidationRequired, result.Code())
}

func TestExecute_InvalidCallConfig(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	result := Execute(context.Background(), eng, echoTask("echo"), "in", newTestSession(t),
		&Config{Timeout: -time.Second})

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeValidationRange, result.Code())
}

func TestExecute_UncodedTaskErrorWrapped(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)
	cause := errors.New("connection reset")
	task := NewTask("flaky", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			return Failure[string](cause)
		})

	result := Execute(context.Background(), eng, task, "in", newTestSession(t), nil)

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeExecutionFailed, result.Code())
	assert.ErrorIs(t, result.Err(), cause)
}

func TestExecute_FailureWithoutError(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)
	task := NewTask("broken", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			return Result[string]{} // zero value, not from a constructor
		})

	result := Execute(context.Background(), eng, task, "in", newTestSession(t), nil)

	require.False(t, result.IsSuccess())
	require.Error(t, result.Err())
	assert.Equal(t, sserr.CodeExecutionFailed, result.Code())
}

// ---------------------------------------------------------------------
// Budget pre-flight
// ---------------------------------------------------------------------

func TestExecute_BudgetExhausted(t *testing.T) {
	hooks := &recordingHooks{}
	recorder := &captureRecorder{}
	eng, err := New(WithHooks(hooks), WithRecorder(recorder))
	require.NoError(t, err)

	sess := newTestSession(t, session.WithBudget(1.00))
	sess, err = sess.RecordCost(session.Cost{Provider: "anthropic", AmountUSD: 1.00})
	require.NoError(t, err)
	require.True(t, sess.IsBudgetExceeded())

	ran := false
	task := NewTask("expensive", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			ran = true
			return Success("never")
		})

	result := Execute(context.Background(), eng, task, "in", sess, nil)

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeBudgetExceeded, result.Code())
	assert.False(t, ran, "task must not run when the budget is spent")
	assert.Empty(t, hooks.events(), "hooks must not fire when the budget is spent")

	rec := recorder.last(t)
	assert.Equal(t, models.ExecutionStatusCanceled, rec.Status)
	assert.Equal(t, string(sserr.CodeBudgetExceeded), rec.ErrorCode)
}

func TestExecute_NoBudgetNeverBlocks(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)
	sess := newTestSession(t) // no budget configured

	result := Execute(context.Background(), eng, echoTask("echo"), "in", sess, nil)

	assert.True(t, result.IsSuccess())
}

// ---------------------------------------------------------------------
// Hooks
// ---------------------------------------------------------------------

func TestExecute_BeforeHookFailureIsPrimary(t *testing.T) {
	hooks := &recordingHooks{beforeErr: errors.New("auth expired")}
	eng, err := New(WithHooks(hooks))
	require.NoError(t, err)

	ran := false
	task := NewTask("guarded", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			ran = true
			return Success("never")
		})

	result := Execute(context.Background(), eng, task, "in", newTestSession(t), nil)

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeHookBefore, result.Code())
	assert.False(t, ran, "task must not run when the before-hook fails")
	assert.Equal(t, []string{"before:guarded", "error:guarded"}, hooks.events())
}

func TestExecute_AfterHookFailureSwallowed(t *testing.T) {
	hooks := &recordingHooks{afterErr: errors.New("metrics sink down")}
	eng, err := New(WithHooks(hooks))
	require.NoError(t, err)

	result := Execute(context.Background(), eng, echoTask("echo"), "in", newTestSession(t), nil)

	require.True(t, result.IsSuccess(), "after-hook failure must not mask success")
	assert.Equal(t, "echo: in", result.Value())
}

func TestExecute_ErrorHookFailureSwallowed(t *testing.T) {
	hooks := &recordingHooks{onErrErr: errors.New("alerting down")}
	eng, err := New(WithHooks(hooks))
	require.NoError(t, err)
	taskErr := sserr.New(sserr.CodeExecutionFailed, "engine: model refused")
	task := NewTask("failing", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			return Failure[string](taskErr)
		})

	result := Execute(context.Background(), eng, task, "in", newTestSession(t), nil)

	require.False(t, result.IsSuccess())
	assert.Same(t, error(taskErr), result.Err(), "error-hook failure must not mask the cause")
}

// ---------------------------------------------------------------------
// Retry behavior
// ---------------------------------------------------------------------

func TestExecute_RetriesThenSucceeds(t *testing.T) {
	recorder := &captureRecorder{}
	eng, err := New(WithRecorder(recorder))
	require.NoError(t, err)

	var attempts int
	task := NewTask("flaky", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			attempts++
			if attempts < 3 {
				return Failure[string](sserr.Newf(sserr.CodeUnavailable,
					"engine: provider overloaded (attempt %d)", attempts))
			}
			return Success("finally")
		})

	cfg := &Config{Retry: fastRetry(3, sserr.CodeUnavailable)}
	result := Execute(context.Background(), eng, task, "in", newTestSession(t), cfg)

	require.True(t, result.IsSuccess())
	assert.Equal(t, "finally", result.Value())
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, result.Metadata().Attempts)
	assert.Equal(t, []string{"Succeeded after 2 retries"}, result.Warnings())

	rec := recorder.last(t)
	assert.Equal(t, models.ExecutionStatusCompleted, rec.Status)
	assert.Equal(t, 3, rec.Attempts)
}

func TestExecute_HookOrderAcrossRetries(t *testing.T) {
	hooks := &recordingHooks{}
	eng, err := New(WithHooks(hooks))
	require.NoError(t, err)

	var attempts int
	task := NewTask("flaky", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			attempts++
			if attempts == 1 {
				return Failure[string](sserr.New(sserr.CodeUnavailable,
					"engine: provider overloaded"))
			}
			return Success("ok")
		})

	cfg := &Config{Retry: fastRetry(2, sserr.CodeUnavailable)}
	result := Execute(context.Background(), eng, task, "in", newTestSession(t), cfg)

	require.True(t, result.IsSuccess())
	assert.Equal(t,
		[]string{"before:flaky", "error:flaky", "before:flaky", "after:flaky"},
		hooks.events(),
		"each attempt gets its own before-hook; the error-hook fires per failed attempt")
}

func TestExecute_ExhaustsRetries(t *testing.T) {
	recorder := &captureRecorder{}
	eng, err := New(WithRecorder(recorder))
	require.NoError(t, err)

	var attempts int
	task := NewTask("hopeless", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			attempts++
			return Failure[string](sserr.New(sserr.CodeUnavailable, "engine: provider down"))
		})

	cfg := &Config{Retry: fastRetry(2, sserr.CodeUnavailable)}
	result := Execute(context.Background(), eng, task, "in", newTestSession(t), cfg)

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeUnavailable, result.Code())
	assert.Equal(t, 3, attempts, "initial attempt plus two retries")
	assert.Empty(t, result.Warnings())

	rec := recorder.last(t)
	assert.Equal(t, models.ExecutionStatusFailed, rec.Status)
	assert.Equal(t, 3, rec.Attempts)
}

func TestExecute_NonRetryableCodeStopsImmediately(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	var attempts int
	task := NewTask("invalid", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			attempts++
			return Failure[string](sserr.New(sserr.CodeValidation, "engine: bad prompt"))
		})

	cfg := &Config{Retry: fastRetry(3, sserr.CodeUnavailable)}
	result := Execute(context.Background(), eng, task, "in", newTestSession(t), cfg)

	require.False(t, result.IsSuccess())
	assert.Equal(t, 1, attempts, "validation failures are not on the allow-list")
	assert.Equal(t, sserr.CodeValidation, result.Code())
}

func TestExecute_ZeroPolicyDisablesRetry(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	var attempts int
	task := NewTask("once", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			attempts++
			return Failure[string](sserr.New(sserr.CodeUnavailable, "engine: down"))
		})

	result := Execute(context.Background(), eng, task, "in", newTestSession(t), &Config{})

	require.False(t, result.IsSuccess())
	assert.Equal(t, 1, attempts)
}

func TestExecute_CanceledDuringBackoff(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	task := NewTask("flaky", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			cancel() // cancel before the engine starts waiting to retry
			return Failure[string](sserr.New(sserr.CodeUnavailable, "engine: down"))
		})

	cfg := &Config{Retry: retry.Policy{
		MaxRetries:        3,
		InitialDelay:      time.Minute,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 1.0,
		RetryableCodes:    []sserr.Code{sserr.CodeUnavailable},
	}}

	start := time.Now()
	result := Execute(ctx, eng, task, "in", newTestSession(t), cfg)

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeExecutionCanceled, result.Code())
	assert.Less(t, time.Since(start), 5*time.Second, "must not sit out the full backoff")
}

// ---------------------------------------------------------------------
// Timeout and cancellation
// ---------------------------------------------------------------------

func TestExecute_Timeout(t *testing.T) {
	recorder := &captureRecorder{}
	eng, err := New(WithRecorder(recorder))
	require.NoError(t, err)

	task := NewTask("slow", testModel,
		func(ctx context.Context, _ string, _ *session.Context) Result[string] {
			// Ignores its context deadline on purpose.
			time.Sleep(200 * time.Millisecond)
			return Success("too late")
		})

	start := time.Now()
	result := Execute(context.Background(), eng, task, "in", newTestSession(t),
		&Config{Timeout: 50 * time.Millisecond})
	elapsed := time.Since(start)

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeTimeout, result.Code())
	assert.Less(t, elapsed, 150*time.Millisecond, "caller must get the failure at the deadline, not the task's end")

	rec := recorder.last(t)
	assert.Equal(t, models.ExecutionStatusTimeout, rec.Status)
}

func TestExecute_TimeoutCancelsAttemptContext(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	canceled := make(chan struct{})
	task := NewTask("cooperative", testModel,
		func(ctx context.Context, _ string, _ *session.Context) Result[string] {
			<-ctx.Done()
			close(canceled)
			return Failure[string](ctx.Err())
		})

	result := Execute(context.Background(), eng, task, "in", newTestSession(t),
		&Config{Timeout: 20 * time.Millisecond})

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeTimeout, result.Code())

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("attempt context was never canceled")
	}
}

func TestExecute_CallerCancellation(t *testing.T) {
	recorder := &captureRecorder{}
	eng, err := New(WithRecorder(recorder))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	task := NewTask("interruptible", testModel,
		func(ctx context.Context, _ string, _ *session.Context) Result[string] {
			cancel()
			<-ctx.Done()
			return Failure[string](ctx.Err())
		})

	result := Execute(ctx, eng, task, "in", newTestSession(t),
		&Config{Timeout: time.Minute})

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeExecutionCanceled, result.Code())

	rec := recorder.last(t)
	assert.Equal(t, models.ExecutionStatusCanceled, rec.Status)
}

func TestExecute_TimeoutIsRetryable(t *testing.T) {
	eng, err := New()
	require.NoError(t, err)

	var attempts int
	task := NewTask("slow-then-fast", testModel,
		func(ctx context.Context, _ string, _ *session.Context) Result[string] {
			attempts++
			if attempts == 1 {
				<-ctx.Done()
				return Failure[string](ctx.Err())
			}
			return Success("quick this time")
		})

	cfg := &Config{
		Timeout: 20 * time.Millisecond,
		Retry:   fastRetry(2, sserr.CodeTimeout),
	}
	result := Execute(context.Background(), eng, task, "in", newTestSession(t), cfg)

	require.True(t, result.IsSuccess())
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []string{"Succeeded after 1 retries"}, result.Warnings())
}

// ---------------------------------------------------------------------
// Panic recovery
// ---------------------------------------------------------------------

func TestExecute_PanicRecovered(t *testing.T) {
	recorder := &captureRecorder{}
	eng, err := New(WithRecorder(recorder))
	require.NoError(t, err)

	task := NewTask("bomb", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			panic("nil map write")
		})

	var result Result[string]
	require.NotPanics(t, func() {
		result = Execute(context.Background(), eng, task, "in", newTestSession(t), nil)
	})

	require.False(t, result.IsSuccess())
	assert.Equal(t, sserr.CodeExecutionPanic, result.Code())
	assert.Contains(t, result.Err().Error(), "nil map write")

	rec := recorder.last(t)
	assert.Equal(t, models.ExecutionStatusFailed, rec.Status)
}

// ---------------------------------------------------------------------
// Recorder behavior
// ---------------------------------------------------------------------

func TestExecute_RecorderFailureNeverSurfaces(t *testing.T) {
	recorder := &captureRecorder{err: errors.New("database down")}
	eng, err := New(WithRecorder(recorder))
	require.NoError(t, err)

	result := Execute(context.Background(), eng, echoTask("echo"), "in", newTestSession(t), nil)

	assert.True(t, result.IsSuccess(), "audit failures must not affect the result")
}

func TestExecute_RecordCarriesConfigMetadata(t *testing.T) {
	recorder := &captureRecorder{}
	eng, err := New(WithRecorder(recorder))
	require.NoError(t, err)

	cfg := &Config{Metadata: map[string]any{"pipeline": "ingest", "stage": 2}}
	result := Execute(context.Background(), eng, echoTask("echo"), "in", newTestSession(t), cfg)
	require.True(t, result.IsSuccess())

	rec := recorder.last(t)
	assert.Equal(t, "ingest", rec.Metadata["pipeline"])
	assert.Equal(t, 2, rec.Metadata["stage"])
}

func TestExecute_DefaultsApplyWhenConfigNil(t *testing.T) {
	var attempts int
	task := NewTask("flaky", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			attempts++
			if attempts == 1 {
				return Failure[string](sserr.New(sserr.CodeUnavailable, "engine: down"))
			}
			return Success("ok")
		})

	eng, err := New(WithDefaults(Config{Retry: fastRetry(1, sserr.CodeUnavailable)}))
	require.NoError(t, err)

	result := Execute(context.Background(), eng, task, "in", newTestSession(t), nil)

	require.True(t, result.IsSuccess())
	assert.Equal(t, 2, attempts, "nil config must fall back to engine defaults")
}

// ---------------------------------------------------------------------
// End-to-end: guardrail-style composition via hooks
// ---------------------------------------------------------------------

// costTrackingHooks demonstrates the intended hook usage: observing
// outcomes without influencing them.
type costTrackingHooks struct {
	NoopHooks
	mu    sync.Mutex
	total float64
}

func (h *costTrackingHooks) AfterExecute(_ context.Context, _ TaskInfo, rep Report, _ *session.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total += rep.Metadata.CostUSD
	return nil
}

func TestExecute_HooksObserveMetadata(t *testing.T) {
	hooks := &costTrackingHooks{}
	eng, err := New(WithHooks(hooks))
	require.NoError(t, err)

	task := NewTask("priced", testModel,
		func(context.Context, string, *session.Context) Result[string] {
			return Success("done").WithMetadata(Metadata{CostUSD: 0.25, InputTokens: 100})
		})

	for i := 0; i < 4; i++ {
		result := Execute(context.Background(), eng, task, fmt.Sprintf("in-%d", i), newTestSession(t), nil)
		require.True(t, result.IsSuccess())
	}

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	assert.InDelta(t, 1.00, hooks.total, 1e-9)
}

// ---------------------------------------------------------------------
// Tracing
// ---------------------------------------------------------------------

// TestExecute_CreatesSpan verifies that each execution produces an
// engine.execute span carrying task and session attributes, with error
// status reflecting the outcome.
func TestExecute_CreatesSpan(t *testing.T) {
	// Set up a test trace provider with a span recorder.
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	// Set the global tracer provider for this test. The engine captures
	// its tracer at construction, so New must run after this.
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	eng, err := New()
	require.NoError(t, err)
	sess := newTestSession(t)

	result := Execute(context.Background(), eng, echoTask("traced"), "in", sess, nil)
	require.True(t, result.IsSuccess())

	failing := NewTask("traced-failure", testModel,
		func(_ context.Context, _ string, _ *session.Context) Result[string] {
			return Failure[string](sserr.New(sserr.CodeExecutionFailed, "boom"))
		})
	result = Execute(context.Background(), eng, failing, "in", sess, nil)
	require.False(t, result.IsSuccess())

	_ = tp.ForceFlush(context.Background())
	spans := exporter.GetSpans()
	require.NotEmpty(t, spans, "at least one span should have been created")

	var succeeded, failed *tracetest.SpanStub
	for i := range spans {
		if spans[i].Name != "engine.execute" {
			continue
		}
		for _, attr := range spans[i].Attributes {
			if attr.Key == "task.name" {
				switch attr.Value.AsString() {
				case "traced":
					succeeded = &spans[i]
				case "traced-failure":
					failed = &spans[i]
				}
			}
		}
	}
	require.NotNil(t, succeeded, "span for the successful execution should exist")
	require.NotNil(t, failed, "span for the failed execution should exist")

	assert.Equal(t, codes.Ok, succeeded.Status.Code)
	assert.Equal(t, codes.Error, failed.Status.Code)

	var sessionID string
	for _, attr := range succeeded.Attributes {
		if attr.Key == "session.id" {
			sessionID = attr.Value.AsString()
		}
	}
	assert.Equal(t, sess.SessionID(), sessionID)
}
