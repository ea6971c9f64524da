package engine

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/StricklySoft/stricklysoft-engine/pkg/session"
)

// Item pairs a task with its input for homogeneous fan-out via
// [ExecuteAll].
type Item[I, O any] struct {
	Task  Task[I, O]
	Input I
}

// ExecuteAll runs every item concurrently through [Execute] and
// returns results in item order, regardless of completion order. Each
// item runs under the full engine pipeline — hooks, retries, timeout,
// audit record — independently of its siblings: one item's failure
// never cancels another.
//
// The shared session is read by every item; [session.Context] is safe
// for that. An empty item slice returns an empty, non-nil slice.
func ExecuteAll[I, O any](ctx context.Context, eng *Engine, sess *session.Context, cfg *Config, items []Item[I, O]) []Result[O] {
	ctx, span := eng.tracer.Start(ctx, "engine.execute_all",
		trace.WithAttributes(attribute.Int("fanout.size", len(items))),
	)
	defer span.End()

	results := make([]Result[O], len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Execute(ctx, eng, item.Task, item.Input, sess, cfg)
		}()
	}
	wg.Wait()
	return results
}

// Execute2 runs two tasks of differing types concurrently and returns
// both results, in argument order. Each task runs under the full
// engine pipeline independently; neither failure cancels the other.
//
// For fan-outs wider than four, or with homogeneous types, use
// [ExecuteAll].
func Execute2[I1, O1, I2, O2 any](
	ctx context.Context, eng *Engine, sess *session.Context, cfg *Config,
	task1 Task[I1, O1], input1 I1,
	task2 Task[I2, O2], input2 I2,
) (Result[O1], Result[O2]) {
	ctx, span := eng.tracer.Start(ctx, "engine.execute_all",
		trace.WithAttributes(attribute.Int("fanout.size", 2)),
	)
	defer span.End()

	var (
		wg sync.WaitGroup
		r1 Result[O1]
		r2 Result[O2]
	)
	wg.Add(2)
	go func() { defer wg.Done(); r1 = Execute(ctx, eng, task1, input1, sess, cfg) }()
	go func() { defer wg.Done(); r2 = Execute(ctx, eng, task2, input2, sess, cfg) }()
	wg.Wait()
	return r1, r2
}

// Execute3 runs three tasks of differing types concurrently. See
// [Execute2] for semantics.
func Execute3[I1, O1, I2, O2, I3, O3 any](
	ctx context.Context, eng *Engine, sess *session.Context, cfg *Config,
	task1 Task[I1, O1], input1 I1,
	task2 Task[I2, O2], input2 I2,
	task3 Task[I3, O3], input3 I3,
) (Result[O1], Result[O2], Result[O3]) {
	ctx, span := eng.tracer.Start(ctx, "engine.execute_all",
		trace.WithAttributes(attribute.Int("fanout.size", 3)),
	)
	defer span.End()

	var (
		wg sync.WaitGroup
		r1 Result[O1]
		r2 Result[O2]
		r3 Result[O3]
	)
	wg.Add(3)
	go func() { defer wg.Done(); r1 = Execute(ctx, eng, task1, input1, sess, cfg) }()
	go func() { defer wg.Done(); r2 = Execute(ctx, eng, task2, input2, sess, cfg) }()
	go func() { defer wg.Done(); r3 = Execute(ctx, eng, task3, input3, sess, cfg) }()
	wg.Wait()
	return r1, r2, r3
}

// Execute4 runs four tasks of differing types concurrently. See
// [Execute2] for semantics.
func Execute4[I1, O1, I2, O2, I3, O3, I4, O4 any](
	ctx context.Context, eng *Engine, sess *session.Context, cfg *Config,
	task1 Task[I1, O1], input1 I1,
	task2 Task[I2, O2], input2 I2,
	task3 Task[I3, O3], input3 I3,
	task4 Task[I4, O4], input4 I4,
) (Result[O1], Result[O2], Result[O3], Result[O4]) {
	ctx, span := eng.tracer.Start(ctx, "engine.execute_all",
		trace.WithAttributes(attribute.Int("fanout.size", 4)),
	)
	defer span.End()

	var (
		wg sync.WaitGroup
		r1 Result[O1]
		r2 Result[O2]
		r3 Result[O3]
		r4 Result[O4]
	)
	wg.Add(4)
	go func() { defer wg.Done(); r1 = Execute(ctx, eng, task1, input1, sess, cfg) }()
	go func() { defer wg.Done(); r2 = Execute(ctx, eng, task2, input2, sess, cfg) }()
	go func() { defer wg.Done(); r3 = Execute(ctx, eng, task3, input3, sess, cfg) }()
	go func() { defer wg.Done(); r4 = Execute(ctx, eng, task4, input4, sess, cfg) }()
	wg.Wait()
	return r1, r2, r3, r4
}
