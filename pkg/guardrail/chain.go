package guardrail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/StricklySoft/stricklysoft-engine/pkg/guardrail"

// ViolationFunc is invoked for every failing guardrail result,
// independent of whether the chain ultimately blocks. Useful for audit
// logging. The chain fires it from the calling goroutine in guardrail
// order, in both sequential and parallel mode.
type ViolationFunc func(result Result, g Guardrail)

// ChainResult aggregates the verdicts of one [Chain.Execute] run.
type ChainResult struct {
	// Passed reports whether every evaluated guardrail passed.
	Passed bool

	// Blocked reports whether any failing result's severity reached
	// the chain's blocking threshold.
	Blocked bool

	// Severity is the highest severity among the failing results, or
	// "" when everything passed.
	Severity Severity

	// Violations holds the failing results in guardrail order. In
	// parallel mode completion order varies, but violations are always
	// reported in the order guardrails were added to the chain.
	Violations []Result
}

// Err returns a [sserr.CodeGuardrailBlocked] error describing the
// violations when the chain blocked, or nil otherwise. It lets callers
// fold a blocking chain result into an error-returning flow.
func (r ChainResult) Err() error {
	if !r.Blocked {
		return nil
	}
	names := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		names[i] = v.GuardrailName
	}
	return sserr.Newf(sserr.CodeGuardrailBlocked,
		"guardrail: content blocked with severity %s by %v", r.Severity, names)
}

// Chain runs an ordered set of guardrails over content and aggregates
// their verdicts. Construct one with [NewChainBuilder]; a built Chain
// is immutable and safe for concurrent use.
type Chain struct {
	guardrails         []Guardrail
	stopOnFirstFailure bool
	parallel           bool
	blockThreshold     Severity
	onViolation        ViolationFunc
	tracer             trace.Tracer
	logger             *slog.Logger
}

// ChainBuilder assembles a [Chain]. Builders are not safe for
// concurrent use; build the chain once, then share it.
type ChainBuilder struct {
	guardrails         []Guardrail
	stopOnFirstFailure bool
	parallel           bool
	blockThreshold     Severity
	onViolation        ViolationFunc
	logger             *slog.Logger
}

// NewChainBuilder creates a builder for a guardrail chain. The default
// chain is sequential, runs every guardrail, and blocks at
// [SeverityError].
func NewChainBuilder(guardrails ...Guardrail) *ChainBuilder {
	return &ChainBuilder{
		guardrails:     guardrails,
		blockThreshold: SeverityError,
	}
}

// Add appends guardrails to the chain in evaluation order.
func (b *ChainBuilder) Add(guardrails ...Guardrail) *ChainBuilder {
	b.guardrails = append(b.guardrails, guardrails...)
	return b
}

// StopOnFirstFailure makes a sequential chain stop after the first
// failing guardrail; later guardrails are never invoked. In parallel
// mode all guardrails still run and the flag only affects the
// aggregate, since early abort is not meaningful under concurrent
// evaluation.
func (b *ChainBuilder) StopOnFirstFailure() *ChainBuilder {
	b.stopOnFirstFailure = true
	return b
}

// Parallel makes the chain evaluate all enabled guardrails
// concurrently. Violations are still aggregated in guardrail order.
func (b *ChainBuilder) Parallel() *ChainBuilder {
	b.parallel = true
	return b
}

// WithBlockThreshold sets the minimum failing severity that makes the
// chain block. The default is [SeverityError].
func (b *ChainBuilder) WithBlockThreshold(threshold Severity) *ChainBuilder {
	b.blockThreshold = threshold
	return b
}

// OnViolation registers a callback fired for every failing guardrail
// result, whether or not the chain blocks.
func (b *ChainBuilder) OnViolation(fn ViolationFunc) *ChainBuilder {
	b.onViolation = fn
	return b
}

// WithLogger sets the chain's logger. Defaults to [slog.Default].
func (b *ChainBuilder) WithLogger(logger *slog.Logger) *ChainBuilder {
	b.logger = logger
	return b
}

// Build validates the configuration and constructs the [Chain].
func (b *ChainBuilder) Build() (*Chain, error) {
	if !b.blockThreshold.Valid() {
		return nil, sserr.Newf(sserr.CodeValidation,
			"guardrail: unrecognized block threshold %q", b.blockThreshold)
	}
	for i, g := range b.guardrails {
		if g == nil {
			return nil, sserr.Newf(sserr.CodeValidationRequired,
				"guardrail: guardrail at position %d is nil", i)
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	guardrails := make([]Guardrail, len(b.guardrails))
	copy(guardrails, b.guardrails)

	return &Chain{
		guardrails:         guardrails,
		stopOnFirstFailure: b.stopOnFirstFailure,
		parallel:           b.parallel,
		blockThreshold:     b.blockThreshold,
		onViolation:        b.onViolation,
		tracer:             otel.Tracer(tracerName),
		logger:             logger,
	}, nil
}

// Execute runs the chain's enabled guardrails over the input and
// aggregates their verdicts. It never returns an error: guardrail
// errors and panics become critical failing results. An empty chain
// (or one with every guardrail disabled) passes.
func (c *Chain) Execute(ctx context.Context, input Input) ChainResult {
	ctx, span := c.tracer.Start(ctx, "guardrail.chain.execute",
		trace.WithAttributes(
			attribute.Int("guardrail.count", len(c.guardrails)),
			attribute.Bool("guardrail.parallel", c.parallel),
		),
	)
	defer span.End()

	enabled := make([]Guardrail, 0, len(c.guardrails))
	for _, g := range c.guardrails {
		if g.Enabled() {
			enabled = append(enabled, g)
		}
	}

	var violations []Result
	if c.parallel {
		violations = c.executeParallel(ctx, enabled, input)
	} else {
		violations = c.executeSequential(ctx, enabled, input)
	}

	result := ChainResult{
		Passed:     len(violations) == 0,
		Violations: violations,
	}
	for _, v := range violations {
		if v.Severity.AtLeast(result.Severity) {
			result.Severity = v.Severity
		}
		if v.Severity.AtLeast(c.blockThreshold) {
			result.Blocked = true
		}
	}

	span.SetAttributes(
		attribute.Bool("guardrail.passed", result.Passed),
		attribute.Bool("guardrail.blocked", result.Blocked),
		attribute.Int("guardrail.violations", len(result.Violations)),
	)
	if result.Blocked {
		span.SetStatus(codes.Error, fmt.Sprintf("blocked with severity %s", result.Severity))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return result
}

// executeSequential evaluates guardrails one at a time in order,
// short-circuiting after the first failure only when the chain stops
// on first failure.
func (c *Chain) executeSequential(ctx context.Context, guardrails []Guardrail, input Input) []Result {
	var violations []Result
	for _, g := range guardrails {
		result := c.evaluate(ctx, g, input)
		if result.Passed {
			continue
		}
		c.reportViolation(ctx, result, g)
		violations = append(violations, result)
		if c.stopOnFirstFailure {
			break
		}
	}
	return violations
}

// executeParallel evaluates all guardrails concurrently, then gathers
// failures in the original guardrail order so the aggregate is
// deterministic regardless of completion order.
func (c *Chain) executeParallel(ctx context.Context, guardrails []Guardrail, input Input) []Result {
	results := make([]Result, len(guardrails))
	var wg sync.WaitGroup
	for i, g := range guardrails {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.evaluate(ctx, g, input)
		}()
	}
	wg.Wait()

	var violations []Result
	for i, result := range results {
		if result.Passed {
			continue
		}
		c.reportViolation(ctx, result, guardrails[i])
		violations = append(violations, result)
	}
	return violations
}

// evaluate runs one guardrail under a span, converting a returned error
// or panic into a critical failing result so a broken guardrail cannot
// crash the chain.
func (c *Chain) evaluate(ctx context.Context, g Guardrail, input Input) (result Result) {
	ctx, span := c.tracer.Start(ctx, "guardrail.evaluate",
		trace.WithAttributes(attribute.String("guardrail.name", g.Name())),
	)
	defer func() {
		if r := recover(); r != nil {
			result = c.failedResult(ctx, g,
				sserr.Newf(sserr.CodeGuardrailFailed, "guardrail: %s panicked: %v", g.Name(), r))
		}
		span.SetAttributes(attribute.Bool("guardrail.passed", result.Passed))
		if result.Passed {
			span.SetStatus(codes.Ok, "")
		} else {
			span.SetStatus(codes.Error, result.Message)
		}
		span.End()

		if result.GuardrailName == "" {
			result.GuardrailName = g.Name()
		}
		if result.Timestamp.IsZero() {
			result.Timestamp = time.Now().UTC()
		}
	}()

	result, err := g.Evaluate(ctx, input)
	if err != nil {
		result = c.failedResult(ctx, g,
			sserr.Wrapf(err, sserr.CodeGuardrailFailed, "guardrail: %s failed", g.Name()))
	}
	return result
}

// failedResult converts a guardrail implementation failure into a
// critical failing result carrying the platform error code.
func (c *Chain) failedResult(ctx context.Context, g Guardrail, err *sserr.Error) Result {
	c.logger.ErrorContext(ctx, "guardrail evaluation failed",
		"guardrail", g.Name(),
		"error", err,
	)
	return Result{
		Passed:   false,
		Severity: SeverityCritical,
		Message:  err.Message,
		Details: map[string]any{
			"error_code": string(err.Code),
		},
		GuardrailName: g.Name(),
		Timestamp:     time.Now().UTC(),
	}
}

// reportViolation logs a failing result and fires the violation
// callback when one is registered.
func (c *Chain) reportViolation(ctx context.Context, result Result, g Guardrail) {
	c.logger.WarnContext(ctx, "guardrail violation",
		"guardrail", g.Name(),
		"severity", result.Severity.String(),
		"message", result.Message,
	)
	if c.onViolation != nil {
		c.onViolation(result, g)
	}
}
