// Package retry defines the engine's retry policy: how many retries an
// execution gets, how the delay between attempts grows, and which
// failures are worth retrying at all.
//
// A [Policy] is pure configuration plus pure calculation. It never
// sleeps and never runs anything; the engine owns the attempt loop and
// asks the policy three questions per failure: should another retry be
// attempted ([Policy.ShouldAttemptRetry]), is this error retryable
// ([Policy.IsRetryable]), and how long to wait ([Policy.CalculateDelay]).
// [Wait] provides the context-aware sleep between attempts.
//
// Delays grow exponentially from InitialDelay by BackoffMultiplier,
// capped at MaxDelay, with an optional symmetric jitter fraction applied
// after the cap to spread out synchronized retries.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
)

// Policy configures retry behavior for a task execution.
//
// The zero value retries nothing; use [DefaultPolicy] for sensible
// defaults. A Policy is a value type and safe to copy and share.
type Policy struct {
	// MaxRetries is the number of retries after the initial attempt.
	// 0 disables retrying; a task then gets exactly one attempt.
	MaxRetries int

	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff between retries. Jittered delays are
	// clamped to it as well.
	MaxDelay time.Duration

	// BackoffMultiplier grows the delay between consecutive retries.
	// 2.0 doubles the delay each retry; 1.0 keeps it constant.
	BackoffMultiplier float64

	// JitterFactor is the symmetric jitter fraction in [0, 1] applied
	// to each delay: 0.2 spreads the delay uniformly within ±20%.
	// 0 disables jitter, making delays deterministic.
	JitterFactor float64

	// RetryableCodes is the allow-list of error codes worth retrying.
	// Empty means every failure is retryable. Errors without a code
	// are matched as [sserr.CodeUnknown].
	RetryableCodes []sserr.Code

	// Predicate, when set, replaces the code allow-list entirely:
	// it alone decides whether a failure is retryable.
	Predicate func(error) bool
}

// DefaultPolicy returns the engine's default retry policy: 3 retries,
// 1s initial delay doubling up to 30s, 20% jitter, retrying only
// timeout and unavailability failures.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor:      0.2,
		RetryableCodes: []sserr.Code{
			sserr.CodeTimeout,
			sserr.CodeTimeoutDatabase,
			sserr.CodeUnavailable,
			sserr.CodeUnavailableDependency,
		},
	}
}

// Validate checks the policy's fields and returns a
// [sserr.CodeValidation] error describing the first problem found.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return sserr.Newf(sserr.CodeValidationRange,
			"retry: max retries must not be negative, got %d", p.MaxRetries)
	}
	if p.InitialDelay < 0 {
		return sserr.Newf(sserr.CodeValidationRange,
			"retry: initial delay must not be negative, got %v", p.InitialDelay)
	}
	if p.MaxDelay < 0 {
		return sserr.Newf(sserr.CodeValidationRange,
			"retry: max delay must not be negative, got %v", p.MaxDelay)
	}
	if p.MaxDelay > 0 && p.InitialDelay > p.MaxDelay {
		return sserr.Newf(sserr.CodeValidationRange,
			"retry: initial delay %v exceeds max delay %v", p.InitialDelay, p.MaxDelay)
	}
	if p.MaxRetries > 0 && p.BackoffMultiplier < 1 {
		return sserr.Newf(sserr.CodeValidationRange,
			"retry: backoff multiplier must be at least 1, got %v", p.BackoffMultiplier)
	}
	if p.JitterFactor < 0 || p.JitterFactor > 1 {
		return sserr.Newf(sserr.CodeValidationRange,
			"retry: jitter factor must be in [0, 1], got %v", p.JitterFactor)
	}
	return nil
}

// ShouldAttemptRetry reports whether retry number attempt (1-indexed)
// is within budget: retry N is allowed while N <= MaxRetries, so a task
// gets at most MaxRetries+1 attempts in total. Attempts of 0 or below
// mean "not yet retried" and are always within budget.
func (p Policy) ShouldAttemptRetry(attempt int) bool {
	return attempt <= p.MaxRetries
}

// IsRetryable reports whether a failure is worth retrying. When
// Predicate is set it alone decides. Otherwise the error's code is
// matched against RetryableCodes, with an empty list allowing every
// failure. Errors without a structured code match as
// [sserr.CodeUnknown]. A nil error is never retryable.
func (p Policy) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if p.Predicate != nil {
		return p.Predicate(err)
	}
	if len(p.RetryableCodes) == 0 {
		return true
	}
	code := sserr.CodeOrUnknown(err)
	for _, allowed := range p.RetryableCodes {
		if code == allowed {
			return true
		}
	}
	return false
}

// CalculateDelay computes the backoff before retry number attempt
// (1-indexed): InitialDelay grown by BackoffMultiplier per prior retry,
// capped at MaxDelay, then jittered within ±JitterFactor and clamped to
// [0, MaxDelay]. With JitterFactor 0 the result is deterministic.
//
// Returns a [sserr.CodeValidation] error for attempts below 1.
func (p Policy) CalculateDelay(attempt int) (time.Duration, error) {
	if attempt < 1 {
		return 0, sserr.Newf(sserr.CodeValidationRange,
			"retry: attempt must be at least 1, got %d", attempt)
	}

	delay := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.JitterFactor > 0 {
		// Uniform in [-JitterFactor, +JitterFactor].
		offset := (rand.Float64()*2 - 1) * p.JitterFactor
		delay *= 1 + offset
	}

	if delay < 0 {
		delay = 0
	}
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay), nil
}

// Wait sleeps for the given delay or until the context is done,
// whichever comes first. Returns the context's error when interrupted,
// nil when the delay elapsed. Non-positive delays return immediately.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
