package session

import (
	"time"

	"github.com/google/uuid"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
)

// Context is one logical session's immutable state: identity, environment,
// frozen metadata, conversation history, cost ledger, and an optional
// budget ceiling.
//
// A Context is never mutated after construction. Update operations
// ([Context.WithMessage], [Context.RecordCost], [Context.WithMetadata])
// return a new Context value holding copies of the updated collections;
// the receiver is unchanged. All read methods return defensive copies, so
// a Context may be shared freely across goroutines.
//
// Create a Context with [New]; rehydrate a persisted one with
// [FromSnapshot]. Ownership is exclusive to the caller holding the
// reference — no engine component caches a Context beyond the call it
// was passed into.
type Context struct {
	sessionID   string
	userID      string
	environment Environment
	metadata    map[string]any
	messages    []Message
	costs       []Cost
	budget      float64 // 0 means no ceiling
	startTime   time.Time
}

// Option configures a Context during construction with [New].
type Option func(*Context)

// WithSessionID sets an explicit session identifier instead of the
// generated UUID. Useful when the identifier is assigned externally.
func WithSessionID(id string) Option {
	return func(c *Context) { c.sessionID = id }
}

// WithUserID associates the session with a user identifier.
func WithUserID(id string) Option {
	return func(c *Context) { c.userID = id }
}

// WithEnvironment sets the session's deployment environment. The default
// is [EnvDevelopment]. Invalid values are rejected by [New].
func WithEnvironment(env Environment) Option {
	return func(c *Context) { c.environment = env }
}

// WithMetadata sets the session's opaque metadata map. The map is copied;
// it is frozen at creation and only extended (never rewritten) by
// [Context.WithMetadata].
func WithMetadata(md map[string]any) Option {
	return func(c *Context) { c.metadata = copyMetadata(md) }
}

// WithBudget sets the session's cost ceiling in USD. The ceiling must be
// greater than zero; zero (the default) means the session has no budget.
func WithBudget(budgetUSD float64) Option {
	return func(c *Context) { c.budget = budgetUSD }
}

// New creates a session Context with a generated UUID, the development
// environment, an empty history and ledger, and the current UTC time as
// start time. Options override individual fields.
//
// Returns a [sserr.CodeValidation] error if a configured budget is not
// greater than zero or the environment is not recognized.
//
// Example:
//
//	sess, err := session.New(
//	    session.WithUserID("user-42"),
//	    session.WithEnvironment(session.EnvProduction),
//	    session.WithBudget(1.00),
//	)
func New(opts ...Option) (*Context, error) {
	c := &Context{
		sessionID:   uuid.New().String(),
		environment: EnvDevelopment,
		metadata:    map[string]any{},
		startTime:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.sessionID == "" {
		return nil, sserr.New(sserr.CodeValidationRequired,
			"session: session ID must not be empty")
	}
	if !c.environment.Valid() {
		return nil, sserr.Newf(sserr.CodeValidation,
			"session: unrecognized environment %q", c.environment)
	}
	if c.budget < 0 {
		return nil, sserr.Newf(sserr.CodeValidationRange,
			"session: budget must be greater than zero, got %v", c.budget)
	}
	return c, nil
}

// SessionID returns the session's immutable identity.
func (c *Context) SessionID() string {
	return c.sessionID
}

// UserID returns the associated user identifier, or "" if none was set.
func (c *Context) UserID() string {
	return c.userID
}

// Environment returns the session's deployment environment.
func (c *Context) Environment() Environment {
	return c.environment
}

// StartTime returns the UTC time the session was created.
func (c *Context) StartTime() time.Time {
	return c.startTime
}

// Duration returns the elapsed wall-clock time since the session started.
func (c *Context) Duration() time.Duration {
	return time.Since(c.startTime)
}

// Budget returns the session's cost ceiling in USD, or 0 if the session
// has no budget. Use [Context.HasBudget] to distinguish "no ceiling"
// from a zero value.
func (c *Context) Budget() float64 {
	return c.budget
}

// HasBudget reports whether the session has a configured cost ceiling.
func (c *Context) HasBudget() bool {
	return c.budget > 0
}

// Metadata returns a copy of the session's metadata map. Modifying the
// returned map does not affect the session.
func (c *Context) Metadata() map[string]any {
	return copyMetadata(c.metadata)
}

// Messages returns a copy of the session's ordered conversation history.
func (c *Context) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Costs returns a copy of the session's ordered cost ledger.
func (c *Context) Costs() []Cost {
	out := make([]Cost, len(c.costs))
	copy(out, c.costs)
	return out
}

// TotalCost returns the sum of all recorded cost amounts in USD.
// The total is never negative because [Context.RecordCost] rejects
// negative amounts.
func (c *Context) TotalCost() float64 {
	var total float64
	for _, cost := range c.costs {
		total += cost.AmountUSD
	}
	return total
}

// TotalTokens returns the sum of input and output tokens across all
// recorded cost entries.
func (c *Context) TotalTokens() int {
	var total int
	for _, cost := range c.costs {
		total += cost.TotalTokens()
	}
	return total
}

// RemainingBudget returns the budget headroom in USD, floored at zero.
// Returns 0 if the session has no budget.
func (c *Context) RemainingBudget() float64 {
	if !c.HasBudget() {
		return 0
	}
	remaining := c.budget - c.TotalCost()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsBudgetExceeded reports whether the session's accumulated cost has met
// or exceeded its ceiling. A session that has spent exactly its budget is
// exceeded: the last recording succeeded, but no further execution may
// start. Always false for sessions without a budget.
func (c *Context) IsBudgetExceeded() bool {
	return c.HasBudget() && c.TotalCost() >= c.budget
}

// WithMessage returns a new Context with the message appended to the
// conversation history. A zero Timestamp is filled with the current UTC
// time. The receiver is unchanged.
func (c *Context) WithMessage(msg Message) *Context {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	next := c.clone()
	next.messages = append(next.messages, msg)
	return next
}

// RecordCost returns a new Context with the cost appended to the ledger.
// A zero Timestamp is filled with the current UTC time. The receiver is
// unchanged.
//
// Recording fails — returning nil and an error, producing no new
// Context — when:
//   - the amount is negative ([sserr.CodeValidationRange])
//   - the session has a budget and the new total would be strictly
//     greater than the ceiling ([sserr.CodeBudgetWouldExceed])
//
// Landing exactly on the ceiling succeeds; the returned Context then
// reports [Context.IsBudgetExceeded].
func (c *Context) RecordCost(cost Cost) (*Context, error) {
	if cost.AmountUSD < 0 {
		return nil, sserr.Newf(sserr.CodeValidationRange,
			"session: cost amount must not be negative, got %v", cost.AmountUSD)
	}
	if c.HasBudget() {
		if newTotal := c.TotalCost() + cost.AmountUSD; newTotal > c.budget {
			return nil, sserr.Newf(sserr.CodeBudgetWouldExceed,
				"session: recording $%.6f would exceed budget of $%.6f (spent $%.6f)",
				cost.AmountUSD, c.budget, c.TotalCost())
		}
	}
	if cost.Timestamp.IsZero() {
		cost.Timestamp = time.Now().UTC()
	}
	next := c.clone()
	next.costs = append(next.costs, cost)
	return next, nil
}

// WithMetadata returns a new Context with the key set in the metadata
// map. Existing keys are overwritten in the new value; the receiver is
// unchanged.
func (c *Context) WithMetadata(key string, value any) *Context {
	next := c.clone()
	next.metadata[key] = value
	return next
}

// clone returns a deep-enough copy of the Context: slices and maps are
// copied one level so appends and writes on the clone cannot alias the
// receiver's state.
func (c *Context) clone() *Context {
	next := &Context{
		sessionID:   c.sessionID,
		userID:      c.userID,
		environment: c.environment,
		metadata:    copyMetadata(c.metadata),
		messages:    make([]Message, len(c.messages), len(c.messages)+1),
		costs:       make([]Cost, len(c.costs), len(c.costs)+1),
		budget:      c.budget,
		startTime:   c.startTime,
	}
	copy(next.messages, c.messages)
	copy(next.costs, c.costs)
	return next
}

// copyMetadata returns a shallow copy of a metadata map. Nil maps are
// normalized to empty maps so callers never index into nil.
func copyMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
