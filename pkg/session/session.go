// Package session provides the immutable execution context for the
// StricklySoft engine: one logical session's conversation history, cost
// ledger, optional budget ceiling, and opaque metadata.
//
// # Immutability
//
// A [Context] is a value that is never mutated in place. Every update
// operation ([Context.WithMessage], [Context.RecordCost],
// [Context.WithMetadata]) returns a new Context; the original remains
// valid and unchanged. This makes a Context safe to read from any number
// of goroutines, at the price of a copy per update.
//
// Because updates produce new values, two goroutines updating the *same*
// snapshot each produce an independent successor — neither sees the
// other's costs. Budget enforcement is therefore per-snapshot, not
// transactional across concurrent writers. Applications that fan out
// executions over one shared session and need strict budget enforcement
// must serialize cost recording through a single owner (for example a
// goroutine that owns the authoritative Context and applies updates one
// at a time).
//
// # Budget
//
// A session may carry a budget ceiling in USD. Recording a cost that
// would push the running total strictly past the ceiling fails with
// [sserr.CodeBudgetWouldExceed] and produces no new Context. Recording a
// cost that lands exactly on the ceiling succeeds; the session then
// reports [Context.IsBudgetExceeded] so the engine's pre-flight check
// blocks further executions.
//
// # Serialization
//
// [Context.Snapshot] exports the session as a JSON-shaped value with
// RFC 3339 timestamps and derived totals, suitable for persistence and
// logging. [FromSnapshot] rehydrates a Context from a stored snapshot.
package session

import (
	"time"
)

// Environment identifies the deployment environment a session belongs to.
type Environment string

const (
	// EnvDevelopment is the default environment for new sessions.
	EnvDevelopment Environment = "development"

	// EnvStaging is the pre-production environment.
	EnvStaging Environment = "staging"

	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// String returns the string representation of the environment.
func (e Environment) String() string {
	return string(e)
}

// Valid reports whether the environment is one of the recognized values.
func (e Environment) Valid() bool {
	switch e {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return true
	default:
		return false
	}
}

// Role tags a conversational turn with its speaker.
type Role string

const (
	// RoleSystem is a system instruction turn.
	RoleSystem Role = "system"

	// RoleUser is an end-user turn.
	RoleUser Role = "user"

	// RoleAssistant is a model response turn.
	RoleAssistant Role = "assistant"

	// RoleTool is a tool invocation result turn.
	RoleTool Role = "tool"
)

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// Message is one role-tagged conversational turn in a session's history.
// Messages are append-only; once added to a [Context] they are never
// modified or removed.
type Message struct {
	// Role identifies the speaker of this turn.
	Role Role `json:"role"`

	// Content is the turn's text content.
	Content string `json:"content"`

	// Timestamp is the UTC time the message was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// Cost is one recorded cost entry in a session's ledger: the provider,
// model, token usage, and USD amount of a single billable operation.
type Cost struct {
	// Provider is the model provider that incurred the cost
	// (e.g., "anthropic", "openai").
	Provider string `json:"provider"`

	// Model is the model identifier (e.g., "claude-sonnet-4").
	Model string `json:"model"`

	// InputTokens is the number of prompt tokens consumed.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the number of completion tokens produced.
	OutputTokens int `json:"output_tokens"`

	// AmountUSD is the cost of the operation in US dollars.
	// Must not be negative.
	AmountUSD float64 `json:"amount_usd"`

	// Timestamp is the UTC time the cost was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// TotalTokens returns the combined input and output token count of this
// cost entry.
func (c Cost) TotalTokens() int {
	return c.InputTokens + c.OutputTokens
}
