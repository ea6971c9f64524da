package session

import (
	"time"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
)

// Snapshot is the serialized form of a [Context]: a JSON-shaped value
// with RFC 3339 timestamps, suitable for persistence (session stores,
// transcript archives) and structured logging.
//
// Derived fields (DurationMs, TotalCost, TotalTokens, RemainingBudget)
// are computed at snapshot time and are not read back by [FromSnapshot];
// they exist for consumers that inspect stored snapshots without
// rehydrating them.
type Snapshot struct {
	// SessionID is the session's immutable identity.
	SessionID string `json:"session_id"`

	// UserID is the associated user identifier, omitted when empty.
	UserID string `json:"user_id,omitempty"`

	// Environment is the session's deployment environment.
	Environment Environment `json:"environment"`

	// Metadata is the session's opaque metadata map.
	Metadata map[string]any `json:"metadata"`

	// Messages is the ordered conversation history.
	Messages []Message `json:"messages"`

	// Costs is the ordered cost ledger.
	Costs []Cost `json:"costs"`

	// Budget is the cost ceiling in USD, omitted when the session has
	// no budget.
	Budget float64 `json:"budget,omitempty"`

	// StartTime is the session's creation time (RFC 3339 in JSON).
	StartTime time.Time `json:"start_time"`

	// DurationMs is the elapsed session wall-clock time in milliseconds
	// at snapshot time. Derived; ignored by FromSnapshot.
	DurationMs int64 `json:"duration_ms"`

	// TotalCost is the sum of all recorded cost amounts in USD.
	// Derived; ignored by FromSnapshot.
	TotalCost float64 `json:"total_cost"`

	// TotalTokens is the sum of all recorded token usage.
	// Derived; ignored by FromSnapshot.
	TotalTokens int `json:"total_tokens"`

	// RemainingBudget is the budget headroom in USD, floored at zero.
	// Derived; ignored by FromSnapshot.
	RemainingBudget float64 `json:"remaining_budget"`
}

// Snapshot exports the session as a [Snapshot]. The returned value holds
// copies of the session's collections; mutating it does not affect the
// Context.
func (c *Context) Snapshot() Snapshot {
	return Snapshot{
		SessionID:       c.sessionID,
		UserID:          c.userID,
		Environment:     c.environment,
		Metadata:        c.Metadata(),
		Messages:        c.Messages(),
		Costs:           c.Costs(),
		Budget:          c.budget,
		StartTime:       c.startTime,
		DurationMs:      time.Since(c.startTime).Milliseconds(),
		TotalCost:       c.TotalCost(),
		TotalTokens:     c.TotalTokens(),
		RemainingBudget: c.RemainingBudget(),
	}
}

// FromSnapshot rehydrates a [Context] from a stored snapshot. Identity,
// environment, metadata, history, ledger, budget, and start time are
// restored; derived fields are recomputed on demand and need not match
// the stored values.
//
// Returns a [sserr.CodeValidation] error if the snapshot is missing its
// session ID, carries an unrecognized environment, or has a negative
// budget.
func FromSnapshot(snap Snapshot) (*Context, error) {
	if snap.SessionID == "" {
		return nil, sserr.New(sserr.CodeValidationRequired,
			"session: snapshot session ID must not be empty")
	}
	env := snap.Environment
	if env == "" {
		env = EnvDevelopment
	}
	if !env.Valid() {
		return nil, sserr.Newf(sserr.CodeValidation,
			"session: snapshot has unrecognized environment %q", snap.Environment)
	}
	if snap.Budget < 0 {
		return nil, sserr.Newf(sserr.CodeValidationRange,
			"session: snapshot budget must not be negative, got %v", snap.Budget)
	}

	startTime := snap.StartTime
	if startTime.IsZero() {
		startTime = time.Now().UTC()
	}

	c := &Context{
		sessionID:   snap.SessionID,
		userID:      snap.UserID,
		environment: env,
		metadata:    copyMetadata(snap.Metadata),
		messages:    make([]Message, len(snap.Messages)),
		costs:       make([]Cost, len(snap.Costs)),
		budget:      snap.Budget,
		startTime:   startTime,
	}
	copy(c.messages, snap.Messages)
	copy(c.costs, snap.Costs)
	return c, nil
}
