package guardrail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
	"github.com/StricklySoft/stricklysoft-engine/pkg/session"
)

// ===========================================================================
// MaxLength
// ===========================================================================

func TestMaxLength(t *testing.T) {
	g := &MaxLength{Limit: 5}

	result, err := g.Evaluate(context.Background(), Input{Content: "short"})
	require.NoError(t, err)
	assert.True(t, result.Passed, "content at the limit passes")

	result, err = g.Evaluate(context.Background(), Input{Content: "too long"})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, SeverityError, result.Severity)
	assert.Equal(t, 8, result.Details["length"])
	assert.Equal(t, 5, result.Details["limit"])
}

func TestMaxLength_CountsRunes(t *testing.T) {
	g := &MaxLength{Limit: 3}

	result, err := g.Evaluate(context.Background(), Input{Content: "äöü"})
	require.NoError(t, err)
	assert.True(t, result.Passed, "limit counts code points, not bytes")
}

func TestMaxLength_CustomSeverity(t *testing.T) {
	g := &MaxLength{Limit: 1, Severity: SeverityWarning}

	result, err := g.Evaluate(context.Background(), Input{Content: "xx"})
	require.NoError(t, err)
	assert.Equal(t, SeverityWarning, result.Severity)
}

func TestMaxLength_Enabled(t *testing.T) {
	assert.True(t, (&MaxLength{}).Enabled())
	assert.False(t, (&MaxLength{Disabled: true}).Enabled())
}

// ===========================================================================
// DenyPatterns
// ===========================================================================

func TestNewDenyPatterns_InvalidPattern(t *testing.T) {
	_, err := NewDenyPatterns(SeverityError, "[unclosed")
	require.Error(t, err)
	assert.Equal(t, sserr.CodeValidationFormat, sserr.GetCode(err))
}

func TestNewDenyPatterns_InvalidSeverity(t *testing.T) {
	_, err := NewDenyPatterns("fatal", ".*")
	require.Error(t, err)
	assert.Equal(t, sserr.CodeValidation, sserr.GetCode(err))
}

func TestDenyPatterns(t *testing.T) {
	g, err := NewDenyPatterns(SeverityCritical, `(?i)password\s*=`, `\b\d{16}\b`)
	require.NoError(t, err)

	result, err := g.Evaluate(context.Background(), Input{Content: "nothing suspicious"})
	require.NoError(t, err)
	assert.True(t, result.Passed)

	result, err = g.Evaluate(context.Background(), Input{Content: "PASSWORD = hunter2"})
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, SeverityCritical, result.Severity)
	assert.Equal(t, `(?i)password\s*=`, result.Details["pattern"])

	result, err = g.Evaluate(context.Background(), Input{Content: "card 4111111111111111 on file"})
	require.NoError(t, err)
	assert.False(t, result.Passed)
}

func TestDenyPatterns_Disable(t *testing.T) {
	g, err := NewDenyPatterns(SeverityError, ".*")
	require.NoError(t, err)

	assert.True(t, g.Enabled())
	g.Disable()
	assert.False(t, g.Enabled())
}

// ===========================================================================
// TokenBudget
// ===========================================================================

func TestTokenBudget(t *testing.T) {
	sess, err := session.New()
	require.NoError(t, err)
	sess, err = sess.RecordCost(session.Cost{InputTokens: 60, OutputTokens: 30})
	require.NoError(t, err)

	under := &TokenBudget{MaxTokens: 100}
	result, evalErr := under.Evaluate(context.Background(), Input{Session: sess})
	require.NoError(t, evalErr)
	assert.True(t, result.Passed)

	at := &TokenBudget{MaxTokens: 90}
	result, evalErr = at.Evaluate(context.Background(), Input{Session: sess})
	require.NoError(t, evalErr)
	assert.False(t, result.Passed, "reaching the ceiling fails")
	assert.Equal(t, SeverityCritical, result.Severity)
	assert.Equal(t, 90, result.Details["used_tokens"])
}

func TestTokenBudget_RequiresSession(t *testing.T) {
	g := &TokenBudget{MaxTokens: 10}

	_, err := g.Evaluate(context.Background(), Input{Content: "no session"})
	require.Error(t, err)
	assert.Equal(t, sserr.CodeValidationRequired, sserr.GetCode(err))
}

func TestTokenBudget_InChain(t *testing.T) {
	chain, err := NewChainBuilder(&TokenBudget{MaxTokens: 10}).Build()
	require.NoError(t, err)

	// No session: the guardrail's error becomes a critical result
	// instead of aborting the chain.
	result := chain.Execute(context.Background(), Input{Content: "x"})
	assert.False(t, result.Passed)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, SeverityCritical, result.Violations[0].Severity)
}
