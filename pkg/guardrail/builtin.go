package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
)

// MaxLength fails content longer than a fixed number of characters
// (Unicode code points, not bytes).
type MaxLength struct {
	// Limit is the maximum allowed content length in runes.
	Limit int

	// Severity of a violation. Defaults to [SeverityError] when unset.
	Severity Severity

	// Disabled turns the guardrail off without removing it from a chain.
	Disabled bool
}

var _ Guardrail = (*MaxLength)(nil)

// Name implements [Guardrail].
func (g *MaxLength) Name() string {
	return "max_length"
}

// Enabled implements [Guardrail].
func (g *MaxLength) Enabled() bool {
	return !g.Disabled
}

// Evaluate fails when the content exceeds the configured limit.
func (g *MaxLength) Evaluate(_ context.Context, input Input) (Result, error) {
	length := utf8.RuneCountInString(input.Content)
	if length <= g.Limit {
		return Pass(), nil
	}

	severity := g.Severity
	if severity == "" {
		severity = SeverityError
	}
	result := Fail(severity, fmt.Sprintf("content length %d exceeds limit of %d", length, g.Limit))
	result.Details = map[string]any{
		"length": length,
		"limit":  g.Limit,
	}
	return result, nil
}

// DenyPatterns fails content matching any of a set of regular
// expressions. Construct with [NewDenyPatterns] so patterns are
// compiled and validated once.
type DenyPatterns struct {
	patterns []*regexp.Regexp
	severity Severity
	disabled bool
}

var _ Guardrail = (*DenyPatterns)(nil)

// NewDenyPatterns compiles the given patterns into a guardrail that
// fails with the given severity when content matches any of them.
// Returns a [sserr.CodeValidationFormat] error for an uncompilable
// pattern.
func NewDenyPatterns(severity Severity, patterns ...string) (*DenyPatterns, error) {
	if !severity.Valid() {
		return nil, sserr.Newf(sserr.CodeValidation,
			"guardrail: unrecognized severity %q", severity)
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, sserr.Wrapf(err, sserr.CodeValidationFormat,
				"guardrail: invalid deny pattern %q", p)
		}
		compiled = append(compiled, re)
	}
	return &DenyPatterns{patterns: compiled, severity: severity}, nil
}

// Name implements [Guardrail].
func (g *DenyPatterns) Name() string {
	return "deny_patterns"
}

// Enabled implements [Guardrail].
func (g *DenyPatterns) Enabled() bool {
	return !g.disabled
}

// Disable turns the guardrail off without removing it from a chain.
func (g *DenyPatterns) Disable() {
	g.disabled = true
}

// Evaluate fails on the first pattern the content matches.
func (g *DenyPatterns) Evaluate(_ context.Context, input Input) (Result, error) {
	for _, re := range g.patterns {
		if re.MatchString(input.Content) {
			result := Fail(g.severity, fmt.Sprintf("content matches denied pattern %q", re.String()))
			result.Details = map[string]any{
				"pattern": re.String(),
			}
			return result, nil
		}
	}
	return Pass(), nil
}

// TokenBudget fails when the session's accumulated token usage has
// reached a ceiling. Sessions are required: evaluating without one is
// an implementation error, which the chain converts to a critical
// result.
type TokenBudget struct {
	// MaxTokens is the session token ceiling.
	MaxTokens int

	// Severity of a violation. Defaults to [SeverityCritical] when
	// unset, since a blown token budget usually must block.
	Severity Severity

	// Disabled turns the guardrail off without removing it from a chain.
	Disabled bool
}

var _ Guardrail = (*TokenBudget)(nil)

// Name implements [Guardrail].
func (g *TokenBudget) Name() string {
	return "token_budget"
}

// Enabled implements [Guardrail].
func (g *TokenBudget) Enabled() bool {
	return !g.Disabled
}

// Evaluate fails when the session's total tokens meet or exceed the
// ceiling.
func (g *TokenBudget) Evaluate(_ context.Context, input Input) (Result, error) {
	if input.Session == nil {
		return Result{}, sserr.New(sserr.CodeValidationRequired,
			"guardrail: token budget requires a session")
	}

	used := input.Session.TotalTokens()
	if used < g.MaxTokens {
		return Pass(), nil
	}

	severity := g.Severity
	if severity == "" {
		severity = SeverityCritical
	}
	result := Fail(severity, fmt.Sprintf("session used %d tokens of a %d token budget", used, g.MaxTokens))
	result.Details = map[string]any{
		"used_tokens": used,
		"max_tokens":  g.MaxTokens,
	}
	return result, nil
}
