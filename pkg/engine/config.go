package engine

import (
	"time"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
	"github.com/StricklySoft/stricklysoft-engine/pkg/retry"
)

// Config holds the per-call execution policy: timeout, retry behavior,
// and caller metadata. Pass nil to [Execute] to use the engine's
// defaults ([WithDefaults]).
type Config struct {
	// Timeout bounds one attempt's execution. 0 disables the deadline.
	//
	// The timeout is a race: when it fires, the engine returns a
	// timeout failure and cancels the attempt's context. A task that
	// honors its context stops promptly; a task that ignores it is
	// abandoned and may keep running in the background, consuming
	// resources after the caller has already received the failure.
	Timeout time.Duration

	// Retry is the retry policy applied to failed attempts. The zero
	// policy disables retrying.
	Retry retry.Policy

	// Metadata is opaque caller data attached to the execution's audit
	// record. The engine never interprets it.
	Metadata map[string]any
}

// Validate checks the config and returns a [sserr.CodeValidation]
// error describing the first problem found.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return sserr.Newf(sserr.CodeValidationRange,
			"engine: timeout must not be negative, got %v", c.Timeout)
	}
	return c.Retry.Validate()
}

// Settings is the loader-friendly form of the engine's defaults,
// designed for [pkg/config]: every field maps to an environment
// variable and carries a default. Load it with config.Load or
// config.MustLoad, then build the engine with
// [WithDefaults](settings.Config()).
//
// Example:
//
//	settings := config.MustLoad[engine.Settings](config.New().WithEnvPrefix("ENGINE"))
//	eng, err := engine.New(engine.WithDefaults(settings.Config()))
type Settings struct {
	// Timeout bounds one attempt's execution. 0 disables the deadline.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"0s" yaml:"timeout" json:"timeout"`

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"3" yaml:"max_retries" json:"max_retries"`

	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s" yaml:"retry_initial_delay" json:"retry_initial_delay"`

	// MaxDelay caps the backoff between retries.
	MaxDelay time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s" yaml:"retry_max_delay" json:"retry_max_delay"`

	// BackoffMultiplier grows the delay between consecutive retries.
	BackoffMultiplier float64 `env:"RETRY_BACKOFF_MULTIPLIER" envDefault:"2.0" yaml:"retry_backoff_multiplier" json:"retry_backoff_multiplier"`

	// JitterFactor is the symmetric jitter fraction in [0, 1].
	JitterFactor float64 `env:"RETRY_JITTER_FACTOR" envDefault:"0.2" yaml:"retry_jitter_factor" json:"retry_jitter_factor"`

	// RetryableCodes is the comma-separated allow-list of retryable
	// error codes. Empty means every failure is retryable.
	RetryableCodes []string `env:"RETRYABLE_CODES" yaml:"retryable_codes" json:"retryable_codes"`
}

// Validate implements the config loader's Validator interface.
func (s *Settings) Validate() error {
	return s.policy().Validate()
}

// Config converts the settings into the engine [Config] they describe.
func (s *Settings) Config() Config {
	return Config{
		Timeout: s.Timeout,
		Retry:   s.policy(),
	}
}

func (s *Settings) policy() retry.Policy {
	codes := make([]sserr.Code, len(s.RetryableCodes))
	for i, c := range s.RetryableCodes {
		codes[i] = sserr.Code(c)
	}
	return retry.Policy{
		MaxRetries:        s.MaxRetries,
		InitialDelay:      s.InitialDelay,
		MaxDelay:          s.MaxDelay,
		BackoffMultiplier: s.BackoffMultiplier,
		JitterFactor:      s.JitterFactor,
		RetryableCodes:    codes,
	}
}
