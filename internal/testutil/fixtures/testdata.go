// Package fixtures provides shared test data constants for the
// StricklySoft execution engine test suite.
//
// Using common constants for test session and task identities prevents
// magic strings in tests and ensures consistency across packages.
package fixtures

// Standard session identity values used across engine and store tests.
const (
	// SessionID is the default session ID for unit tests.
	SessionID = "sess-001"

	// UserID is the default user ID for unit tests.
	UserID = "user-abc-123"

	// AltSessionID is an alternative session ID for tests requiring two
	// sessions.
	AltSessionID = "sess-002"

	// SessionBudgetUSD is the default session budget for budget tests.
	SessionBudgetUSD = 10.0
)

// Standard task identity values used in engine tests.
const (
	// TaskName is the default task name for unit tests.
	TaskName = "summarize"

	// AltTaskName is an alternative task name for fan-out tests.
	AltTaskName = "classify"

	// TestProvider is the default model provider for test tasks.
	TestProvider = "anthropic"

	// TestModel is the default model identifier for test tasks.
	TestModel = "claude-sonnet-4"
)

// Standard configuration values used in config loader tests.
const (
	// TestEnvPrefix is the default environment variable prefix for config tests.
	TestEnvPrefix = "TESTAPP"

	// TestConfigYAML is a minimal valid YAML configuration for tests.
	TestConfigYAML = `host: localhost
port: 8080
database: testdb
`

	// TestConfigJSON is a minimal valid JSON configuration for tests.
	TestConfigJSON = `{
  "host": "localhost",
  "port": 8080,
  "database": "testdb"
}`
)

// Standard database configuration values used in postgres store tests.
const (
	// TestDBHost is the default database host for test configurations.
	TestDBHost = "localhost"

	// TestDBPort is the default database port for test configurations.
	TestDBPort = 5432

	// TestDBName is the default database name for test configurations.
	TestDBName = "testdb"

	// TestDBUser is the default database user for test configurations.
	TestDBUser = "testuser"

	// TestDBPassword is the default database password for test configurations.
	// This is a deliberately weak value suitable only for unit tests.
	TestDBPassword = "testpass"
)
