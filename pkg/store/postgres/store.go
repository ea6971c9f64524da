// Package postgres persists execution audit records in PostgreSQL with
// connection pooling and OpenTelemetry tracing for services running on
// the StricklySoft Cloud Platform.
//
// # Audit Model
//
// Every engine call produces a [models.Execution]; the [Store]'s Record
// method upserts it into the executions table, so it satisfies the
// engine's Recorder interface directly:
//
//	store, err := postgres.New(ctx, *postgres.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//	eng, err := engine.New(engine.WithRecorder(store))
//
// Records are queryable by execution ID and by session, and per-session
// cost totals support budget reconciliation against the session ledger.
//
// # Connection Management
//
// The store uses pgxpool for connection pooling, automatically managing
// a pool of persistent connections. Connection retry for transient
// failures is handled internally by pgxpool — failed connections are
// replaced and the health check period keeps the pool healthy.
//
// For testing, use [NewFromPool] to inject a mock pool:
//
//	mock, _ := pgxmock.NewPool()
//	store := postgres.NewFromPool(mock, &postgres.Config{Database: "testdb"})
//
// # OpenTelemetry Tracing
//
// All database operations automatically create OpenTelemetry spans with
// standard database semantic attributes (db.system, db.name,
// db.statement). SQL statements are truncated to 100 characters in
// spans to prevent sensitive data leakage.
//
// # Kubernetes Integration
//
// On the StricklySoft Cloud Platform, PostgreSQL is accessed via a
// Kubernetes Service at postgres.databases.svc.cluster.local:5432.
// Credentials are injected by the External Secrets Operator from Vault.
// Linkerd provides mTLS at the network layer via opaque port annotation
// (config.linkerd.io/opaque-ports: "5432").
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
	"github.com/StricklySoft/stricklysoft-engine/pkg/models"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
// It follows the Go module path convention for OTel instrumentation libraries.
const tracerName = "github.com/StricklySoft/stricklysoft-engine/pkg/store/postgres"

// Pool defines the interface for PostgreSQL connection pool operations.
// This interface is satisfied by [*pgxpool.Pool] and by mock implementations
// such as pgxmock for unit testing. It enables dependency injection via
// [NewFromPool] for testing without a real database.
//
// All methods follow the pgx v5 API signatures exactly, ensuring that
// [*pgxpool.Pool] satisfies this interface without adaptation.
type Pool interface {
	// Query executes a SQL query that returns rows.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

	// QueryRow executes a SQL query that returns at most one row.
	// Errors are deferred until the returned pgx.Row is scanned.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	// Exec executes a SQL statement that does not return rows
	// (INSERT, UPDATE, DELETE, DDL).
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// Ping verifies the connection to the database is alive.
	Ping(ctx context.Context) error

	// Close releases all pool resources. After Close is called,
	// the pool must not be used.
	Close()
}

// Compile-time interface compliance check. This ensures that *pgxpool.Pool
// satisfies the Pool interface at compile time rather than at runtime.
var _ Pool = (*pgxpool.Pool)(nil)

// migrateSQL creates the executions table and its session index. The
// statement is idempotent so Migrate can run on every startup.
const migrateSQL = `
CREATE TABLE IF NOT EXISTS executions (
	id            UUID PRIMARY KEY,
	session_id    TEXT NOT NULL,
	task_name     TEXT NOT NULL,
	provider      TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	attempts      INTEGER NOT NULL DEFAULT 0,
	start_time    TIMESTAMPTZ NOT NULL,
	end_time      TIMESTAMPTZ,
	tokens_used   INTEGER NOT NULL DEFAULT 0,
	cost_usd      DOUBLE PRECISION NOT NULL DEFAULT 0,
	error_code    TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	metadata      JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS executions_session_idx
	ON executions (session_id, created_at DESC)`

// recordSQL upserts an execution record. Re-recording the same
// execution ID (e.g. a replayed audit event) updates the mutable
// outcome columns and leaves identity columns untouched.
const recordSQL = `
INSERT INTO executions (
	id, session_id, task_name, provider, model, status, attempts,
	start_time, end_time, tokens_used, cost_usd, error_code,
	error_message, metadata, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	attempts = EXCLUDED.attempts,
	end_time = EXCLUDED.end_time,
	tokens_used = EXCLUDED.tokens_used,
	cost_usd = EXCLUDED.cost_usd,
	error_code = EXCLUDED.error_code,
	error_message = EXCLUDED.error_message,
	metadata = EXCLUDED.metadata,
	updated_at = EXCLUDED.updated_at`

// selectColumns is the column list shared by Get and ListBySession so
// scanExecution stays in sync with both queries.
const selectColumns = `id, session_id, task_name, provider, model, status, attempts,
	start_time, end_time, tokens_used, cost_usd, error_code, error_message,
	metadata, created_at, updated_at`

const getSQL = `SELECT ` + selectColumns + ` FROM executions WHERE id = $1`

const listBySessionSQL = `SELECT ` + selectColumns + `
	FROM executions WHERE session_id = $1
	ORDER BY created_at DESC LIMIT $2`

const sessionCostSQL = `SELECT COALESCE(SUM(cost_usd), 0), COALESCE(SUM(tokens_used), 0)
	FROM executions WHERE session_id = $1`

// Store persists execution audit records in PostgreSQL. It implements
// the engine's Recorder interface, so it can be wired directly into an
// engine via WithRecorder.
//
// A Store is safe for concurrent use by multiple goroutines. Create one
// Store per database and share it across the application.
//
// Create a Store with [New] for production use, or [NewFromPool] for
// testing with mock pools.
type Store struct {
	pool         Pool
	config       *Config
	tracer       trace.Tracer
	databaseName string
}

// New creates an execution store with a pooled PostgreSQL connection.
// It validates the configuration, establishes the connection pool,
// configures TLS if a custom CA certificate is provided, and verifies
// connectivity with a ping.
//
// The caller must call [Store.Close] when the store is no longer needed
// to release pool resources.
//
// Error codes returned:
//   - [sserr.CodeValidation]: invalid configuration
//   - [sserr.CodeInternalConfiguration]: TLS setup failure
//   - [sserr.CodeUnavailableDependency]: cannot connect to the database
//
// Example:
//
//	cfg := postgres.DefaultConfig()
//	cfg.Password = postgres.Secret(os.Getenv("POSTGRES_PASSWORD"))
//	store, err := postgres.New(ctx, *cfg)
//	if err != nil {
//	    return fmt.Errorf("connecting to database: %w", err)
//	}
//	defer store.Close()
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeValidation,
			"postgres: invalid configuration")
	}

	connStr := cfg.ConnectionString()

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeValidation,
			"postgres: failed to parse connection string")
	}

	// Apply pool settings from validated config.
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	// Apply custom TLS if a CA certificate is provided.
	tlsCfg, err := cfg.tlsConfig()
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeInternalConfiguration,
			"postgres: failed to configure TLS")
	}
	if tlsCfg != nil {
		poolCfg.ConnConfig.TLSConfig = tlsCfg
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeUnavailableDependency,
			"postgres: failed to create connection pool")
	}

	// Verify connectivity before returning the store.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, sserr.Wrap(err, sserr.CodeUnavailableDependency,
			"postgres: failed to connect to database")
	}

	// Extract database name for span attributes.
	dbName := cfg.Database
	if cfg.URI != "" {
		if u, parseErr := url.Parse(cfg.URI); parseErr == nil {
			dbName = strings.TrimPrefix(u.Path, "/")
		}
	}

	return &Store{
		pool:         pool,
		config:       &cfg,
		tracer:       otel.Tracer(tracerName),
		databaseName: dbName,
	}, nil
}

// NewFromPool creates a Store with a pre-existing [Pool]. This constructor
// is intended for testing with mock pools (e.g., pgxmock) and for advanced
// use cases where a custom pool implementation is needed.
//
// The cfg parameter is stored but not validated; pass nil for a zero-value
// config in tests. The database name is used for OpenTelemetry span
// attributes.
//
// Example (testing):
//
//	mock, _ := pgxmock.NewPool()
//	store := postgres.NewFromPool(mock, nil)
//	defer mock.Close()
func NewFromPool(pool Pool, cfg *Config) *Store {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Store{
		pool:         pool,
		config:       cfg,
		tracer:       otel.Tracer(tracerName),
		databaseName: cfg.Database,
	}
}

// Migrate creates the executions table and its indexes if they do not
// exist. It is idempotent and intended to run on service startup.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Migrate", migrateSQL)

	_, err := s.pool.Exec(ctx, migrateSQL)
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "postgres: migration failed")
	}
	return nil
}

// Record upserts an execution audit record. Recording the same
// execution ID again updates its outcome columns (status, attempts,
// end time, usage, error), which lets the engine re-record an
// execution after late-arriving usage data.
//
// Error codes returned:
//   - [sserr.CodeValidationRequired]: exec is nil
//   - [sserr.CodeValidation]: exec fails [models.Execution.Validate]
//   - [sserr.CodeTimeoutDatabase]: the context deadline elapsed
//   - [sserr.CodeInternalDatabase]: any other database failure
func (s *Store) Record(ctx context.Context, exec *models.Execution) error {
	if exec == nil {
		return sserr.New(sserr.CodeValidationRequired,
			"postgres: execution must not be nil")
	}
	if err := exec.Validate(); err != nil {
		return err
	}

	metadata, err := json.Marshal(exec.Metadata)
	if err != nil {
		return sserr.Wrap(err, sserr.CodeInternal,
			"postgres: failed to encode execution metadata")
	}

	ctx, span := s.startSpan(ctx, "Record", recordSQL)
	_, err = s.pool.Exec(ctx, recordSQL,
		exec.ID, exec.SessionID, exec.TaskName, exec.Provider, exec.Model,
		string(exec.Status), exec.Attempts, exec.StartTime, exec.EndTime,
		exec.TokensUsed, exec.CostUSD, exec.ErrorCode, exec.ErrorMessage,
		metadata, exec.CreatedAt, exec.UpdatedAt,
	)
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "postgres: failed to record execution")
	}
	return nil
}

// Get returns a single execution by its ID.
//
// Error codes returned:
//   - [sserr.CodeNotFoundExecution]: no record with that ID exists
//   - [sserr.CodeTimeoutDatabase]: the context deadline elapsed
//   - [sserr.CodeInternalDatabase]: any other database failure
func (s *Store) Get(ctx context.Context, id string) (*models.Execution, error) {
	ctx, span := s.startSpan(ctx, "Get", getSQL)
	defer span.End()

	row := s.pool.QueryRow(ctx, getSQL, id)
	exec, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sserr.Newf(sserr.CodeNotFoundExecution,
				"postgres: no execution with ID %s", id)
		}
		return nil, wrapError(err, "postgres: failed to load execution")
	}
	return exec, nil
}

// ListBySession returns a session's executions, most recent first,
// capped at limit. A non-positive limit defaults to 100.
func (s *Store) ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Execution, error) {
	if limit <= 0 {
		limit = 100
	}

	ctx, span := s.startSpan(ctx, "ListBySession", listBySessionSQL)
	rows, err := s.pool.Query(ctx, listBySessionSQL, sessionID, limit)
	if err != nil {
		finishSpan(span, err)
		return nil, wrapError(err, "postgres: failed to list executions")
	}
	defer rows.Close()

	var execs []*models.Execution
	for rows.Next() {
		exec, scanErr := scanExecution(rows)
		if scanErr != nil {
			finishSpan(span, scanErr)
			return nil, wrapError(scanErr, "postgres: failed to scan execution")
		}
		execs = append(execs, exec)
	}
	if err := rows.Err(); err != nil {
		finishSpan(span, err)
		return nil, wrapError(err, "postgres: failed to iterate executions")
	}
	finishSpan(span, nil)
	return execs, nil
}

// SessionCost returns the summed recorded cost (USD) and token usage of
// a session's executions. Sessions with no recorded executions report
// zero for both, not an error.
func (s *Store) SessionCost(ctx context.Context, sessionID string) (costUSD float64, tokens int, err error) {
	ctx, span := s.startSpan(ctx, "SessionCost", sessionCostSQL)
	defer span.End()

	row := s.pool.QueryRow(ctx, sessionCostSQL, sessionID)
	if err := row.Scan(&costUSD, &tokens); err != nil {
		return 0, 0, wrapError(err, "postgres: failed to sum session cost")
	}
	return costUSD, tokens, nil
}

// Health verifies that the database connection is alive by executing a ping.
// It applies [DefaultHealthTimeout] if the provided context has no deadline.
//
// Returns nil if the database is reachable, or a [*sserr.Error] with code
// [sserr.CodeUnavailableDependency] if the ping fails. This method is
// designed for use with health check endpoints and readiness probes.
func (s *Store) Health(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Health", "SELECT 1")

	// Apply a default timeout if the caller's context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	err := s.pool.Ping(ctx)
	finishSpan(span, err)
	if err != nil {
		return sserr.Wrap(err, sserr.CodeUnavailableDependency,
			"postgres: health check failed")
	}
	return nil
}

// Close releases all connection pool resources. After Close is called,
// the store must not be used. Close is safe to call multiple times.
//
// Close waits for all acquired connections to be released before closing
// the pool. Ensure all in-flight queries have completed or their contexts
// have been canceled before calling Close.
func (s *Store) Close() {
	s.pool.Close()
}

// scanExecution reads one executions row into a [models.Execution]. The
// row must have been selected with selectColumns ordering.
func scanExecution(row pgx.Row) (*models.Execution, error) {
	var (
		exec     models.Execution
		status   string
		metadata []byte
	)
	err := row.Scan(
		&exec.ID, &exec.SessionID, &exec.TaskName, &exec.Provider, &exec.Model,
		&status, &exec.Attempts, &exec.StartTime, &exec.EndTime,
		&exec.TokensUsed, &exec.CostUSD, &exec.ErrorCode, &exec.ErrorMessage,
		&metadata, &exec.CreatedAt, &exec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	exec.Status = models.ExecutionStatus(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &exec.Metadata); err != nil {
			return nil, err
		}
	}
	if exec.Metadata == nil {
		exec.Metadata = map[string]any{}
	}
	return &exec, nil
}

// startSpan creates a new OpenTelemetry span with standard database semantic
// attributes. It follows the OpenTelemetry semantic conventions for database
// client spans: https://opentelemetry.io/docs/specs/semconv/database/
func (s *Store) startSpan(ctx context.Context, operationName, sql string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "postgres."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.name", s.databaseName),
		attribute.String("db.statement", truncateSQL(sql)),
	)
	return ctx, span
}

// finishSpan records an error on the span (if any) and ends it. If err is
// nil, the span status is set to OK.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// wrapError converts a database error to a platform [*sserr.Error] with an
// appropriate error code. It distinguishes between timeout/cancellation
// errors and general database errors to enable callers to make retry
// decisions via [sserr.IsRetryable].
func wrapError(err error, message string) *sserr.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return sserr.Wrap(err, sserr.CodeTimeoutDatabase, message)
	}
	return sserr.Wrap(err, sserr.CodeInternalDatabase, message)
}
