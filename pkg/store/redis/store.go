package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
	"github.com/StricklySoft/stricklysoft-engine/pkg/session"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
// It follows the Go module path convention for OTel instrumentation libraries.
const tracerName = "github.com/StricklySoft/stricklysoft-engine/pkg/store/redis"

// keyPrefix namespaces session snapshot keys so the store can share a
// Redis database with other tenants.
const keyPrefix = "session:"

// Cmdable defines the Redis command operations the store depends on.
// This interface is satisfied by [*redis.Client] and by mock
// implementations for unit testing. It enables dependency injection via
// [NewFromClient] for testing without a real Redis instance.
//
// The interface is intentionally narrow, exposing only the operations
// that the [Store] wraps with tracing and error handling.
type Cmdable interface {
	// Set sets the string value of a key with an optional expiration.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd

	// Get returns the string value of a key.
	Get(ctx context.Context, key string) *redis.StringCmd

	// Del deletes one or more keys.
	Del(ctx context.Context, keys ...string) *redis.IntCmd

	// Exists returns the number of keys that exist from the specified keys.
	Exists(ctx context.Context, keys ...string) *redis.IntCmd

	// Expire sets an expiration on a key.
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd

	// TTL returns the remaining time to live of a key.
	TTL(ctx context.Context, key string) *redis.DurationCmd

	// Ping pings the Redis server.
	Ping(ctx context.Context) *redis.StatusCmd

	// Close closes the client connection.
	Close() error
}

// Compile-time interface compliance check. This ensures that *redis.Client
// satisfies the Cmdable interface at compile time rather than at runtime.
var _ Cmdable = (*redis.Client)(nil)

// Store persists session snapshots in Redis with a sliding TTL, with
// OpenTelemetry tracing and structured error handling. It is the hot
// tier of session persistence: a session survives process restarts for
// as long as its TTL, after which [pkg/store/minio] archives remain the
// durable record.
//
// A Store is safe for concurrent use by multiple goroutines. Create one
// Store per Redis instance and share it across the application.
//
// Create a Store with [New] for production use, or [NewFromClient] for
// testing with mock implementations.
type Store struct {
	cmdable Cmdable
	config  *Config
	tracer  trace.Tracer
	dbIndex int
}

// New creates a session store backed by a pooled Redis connection. It
// validates the configuration, creates a go-redis client with the
// appropriate options, and verifies connectivity with a ping.
//
// The caller must call [Store.Close] when the store is no longer needed
// to release connection resources.
//
// Error codes returned:
//   - [sserr.CodeValidation]: invalid configuration
//   - [sserr.CodeUnavailableDependency]: cannot connect to Redis
//
// Example:
//
//	cfg := redis.DefaultConfig()
//	cfg.Password = redis.Secret(os.Getenv("REDIS_PASSWORD"))
//	store, err := redis.New(ctx, *cfg)
//	if err != nil {
//	    return fmt.Errorf("connecting to redis: %w", err)
//	}
//	defer store.Close()
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeValidation,
			"redis: invalid configuration")
	}

	var opts *redis.Options
	if cfg.URI != "" {
		var err error
		opts, err = redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, sserr.Wrap(err, sserr.CodeValidation,
				"redis: failed to parse connection URI")
		}
		// Apply pool settings from config to parsed options.
		opts.PoolSize = cfg.PoolSize
		opts.MinIdleConns = cfg.MinIdleConns
		opts.MaxRetries = cfg.MaxRetries
		if cfg.DialTimeout > 0 {
			opts.DialTimeout = cfg.DialTimeout
		}
		if cfg.ReadTimeout > 0 {
			opts.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			opts.WriteTimeout = cfg.WriteTimeout
		}
	} else {
		opts = &redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password:     cfg.Password.Value(),
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}
		if cfg.TLSEnabled {
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}
	}

	rdb := redis.NewClient(opts)

	// Verify connectivity before returning the store.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, sserr.Wrap(err, sserr.CodeUnavailableDependency,
			"redis: failed to connect to server")
	}

	dbIndex := cfg.DB
	if cfg.URI != "" {
		dbIndex = opts.DB
	}

	return &Store{
		cmdable: rdb,
		config:  &cfg,
		tracer:  otel.Tracer(tracerName),
		dbIndex: dbIndex,
	}, nil
}

// NewFromClient creates a Store with a pre-existing [Cmdable]. This
// constructor is intended for testing with mock implementations and for
// advanced use cases where a custom client implementation is needed.
//
// The cfg parameter is stored but not validated; pass nil for a
// zero-value config in tests (zero TTL means snapshots never expire).
//
// Example (testing):
//
//	mock := &mockCmdable{}
//	store := redis.NewFromClient(mock, nil)
func NewFromClient(cmdable Cmdable, cfg *Config) *Store {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Store{
		cmdable: cmdable,
		config:  cfg,
		tracer:  otel.Tracer(tracerName),
		dbIndex: cfg.DB,
	}
}

// Save persists the session's snapshot under "session:{id}" with the
// configured TTL, overwriting any previous snapshot for the session.
// Because [session.Context] values are immutable, callers must Save the
// most recent derivation to persist accumulated costs and messages.
//
// Error codes returned:
//   - [sserr.CodeValidationRequired]: sess is nil
//   - [sserr.CodeTimeoutDatabase]: the context deadline elapsed
//   - [sserr.CodeInternalDatabase]: any other Redis failure
//
// Example:
//
//	sess, err := sess.RecordCost(cost)
//	if err != nil {
//	    return err
//	}
//	if err := store.Save(ctx, sess); err != nil {
//	    return err
//	}
func (s *Store) Save(ctx context.Context, sess *session.Context) error {
	if sess == nil {
		return sserr.New(sserr.CodeValidationRequired,
			"redis: session must not be nil")
	}

	payload, err := json.Marshal(sess.Snapshot())
	if err != nil {
		return sserr.Wrap(err, sserr.CodeInternal,
			"redis: failed to encode session snapshot")
	}

	key := keyPrefix + sess.SessionID()
	ctx, span := s.startSpan(ctx, "Save", fmt.Sprintf("SET %s", key))
	err = s.cmdable.Set(ctx, key, payload, s.config.TTL).Err()
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "redis: failed to save session snapshot")
	}
	return nil
}

// Load restores a session from its stored snapshot.
//
// Error codes returned:
//   - [sserr.CodeNotFoundSession]: no snapshot exists for sessionID
//   - [sserr.CodeTimeoutDatabase]: the context deadline elapsed
//   - [sserr.CodeInternalDatabase]: any other Redis failure
//   - [sserr.CodeInternal]: the stored payload is not a valid snapshot
func (s *Store) Load(ctx context.Context, sessionID string) (*session.Context, error) {
	key := keyPrefix + sessionID
	ctx, span := s.startSpan(ctx, "Load", fmt.Sprintf("GET %s", key))
	payload, err := s.cmdable.Get(ctx, key).Result()
	finishSpan(span, err)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sserr.Newf(sserr.CodeNotFoundSession,
				"redis: no snapshot for session %s", sessionID)
		}
		return nil, wrapError(err, "redis: failed to load session snapshot")
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInternal,
			"redis: stored snapshot for session %s is corrupt", sessionID)
	}
	return session.FromSnapshot(snap)
}

// Delete removes a session's snapshot. Deleting a session that does not
// exist is not an error; the returned bool reports whether a snapshot
// was actually removed.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	key := keyPrefix + sessionID
	ctx, span := s.startSpan(ctx, "Delete", fmt.Sprintf("DEL %s", key))
	removed, err := s.cmdable.Del(ctx, key).Result()
	finishSpan(span, err)
	if err != nil {
		return false, wrapError(err, "redis: failed to delete session snapshot")
	}
	return removed > 0, nil
}

// Exists reports whether a snapshot is stored for the session.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	key := keyPrefix + sessionID
	ctx, span := s.startSpan(ctx, "Exists", fmt.Sprintf("EXISTS %s", key))
	count, err := s.cmdable.Exists(ctx, key).Result()
	finishSpan(span, err)
	if err != nil {
		return false, wrapError(err, "redis: failed to check session snapshot")
	}
	return count > 0, nil
}

// Touch resets the snapshot's TTL to the configured value, keeping an
// active session alive without rewriting its payload. Returns false
// when no snapshot exists for the session.
func (s *Store) Touch(ctx context.Context, sessionID string) (bool, error) {
	if s.config.TTL <= 0 {
		// No TTL configured; nothing to extend.
		return s.Exists(ctx, sessionID)
	}
	key := keyPrefix + sessionID
	ctx, span := s.startSpan(ctx, "Touch", fmt.Sprintf("EXPIRE %s %v", key, s.config.TTL))
	ok, err := s.cmdable.Expire(ctx, key, s.config.TTL).Result()
	finishSpan(span, err)
	if err != nil {
		return false, wrapError(err, "redis: failed to extend session TTL")
	}
	return ok, nil
}

// TTL returns the remaining lifetime of a session's snapshot. Returns
// -1 if the snapshot exists but has no expiration, and -2 if no
// snapshot exists (go-redis conventions).
func (s *Store) TTL(ctx context.Context, sessionID string) (time.Duration, error) {
	key := keyPrefix + sessionID
	ctx, span := s.startSpan(ctx, "TTL", fmt.Sprintf("TTL %s", key))
	ttl, err := s.cmdable.TTL(ctx, key).Result()
	finishSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: failed to read session TTL")
	}
	return ttl, nil
}

// Health verifies that the Redis connection is alive by executing a
// ping. It applies [DefaultHealthTimeout] if the provided context has
// no deadline.
//
// Returns nil if Redis is reachable, or a [*sserr.Error] with code
// [sserr.CodeUnavailableDependency] if the ping fails. This method is
// designed for use with health check endpoints and readiness probes.
func (s *Store) Health(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Health", "PING")

	// Apply a default timeout if the caller's context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	err := s.cmdable.Ping(ctx).Err()
	finishSpan(span, err)
	if err != nil {
		return sserr.Wrap(err, sserr.CodeUnavailableDependency,
			"redis: health check failed")
	}
	return nil
}

// Close releases all connection resources. After Close is called, the
// store must not be used. Close is safe to call multiple times.
func (s *Store) Close() error {
	return s.cmdable.Close()
}

// startSpan creates a new OpenTelemetry span with standard database semantic
// attributes. It follows the OpenTelemetry semantic conventions for database
// client spans: https://opentelemetry.io/docs/specs/semconv/database/
func (s *Store) startSpan(ctx context.Context, operationName, statement string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "redis."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.Int("db.redis.database_index", s.dbIndex),
		attribute.String("db.statement", truncateStatement(statement)),
	)
	return ctx, span
}

// finishSpan records an error on the span (if any) and ends it. If err is
// nil, the span status is set to OK.
func finishSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// wrapError converts a Redis error to a platform [*sserr.Error] with an
// appropriate error code. It distinguishes between timeout errors and
// general Redis errors to enable callers to make retry decisions via
// [sserr.IsRetryable].
//
// [context.DeadlineExceeded] is classified as [sserr.CodeTimeoutDatabase]
// (retryable). [context.Canceled] is classified as
// [sserr.CodeInternalDatabase] (not retryable) because cancellation
// indicates the caller abandoned the operation, and retrying an
// intentionally canceled request is wasteful.
func wrapError(err error, message string) *sserr.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sserr.Wrap(err, sserr.CodeTimeoutDatabase, message)
	}
	return sserr.Wrap(err, sserr.CodeInternalDatabase, message)
}
