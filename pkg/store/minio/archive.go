// Package minio provides the cold-tier session archive backed by MinIO
// S3-compatible object storage, with OpenTelemetry tracing, structured
// error handling, and configuration management for services running on the
// StricklySoft Cloud Platform.
//
// # Persistence Model
//
// The archive is the durable counterpart to the Redis session store. Redis
// holds live snapshots with a TTL; when a session ends (or on a periodic
// sweep), the orchestrator writes the final snapshot here, where it survives
// Redis eviction. Each snapshot is a JSON object under a key derived from
// the session identifier and start time:
//
//	sessions/{session-id}/{start-time-rfc3339}.json
//
// A session that is snapshotted more than once therefore keeps exactly one
// object (the start time is immutable), and later writes overwrite earlier
// ones with the most recent state.
//
// # Connection Management
//
// The archive uses stateless HTTP connections. Unlike database clients,
// there is no connection pool to manage. An [Archive] is safe for concurrent
// use by multiple goroutines.
//
// # Configuration
//
// Create an archive using [New] with a [Config]:
//
//	cfg := minio.DefaultConfig()
//	cfg.AccessKey = "my-access-key"
//	cfg.SecretKey = minio.Secret("my-secret-key")
//	archive, err := minio.New(ctx, *cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer archive.Close()
//
// For testing, use [NewFromStore] to inject a mock store:
//
//	mock := &mockObjectStore{}
//	archive := minio.NewFromStore(mock, &minio.Config{Bucket: "test"})
//
// # OpenTelemetry Tracing
//
// All archive operations automatically create OpenTelemetry spans with
// standard database semantic attributes (db.system, db.name, db.statement).
// Operation descriptions are truncated to 100 characters in spans to prevent
// sensitive data leakage.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
	"github.com/StricklySoft/stricklysoft-engine/pkg/session"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
// It follows the Go module path convention for OTel instrumentation libraries.
const tracerName = "github.com/StricklySoft/stricklysoft-engine/pkg/store/minio"

// keyPrefix is the object key namespace for archived session snapshots.
const keyPrefix = "sessions/"

// noSuchKeyCode is the S3 error code returned when an object does not exist.
const noSuchKeyCode = "NoSuchKey"

// ObjectStore defines the subset of MinIO object storage operations the
// archive needs. It is satisfied by [*minio.Client] and by mock
// implementations for unit testing, enabling dependency injection via
// [NewFromStore] without a real MinIO server.
//
// All methods follow the minio-go v7 API signatures exactly, ensuring that
// [*minio.Client] satisfies this interface without adaptation.
type ObjectStore interface {
	// PutObject uploads an object to a bucket.
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)

	// GetObject retrieves an object from a bucket. The returned *minio.Object
	// implements io.ReadCloser and must be closed by the caller.
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)

	// RemoveObject deletes an object from a bucket.
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error

	// ListObjects returns a channel of objects in a bucket matching the
	// provided options (prefix, recursive, etc.).
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo

	// BucketExists checks whether a bucket exists on the server.
	BucketExists(ctx context.Context, bucketName string) (bool, error)

	// MakeBucket creates a new bucket with the given name and options.
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error

	// PresignedGetObject generates a presigned URL for downloading an object.
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Compile-time interface compliance check. This ensures that *minio.Client
// satisfies the ObjectStore interface at compile time rather than at runtime.
var _ ObjectStore = (*minio.Client)(nil)

// Archive is the cold-tier session snapshot store. It wraps an
// [ObjectStore] (typically [*minio.Client]) and adds cross-cutting concerns
// (tracing, error classification) transparently to all operations.
//
// An Archive is safe for concurrent use by multiple goroutines. Create one
// Archive per MinIO endpoint and share it across the application.
//
// Create an Archive with [New] for production use, or [NewFromStore] for
// testing with mock stores.
type Archive struct {
	store  ObjectStore
	config *Config
	tracer trace.Tracer
}

// New creates a new session archive. It validates the configuration,
// creates the underlying minio.Client, and verifies connectivity by
// calling BucketExists on the archive bucket. The bucket does not need to
// exist yet; call [Archive.EnsureBucket] to create it.
//
// Error codes returned:
//   - [sserr.CodeValidation]: invalid configuration
//   - [sserr.CodeUnavailableDependency]: cannot connect to MinIO
//   - [sserr.CodeInternalDatabase]: unexpected client creation failure
//
// Example:
//
//	cfg := minio.DefaultConfig()
//	cfg.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
//	cfg.SecretKey = minio.Secret(os.Getenv("MINIO_SECRET_KEY"))
//	archive, err := minio.New(ctx, *cfg)
//	if err != nil {
//	    return fmt.Errorf("connecting to minio: %w", err)
//	}
//	defer archive.Close()
func New(ctx context.Context, cfg Config) (*Archive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeValidation,
			"minio: invalid configuration")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey.Value(), ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeInternalDatabase,
			"minio: failed to create client")
	}

	// Verify connectivity by probing with BucketExists. The bucket does
	// not need to exist; a successful API call (even returning false)
	// confirms that the MinIO server is reachable and credentials are valid.
	if _, err := minioClient.BucketExists(ctx, cfg.Bucket); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeUnavailableDependency,
			"minio: failed to connect to server")
	}

	return &Archive{
		store:  minioClient,
		config: &cfg,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// NewFromStore creates an Archive with a pre-existing [ObjectStore]. This
// constructor is intended for testing with mock stores and for advanced
// use cases where a custom store implementation is needed.
//
// The cfg parameter is stored but not validated; pass nil for a zero-value
// config in tests.
func NewFromStore(store ObjectStore, cfg *Config) *Archive {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Archive{
		store:  store,
		config: cfg,
		tracer: otel.Tracer(tracerName),
	}
}

// Key returns the object key under which the given session's snapshot is
// archived. The key embeds the session identifier and its immutable start
// time, so repeated archives of the same session overwrite a single object.
func Key(sessionID string, startTime time.Time) string {
	return fmt.Sprintf("%s%s/%s.json", keyPrefix, sessionID,
		startTime.UTC().Format(time.RFC3339))
}

// EnsureBucket creates the archive bucket if it does not already exist,
// with OpenTelemetry tracing. It is idempotent and intended to be called
// once at service startup.
//
// Error codes returned:
//   - [sserr.CodeTimeoutDatabase] if the context deadline is exceeded
//   - [sserr.CodeInternalDatabase] for all other storage errors
func (a *Archive) EnsureBucket(ctx context.Context) error {
	ctx, span := a.startSpan(ctx, "EnsureBucket",
		fmt.Sprintf("MAKE %s", a.config.Bucket))

	exists, err := a.store.BucketExists(ctx, a.config.Bucket)
	if err != nil {
		finishSpan(span, err)
		return wrapError(err, "minio: bucket exists check failed")
	}
	if exists {
		finishSpan(span, nil)
		return nil
	}

	err = a.store.MakeBucket(ctx, a.config.Bucket, minio.MakeBucketOptions{
		Region: a.config.Region,
	})
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "minio: make bucket failed")
	}
	return nil
}

// Save archives the session's current snapshot and returns the object key
// it was written under. The snapshot is serialized as JSON and uploaded
// with a Content-Type of application/json.
//
// Saving the same session again overwrites the previous snapshot, since the
// key is derived from the session's immutable identity (see [Key]).
//
// Error codes returned:
//   - [sserr.CodeValidationRequired] if sess is nil
//   - [sserr.CodeInternal] if the snapshot cannot be serialized
//   - [sserr.CodeTimeoutDatabase] if the context deadline is exceeded
//   - [sserr.CodeInternalDatabase] for all other storage errors
func (a *Archive) Save(ctx context.Context, sess *session.Context) (string, error) {
	if sess == nil {
		return "", sserr.New(sserr.CodeValidationRequired,
			"minio: session must not be nil")
	}

	key := Key(sess.SessionID(), sess.StartTime())
	ctx, span := a.startSpan(ctx, "Save",
		fmt.Sprintf("PUT %s/%s", a.config.Bucket, key))

	payload, err := json.Marshal(sess.Snapshot())
	if err != nil {
		finishSpan(span, err)
		return "", sserr.Wrap(err, sserr.CodeInternal,
			"minio: failed to serialize session snapshot")
	}

	_, err = a.store.PutObject(ctx, a.config.Bucket, key,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	finishSpan(span, err)
	if err != nil {
		return "", wrapError(err, "minio: failed to archive session snapshot")
	}
	return key, nil
}

// Load retrieves an archived snapshot by its object key and rebuilds the
// session context from it. Derived fields (totals, remaining budget) are
// recomputed from the restored cost entries rather than trusted from the
// stored document.
//
// Error codes returned:
//   - [sserr.CodeNotFoundSession] if no object exists under the key
//   - [sserr.CodeInternal] if the stored document is not valid JSON
//   - [sserr.CodeTimeoutDatabase] if the context deadline is exceeded
//   - [sserr.CodeInternalDatabase] for all other storage errors
func (a *Archive) Load(ctx context.Context, key string) (*session.Context, error) {
	ctx, span := a.startSpan(ctx, "Load",
		fmt.Sprintf("GET %s/%s", a.config.Bucket, key))

	obj, err := a.store.GetObject(ctx, a.config.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		finishSpan(span, err)
		return nil, wrapError(err, "minio: failed to fetch archived snapshot")
	}
	defer obj.Close()

	// minio-go defers most errors (including NoSuchKey) until the first
	// read, so missing objects are detected here rather than at GetObject.
	payload, err := io.ReadAll(obj)
	finishSpan(span, err)
	if err != nil {
		if minio.ToErrorResponse(err).Code == noSuchKeyCode {
			return nil, sserr.Wrapf(err, sserr.CodeNotFoundSession,
				"minio: no archived snapshot at %s", key)
		}
		return nil, wrapError(err, "minio: failed to read archived snapshot")
	}

	var snap session.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInternal,
			"minio: corrupt archived snapshot at %s", key)
	}
	return session.FromSnapshot(snap)
}

// List returns the object keys of all archived snapshots for the given
// session, in lexical key order. A session with no archived snapshots
// yields an empty slice, not an error.
//
// Error codes returned:
//   - [sserr.CodeTimeoutDatabase] if the context deadline is exceeded
//   - [sserr.CodeInternalDatabase] for all other storage errors
func (a *Archive) List(ctx context.Context, sessionID string) ([]string, error) {
	prefix := keyPrefix + sessionID + "/"
	ctx, span := a.startSpan(ctx, "List",
		fmt.Sprintf("LIST %s prefix=%s", a.config.Bucket, prefix))

	keys := make([]string, 0)
	for info := range a.store.ListObjects(ctx, a.config.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			finishSpan(span, info.Err)
			return nil, wrapError(info.Err, "minio: failed to list archived snapshots")
		}
		keys = append(keys, info.Key)
	}
	finishSpan(span, nil)
	return keys, nil
}

// Delete removes an archived snapshot by its object key. Deleting a key
// that does not exist is not an error; object removal is idempotent.
//
// Error codes returned:
//   - [sserr.CodeTimeoutDatabase] if the context deadline is exceeded
//   - [sserr.CodeInternalDatabase] for all other storage errors
func (a *Archive) Delete(ctx context.Context, key string) error {
	ctx, span := a.startSpan(ctx, "Delete",
		fmt.Sprintf("DELETE %s/%s", a.config.Bucket, key))

	err := a.store.RemoveObject(ctx, a.config.Bucket, key, minio.RemoveObjectOptions{})
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "minio: failed to delete archived snapshot")
	}
	return nil
}

// DownloadURL generates a presigned URL for downloading an archived
// snapshot without MinIO credentials. The URL expires after the given
// duration. This is how archived sessions are handed to support tooling
// and audit exports.
//
// Error codes returned:
//   - [sserr.CodeTimeoutDatabase] if the context deadline is exceeded
//   - [sserr.CodeInternalDatabase] for all other storage errors
func (a *Archive) DownloadURL(ctx context.Context, key string, expires time.Duration) (*url.URL, error) {
	ctx, span := a.startSpan(ctx, "DownloadURL",
		fmt.Sprintf("PRESIGN GET %s/%s", a.config.Bucket, key))

	u, err := a.store.PresignedGetObject(ctx, a.config.Bucket, key, expires, nil)
	finishSpan(span, err)
	if err != nil {
		return nil, wrapError(err, "minio: failed to presign download")
	}
	return u, nil
}

// Health verifies that the MinIO server is reachable by calling BucketExists
// on the archive bucket. The bucket does not need to exist; a successful API
// call confirms connectivity. It applies [DefaultHealthTimeout] if the
// provided context has no deadline.
//
// Returns nil if MinIO is reachable, or a [*sserr.Error] with code
// [sserr.CodeUnavailableDependency] if the probe fails. This method is
// designed for use with health check endpoints and readiness probes.
func (a *Archive) Health(ctx context.Context) error {
	ctx, span := a.startSpan(ctx, "Health",
		fmt.Sprintf("HEAD %s", a.config.Bucket))

	// Apply a default timeout if the caller's context has no deadline.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	_, err := a.store.BucketExists(ctx, a.config.Bucket)
	finishSpan(span, err)
	if err != nil {
		return sserr.Wrap(err, sserr.CodeUnavailableDependency,
			"minio: health check failed")
	}
	return nil
}

// Close is a no-op for the archive. Unlike database clients with connection
// pools, the MinIO client uses stateless HTTP connections that do not
// require explicit cleanup. This method is provided for interface
// consistency with the other store packages.
//
// Close is safe to call multiple times.
func (a *Archive) Close() {
	// No-op: MinIO client uses stateless HTTP connections.
}

// startSpan creates a new OpenTelemetry span with standard database semantic
// attributes. It follows the OpenTelemetry semantic conventions for database
// client spans: https://opentelemetry.io/docs/specs/semconv/database/
func (a *Archive) startSpan(ctx context.Context, operationName, statement string) (context.Context, trace.Span) {
	ctx, span := a.tracer.Start(ctx, "minio."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "minio"),
		attribute.String("db.name", a.config.Bucket),
		attribute.String("db.statement", truncateStatement(statement)),
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

// wrapError converts a storage error to a platform [*sserr.Error] with an
// appropriate error code. It distinguishes between timeout errors and general
// storage errors to enable callers to make retry decisions via
// [sserr.IsRetryable].
//
// [context.DeadlineExceeded] is classified as [sserr.CodeTimeoutDatabase]
// (retryable). [context.Canceled] is classified as [sserr.CodeInternalDatabase]
// (not retryable) because cancellation indicates the caller abandoned the
// operation, and retrying an intentionally canceled request is wasteful.
func wrapError(err error, message string) *sserr.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sserr.Wrap(err, sserr.CodeTimeoutDatabase, message)
	}
	return sserr.Wrap(err, sserr.CodeInternalDatabase, message)
}
