//go:build integration

// Package redis_test contains integration tests for the Redis session
// store that require a running Redis instance via testcontainers-go.
// These tests are gated behind the "integration" build tag and are
// executed in CI with Docker.
//
// Run locally with:
//
//	go test -v -race -tags=integration ./pkg/store/redis/...
//
// Or via Makefile:
//
//	make test-integration
//
// # Architecture
//
// All tests run within a single [suite.Suite] that starts one Redis
// container in [SetupSuite] and terminates it in [TearDownSuite]. Test
// isolation is achieved via unique session IDs per test method rather
// than per-test containers, which reduces total execution time.
package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/StricklySoft/stricklysoft-engine/internal/testutil/containers"
	sserr "github.com/StricklySoft/stricklysoft-engine/pkg/errors"
	"github.com/StricklySoft/stricklysoft-engine/pkg/session"
	"github.com/StricklySoft/stricklysoft-engine/pkg/store/redis"
)

// ===========================================================================
// Suite Definition
// ===========================================================================

// RedisStoreIntegrationSuite runs all session store integration tests
// against a single shared container. The container is started once in
// SetupSuite and terminated in TearDownSuite. All test methods share
// the same store, using unique session IDs for isolation.
type RedisStoreIntegrationSuite struct {
	suite.Suite

	// ctx is the background context used for container and store
	// lifecycle operations.
	ctx context.Context

	// redisResult holds the started Redis container and connection
	// string. It is set in SetupSuite and used to terminate the
	// container in TearDownSuite.
	redisResult *containers.RedisResult

	// store is the session store connected to the test container.
	store *redis.Store
}

// SetupSuite starts a single Redis container and creates a store shared
// across all tests in the suite. This runs once before any test method
// executes.
func (s *RedisStoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	result, err := containers.StartRedis(s.ctx)
	require.NoError(s.T(), err, "failed to start Redis container")
	s.redisResult = result

	cfg := redis.Config{
		URI: result.ConnString,
		TTL: time.Hour,
	}
	store, err := redis.New(s.ctx, cfg)
	require.NoError(s.T(), err, "failed to create session store")
	s.store = store
}

// TearDownSuite closes the store and terminates the container. This
// runs once after all test methods have completed.
func (s *RedisStoreIntegrationSuite) TearDownSuite() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.redisResult != nil {
		if err := s.redisResult.Container.Terminate(s.ctx); err != nil {
			s.T().Logf("failed to terminate redis container: %v", err)
		}
	}
}

// TestRedisStoreIntegration is the top-level entry point that runs all
// suite tests. It is skipped in short mode (-short flag) to allow fast
// unit test runs without Docker.
func TestRedisStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreIntegrationSuite))
}

// ===========================================================================
// Round-Trip Tests
// ===========================================================================

// TestSaveAndLoad_RoundTrip verifies that a session survives the
// snapshot round trip with identity, budget, and ledger intact.
func (s *RedisStoreIntegrationSuite) TestSaveAndLoad_RoundTrip() {
	sess, err := session.New(
		session.WithSessionID("it-roundtrip"),
		session.WithUserID("user-42"),
		session.WithBudget(10.00),
	)
	require.NoError(s.T(), err)
	sess, err = sess.RecordCost(session.Cost{
		Provider:     "anthropic",
		Model:        "claude-sonnet-4",
		InputTokens:  100,
		OutputTokens: 50,
		AmountUSD:    0.25,
	})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.store.Save(s.ctx, sess))

	loaded, err := s.store.Load(s.ctx, "it-roundtrip")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "it-roundtrip", loaded.SessionID())
	assert.Equal(s.T(), "user-42", loaded.UserID())
	assert.Equal(s.T(), 10.00, loaded.Budget())
	assert.InDelta(s.T(), 0.25, loaded.TotalCost(), 1e-9)
	assert.Equal(s.T(), 150, loaded.TotalTokens())
}

// TestSave_OverwritesPreviousSnapshot verifies that saving a derived
// session replaces the stored state.
func (s *RedisStoreIntegrationSuite) TestSave_OverwritesPreviousSnapshot() {
	sess, err := session.New(session.WithSessionID("it-overwrite"), session.WithBudget(1.00))
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.Save(s.ctx, sess))

	sess, err = sess.RecordCost(session.Cost{Provider: "anthropic", AmountUSD: 0.40})
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.Save(s.ctx, sess))

	loaded, err := s.store.Load(s.ctx, "it-overwrite")
	require.NoError(s.T(), err)
	assert.InDelta(s.T(), 0.40, loaded.TotalCost(), 1e-9)
}

// TestLoad_Missing verifies the not-found classification for unknown
// sessions.
func (s *RedisStoreIntegrationSuite) TestLoad_Missing() {
	_, err := s.store.Load(s.ctx, "it-never-saved")
	require.Error(s.T(), err)
	assert.True(s.T(), sserr.HasCode(err, sserr.CodeNotFoundSession))
}

// ===========================================================================
// Lifetime Tests
// ===========================================================================

// TestDelete_RemovesSnapshot verifies deletion and its idempotency.
func (s *RedisStoreIntegrationSuite) TestDelete_RemovesSnapshot() {
	sess, err := session.New(session.WithSessionID("it-delete"))
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.Save(s.ctx, sess))

	removed, err := s.store.Delete(s.ctx, "it-delete")
	require.NoError(s.T(), err)
	assert.True(s.T(), removed)

	removed, err = s.store.Delete(s.ctx, "it-delete")
	require.NoError(s.T(), err)
	assert.False(s.T(), removed, "second delete should be a no-op")
}

// TestTouch_ExtendsLifetime verifies that Touch refreshes the TTL of a
// stored snapshot.
func (s *RedisStoreIntegrationSuite) TestTouch_ExtendsLifetime() {
	sess, err := session.New(session.WithSessionID("it-touch"))
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.Save(s.ctx, sess))

	ok, err := s.store.Touch(s.ctx, "it-touch")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	ttl, err := s.store.TTL(s.ctx, "it-touch")
	require.NoError(s.T(), err)
	assert.Greater(s.T(), ttl, 59*time.Minute, "TTL should be near the configured hour")
}

// TestExists verifies existence reporting against live data.
func (s *RedisStoreIntegrationSuite) TestExists() {
	sess, err := session.New(session.WithSessionID("it-exists"))
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.Save(s.ctx, sess))

	ok, err := s.store.Exists(s.ctx, "it-exists")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	ok, err = s.store.Exists(s.ctx, "it-absent")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

// TestHealth verifies the health probe against a live instance.
func (s *RedisStoreIntegrationSuite) TestHealth() {
	require.NoError(s.T(), s.store.Health(s.ctx))
}
