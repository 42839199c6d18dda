// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

//go:build integration

package redis_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/xelfe/geekcraft/internal/auth"
	"github.com/xelfe/geekcraft/internal/auth/redis"
	"github.com/xelfe/geekcraft/internal/auth/storetest"
)

// testURL is the connection string of the shared Redis container.
var testURL string

// TestMain sets up a Redis testcontainer for integration tests.
func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		panic("failed to start redis container: " + err.Error())
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to get connection string: " + err.Error())
	}
	testURL = url

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

// newTestStore returns a store backed by a flushed database, so each
// subtest starts empty.
func newTestStore(t *testing.T) *redis.Store {
	t.Helper()
	ctx := context.Background()

	opts, err := goredis.ParseURL(testURL)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	require.NoError(t, client.FlushDB(ctx).Err())

	store := redis.NewStoreWithClient(client)
	t.Cleanup(func() { _ = store.Close(ctx) })
	return store
}

func TestStoreContract(t *testing.T) {
	suite := storetest.Suite{
		NewStore: func(t *testing.T) auth.Store {
			return newTestStore(t)
		},
		SeedExpiredSession: seedExpiredSession,
	}
	storetest.Run(t, suite)
}

// seedExpiredSession writes a session record whose expiry timestamp has
// already passed. The key keeps a short positive TTL so the read path,
// not eviction, is what rejects it.
func seedExpiredSession(t *testing.T, _ auth.Store, username string) string {
	t.Helper()
	ctx := context.Background()

	opts, err := goredis.ParseURL(testURL)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	now := time.Now().UTC()
	session := auth.Session{
		Token:     "expired-token",
		Username:  username,
		CreatedAt: now.Add(-auth.SessionLifetime - time.Minute),
		ExpiresAt: now.Add(-time.Minute),
	}
	data, err := json.Marshal(session)
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, "session:"+session.Token, data, time.Minute).Err())

	return session.Token
}

func TestNewStoreBadURL(t *testing.T) {
	_, err := redis.NewStore(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestSessionKeyTTL(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	session, err := store.CreateSession(ctx, "alice")
	require.NoError(t, err)

	opts, err := goredis.ParseURL(testURL)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ttl, err := client.TTL(ctx, "session:"+session.Token).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, auth.SessionLifetime-time.Minute)
	require.LessOrEqual(t, ttl, auth.SessionLifetime)
}
