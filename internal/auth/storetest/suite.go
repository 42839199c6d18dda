// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

// Package storetest runs a shared contract suite against auth.Store
// implementations, so switching backends never changes observable
// behavior.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelfe/geekcraft/internal/auth"
)

// Suite describes a store under test. NewStore must return a fresh, empty
// store for each call. SeedExpiredSession, when non-nil, plants a session
// whose expiry has already passed, using whatever mechanism the backend
// offers, and returns its token; backends that cannot seed expired data
// leave it nil and the expiry subtest is skipped.
type Suite struct {
	NewStore           func(t *testing.T) auth.Store
	SeedExpiredSession func(t *testing.T, store auth.Store, username string) string
}

// Run executes the contract suite.
func Run(t *testing.T, suite Suite) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and get user", func(t *testing.T) {
		store := suite.NewStore(t)

		created, err := store.CreateUser(ctx, "alice", "hash-1")
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "alice", created.Username)
		assert.Equal(t, "hash-1", created.PasswordHash)

		got, err := store.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, created.Username, got.Username)
		assert.Equal(t, created.PasswordHash, got.PasswordHash)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		store := suite.NewStore(t)

		_, err := store.CreateUser(ctx, "bob", "hash-1")
		require.NoError(t, err)

		_, err = store.CreateUser(ctx, "bob", "hash-2")
		require.ErrorIs(t, err, auth.ErrUsernameTaken)

		// The original credentials must be untouched.
		got, err := store.GetUser(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "hash-1", got.PasswordHash)
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		store := suite.NewStore(t)

		_, err := store.GetUser(ctx, "nobody")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("session round trip", func(t *testing.T) {
		store := suite.NewStore(t)

		session, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)
		require.NotEmpty(t, session.Token)
		assert.Equal(t, "alice", session.Username)
		assert.WithinDuration(t, session.CreatedAt.Add(auth.SessionLifetime), session.ExpiresAt, time.Second)

		got, err := store.GetSession(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, session.Token, got.Token)
		assert.Equal(t, session.Username, got.Username)
	})

	t.Run("sessions have distinct tokens", func(t *testing.T) {
		store := suite.NewStore(t)

		first, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)
		second, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)

		assert.NotEqual(t, first.Token, second.Token)

		// Both stay valid concurrently.
		_, err = store.GetSession(ctx, first.Token)
		require.NoError(t, err)
		_, err = store.GetSession(ctx, second.Token)
		require.NoError(t, err)
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		store := suite.NewStore(t)

		_, err := store.GetSession(ctx, "no-such-token")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("delete session is idempotent", func(t *testing.T) {
		store := suite.NewStore(t)

		session, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)

		require.NoError(t, store.DeleteSession(ctx, session.Token))
		_, err = store.GetSession(ctx, session.Token)
		require.ErrorIs(t, err, auth.ErrNotFound)

		// Deleting again, or deleting a token that never existed, is a no-op.
		require.NoError(t, store.DeleteSession(ctx, session.Token))
		require.NoError(t, store.DeleteSession(ctx, "never-existed"))
	})

	t.Run("expired session is invalid", func(t *testing.T) {
		if suite.SeedExpiredSession == nil {
			t.Skip("backend cannot seed expired sessions")
		}
		store := suite.NewStore(t)

		token := suite.SeedExpiredSession(t, store, "alice")
		require.NotEmpty(t, token)

		_, err := store.GetSession(ctx, token)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}
