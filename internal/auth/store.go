// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package auth

import "context"

// Store is the persistence abstraction for users and sessions. Exactly one
// implementation is selected at process start; all implementations must
// satisfy the same contract (see storetest.Run):
//
//   - CreateUser fails with ErrUsernameTaken if the username exists.
//   - GetUser and GetSession fail with ErrNotFound when absent; an expired
//     session is reported as ErrNotFound even if a record still exists.
//   - DeleteSession is idempotent; deleting an unknown token is not an error.
//   - Remote implementations wrap connectivity failures in ErrUnavailable.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateUser stores a new user with the given pre-hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUser retrieves a user by username.
	GetUser(ctx context.Context, username string) (*User, error)

	// CreateSession issues and persists a fresh session for the username.
	// The caller is responsible for the username's validity.
	CreateSession(ctx context.Context, username string) (*Session, error)

	// GetSession retrieves a live session by token.
	GetSession(ctx context.Context, token string) (*Session, error)

	// DeleteSession removes a session by token.
	DeleteSession(ctx context.Context, token string) error

	// DeleteExpiredSessions removes expired sessions and returns the count
	// of deleted records. Backends with native TTL eviction may return 0.
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}
