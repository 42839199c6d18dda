// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

// Package redis provides a Redis-backed credential store. Sessions carry a
// native TTL so eviction is automatic; the store is shared across server
// processes, enabling horizontal scaling.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/xelfe/geekcraft/internal/auth"
)

const (
	userKeyPrefix    = "user:"
	sessionKeyPrefix = "session:"

	// opTimeout caps every round trip so a slow backend cannot hang a
	// request indefinitely.
	opTimeout = 5 * time.Second

	// pingTimeout bounds the startup connectivity check as a whole.
	pingTimeout = 30 * time.Second
)

// Store implements auth.Store on Redis. Concurrency safety is delegated to
// the client's connection pool.
type Store struct {
	client *goredis.Client
}

// userRecord is the persisted shape of a user. auth.User hides the
// password hash from its JSON rendering, so storage uses its own record.
type userRecord struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewStore connects to Redis at the given URL and verifies connectivity
// with a bounded fibonacci backoff before returning.
func NewStore(ctx context.Context, url string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("STORE_BAD_URL").With("url", url).Wrap(err)
	}

	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	backoff := retry.NewFibonacci(500 * time.Millisecond)
	backoff = retry.WithMaxDuration(pingTimeout, backoff)

	if err := retry.Do(pingCtx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(client.Ping(ctx).Err())
	}); err != nil {
		_ = client.Close()
		return nil, unavailable("ping", err)
	}

	return &Store{client: client}, nil
}

// NewStoreWithClient wraps an existing client. Used by tests.
func NewStoreWithClient(client *goredis.Client) *Store {
	return &Store{client: client}
}

// CreateUser stores a new user. Uniqueness is enforced by SETNX on the
// user key.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*auth.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	user := auth.NewUser(username, passwordHash)
	data, err := json.Marshal(userRecord{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return nil, oops.Code("STORE_ENCODE_FAILED").Wrap(err)
	}

	created, err := s.client.SetNX(ctx, userKeyPrefix+username, data, 0).Result()
	if err != nil {
		return nil, unavailable("create user", err)
	}
	if !created {
		return nil, auth.ErrUsernameTaken
	}

	return user, nil
}

// GetUser retrieves a user by username.
func (s *Store) GetUser(ctx context.Context, username string) (*auth.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, userKeyPrefix+username).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get user", err)
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, oops.Code("STORE_DECODE_FAILED").Wrap(err)
	}
	return &auth.User{
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// CreateSession issues a fresh session and stores it with a native TTL
// matching its expiry, so Redis evicts it without application involvement.
func (s *Store) CreateSession(ctx context.Context, username string) (*auth.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	session := auth.NewSession(username)
	data, err := json.Marshal(session)
	if err != nil {
		return nil, oops.Code("STORE_ENCODE_FAILED").Wrap(err)
	}

	ttl := time.Until(session.ExpiresAt)
	if err := s.client.Set(ctx, sessionKeyPrefix+session.Token, data, ttl).Err(); err != nil {
		return nil, unavailable("create session", err)
	}

	return session, nil
}

// GetSession retrieves a live session by token. Redis TTL handles expiry;
// the expiry timestamp is still double-checked so the validity invariant
// never depends on eviction timing.
func (s *Store) GetSession(ctx context.Context, token string) (*auth.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get session", err)
	}

	var session auth.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, oops.Code("STORE_DECODE_FAILED").Wrap(err)
	}

	if session.IsExpired() {
		_ = s.client.Del(ctx, sessionKeyPrefix+token).Err()
		return nil, auth.ErrNotFound
	}

	return &session, nil
}

// DeleteSession removes a session by token. Unknown tokens are a no-op.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return unavailable("delete session", err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op: Redis evicts expired keys natively.
func (s *Store) DeleteExpiredSessions(_ context.Context) (int64, error) {
	return 0, nil
}

// Close releases the client's connection pool.
func (s *Store) Close(_ context.Context) error {
	if err := s.client.Close(); err != nil {
		return oops.Code("STORE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// unavailable wraps a connectivity failure so callers can distinguish it
// from not-found via errors.Is(err, auth.ErrUnavailable).
func unavailable(operation string, err error) error {
	return oops.Code("STORE_UNAVAILABLE").
		With("backend", "redis").
		With("operation", operation).
		Wrap(errors.Join(auth.ErrUnavailable, err))
}
