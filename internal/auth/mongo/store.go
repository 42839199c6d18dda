// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

// Package mongo provides a MongoDB-backed credential store. It is the
// durable backend: users and sessions survive restarts, and a TTL index on
// the sessions collection evicts expired records automatically.
package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xelfe/geekcraft/internal/auth"
)

const (
	usersCollection    = "users"
	sessionsCollection = "sessions"

	// opTimeout caps every round trip so a slow backend cannot hang a
	// request indefinitely.
	opTimeout = 5 * time.Second

	// pingTimeout bounds the startup connectivity check as a whole.
	pingTimeout = 30 * time.Second
)

// Store implements auth.Store on MongoDB. Concurrency safety is delegated
// to the driver's connection pool.
type Store struct {
	client   *driver.Client
	users    *driver.Collection
	sessions *driver.Collection
}

// NewStore connects to MongoDB at the given URL, verifies connectivity
// with a bounded fibonacci backoff, and ensures the indexes the store
// relies on: a unique index on usernames, a unique index on session
// tokens, and a TTL index that evicts sessions at their expiry timestamp.
func NewStore(ctx context.Context, url, database string) (*Store, error) {
	client, err := driver.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, oops.Code("STORE_BAD_URL").With("url", url).Wrap(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	backoff := retry.NewFibonacci(500 * time.Millisecond)
	backoff = retry.WithMaxDuration(pingTimeout, backoff)

	if err := retry.Do(pingCtx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(client.Ping(ctx, nil))
	}); err != nil {
		_ = client.Disconnect(ctx)
		return nil, unavailable("ping", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		users:    db.Collection(usersCollection),
		sessions: db.Collection(sessionsCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.users.Indexes().CreateOne(ctx, driver.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return unavailable("create username index", err)
	}

	_, err = s.sessions.Indexes().CreateMany(ctx, []driver.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// expireAfterSeconds=0 evicts each document at its own
			// expires_at timestamp.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return unavailable("create session indexes", err)
	}
	return nil
}

// CreateUser stores a new user. Uniqueness is enforced by the username index.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*auth.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	user := auth.NewUser(username, passwordHash)
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if driver.IsDuplicateKeyError(err) {
			return nil, auth.ErrUsernameTaken
		}
		return nil, unavailable("create user", err)
	}
	return user, nil
}

// GetUser retrieves a user by username.
func (s *Store) GetUser(ctx context.Context, username string) (*auth.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user auth.User
	err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get user", err)
	}
	return &user, nil
}

// CreateSession issues a fresh session and persists it. The TTL index
// removes it once expires_at passes.
func (s *Store) CreateSession(ctx context.Context, username string) (*auth.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	session := auth.NewSession(username)
	if _, err := s.sessions.InsertOne(ctx, session); err != nil {
		return nil, unavailable("create session", err)
	}
	return session, nil
}

// GetSession retrieves a live session by token. TTL sweeps run on a
// coarse schedule, so the expiry timestamp is re-checked here to keep the
// validity invariant exact.
func (s *Store) GetSession(ctx context.Context, token string) (*auth.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var session auth.Session
	err := s.sessions.FindOne(ctx, bson.M{"token": token}).Decode(&session)
	if errors.Is(err, driver.ErrNoDocuments) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get session", err)
	}

	if session.IsExpired() {
		_, _ = s.sessions.DeleteOne(ctx, bson.M{"token": token})
		return nil, auth.ErrNotFound
	}

	return &session, nil
}

// DeleteSession removes a session by token. Unknown tokens are a no-op.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.sessions.DeleteOne(ctx, bson.M{"token": token}); err != nil {
		return unavailable("delete session", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry has passed. The TTL
// index normally handles this; the sweep exists for the maintenance path
// and returns the number of documents removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.sessions.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	if err != nil {
		return 0, unavailable("delete expired sessions", err)
	}
	return res.DeletedCount, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return oops.Code("STORE_CLOSE_FAILED").Wrap(err)
	}
	return nil
}

// unavailable wraps a connectivity failure so callers can distinguish it
// from not-found via errors.Is(err, auth.ErrUnavailable).
func unavailable(operation string, err error) error {
	return oops.Code("STORE_UNAVAILABLE").
		With("backend", "mongodb").
		With("operation", operation).
		Wrap(errors.Join(auth.ErrUnavailable, err))
}
