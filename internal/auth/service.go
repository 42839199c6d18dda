// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service provides registration, login, logout, and session validation.
// It never caches users or sessions across calls; every validation
// re-reads the store, so a revoked or expired session is rejected on the
// very next request.
type Service struct {
	store  Store
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService creates a new Service with a no-op logger.
// Returns an error if any required dependency is nil.
func NewService(store Store, hasher PasswordHasher) (*Service, error) {
	if store == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &Service{
		store:  store,
		hasher: hasher,
		logger: slog.New(slog.DiscardHandler),
	}, nil
}

// NewServiceWithLogger creates a new Service with the provided logger.
// Returns an error if any required dependency is nil.
func NewServiceWithLogger(store Store, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	svc, err := NewService(store, hasher)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	svc.logger = logger
	return svc, nil
}

// dummyPasswordHash is used when a user doesn't exist so password
// verification still runs and response time stays uniform. This is NOT a
// real credential - it will never match any submitted password.
//
//nolint:gosec // G101: intentionally fake hash for timing uniformity, not a credential.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Register validates the username and password, hashes the password, and
// creates the account.
func (s *Service) Register(ctx context.Context, username, password string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if err := ValidatePassword(password); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if _, err := s.store.CreateUser(ctx, username, hash); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return oops.Code("AUTH_USERNAME_TAKEN").
				With("username", username).
				Wrap(err)
		}
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.Info("user registered", "username", username)
	return nil
}

// Login authenticates a user and issues a new session. Unknown usernames
// and wrong passwords produce the same AUTH_INVALID_CREDENTIALS outcome so
// usernames cannot be enumerated, and both paths burn a hash verification
// to keep response time uniform.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, lookupErr := s.store.GetUser(ctx, username)

	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(ctx, password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
	}

	session, err := s.store.CreateSession(ctx, user.Username)
	if err != nil {
		return nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	s.logger.Info("login successful", "username", user.Username)
	return session, nil
}

// Logout invalidates a session. An unknown or expired token is treated as
// already logged out.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// Validate checks a session token and returns the owning username. It is
// the single choke point used by both the HTTP middleware and the
// WebSocket gate. Missing, unknown, and expired tokens all produce
// SESSION_INVALID; a store connectivity failure propagates separately so
// the boundary can answer with a server error instead of unauthorized.
func (s *Service) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", oops.Code("SESSION_INVALID").Errorf("session token cannot be empty")
	}

	session, err := s.store.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("SESSION_INVALID").Errorf("invalid or expired session token")
		}
		return "", oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session").
			Wrap(err)
	}

	return session.Username, nil
}
