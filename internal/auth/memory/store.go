// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

// Package memory provides an in-process credential store. State is lost on
// restart and cannot be shared across server instances.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xelfe/geekcraft/internal/auth"
)

// Store implements auth.Store with two in-memory maps. Reads proceed
// concurrently; writes are serialized. There is no background sweep:
// expiry is checked lazily when a session is read.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*auth.User
	sessions map[string]*auth.Session
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*auth.User),
		sessions: make(map[string]*auth.Session),
	}
}

// CreateUser stores a new user.
func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return nil, auth.ErrUsernameTaken
	}

	user := auth.NewUser(username, passwordHash)
	s.users[username] = user

	u := *user
	return &u, nil
}

// GetUser retrieves a user by username.
func (s *Store) GetUser(_ context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[username]
	if !exists {
		return nil, auth.ErrNotFound
	}

	u := *user
	return &u, nil
}

// CreateSession issues and stores a fresh session for the username.
func (s *Store) CreateSession(_ context.Context, username string) (*auth.Session, error) {
	session := auth.NewSession(username)

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	sess := *session
	return &sess, nil
}

// GetSession retrieves a live session by token. An expired record is
// removed and reported as not found.
func (s *Store) GetSession(_ context.Context, token string) (*auth.Session, error) {
	s.mu.RLock()
	session, exists := s.sessions[token]
	s.mu.RUnlock()

	if !exists {
		return nil, auth.ErrNotFound
	}

	if session.IsExpired() {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, auth.ErrNotFound
	}

	sess := *session
	return &sess, nil
}

// DeleteSession removes a session by token. Unknown tokens are a no-op.
func (s *Store) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// DeleteExpiredSessions sweeps expired sessions and returns the count removed.
func (s *Store) DeleteExpiredSessions(_ context.Context) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for token, session := range s.sessions {
		if session.IsExpiredAt(now) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(_ context.Context) error {
	return nil
}
