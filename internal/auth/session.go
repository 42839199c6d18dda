// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package auth

import (
	"time"

	"github.com/google/uuid"
)

// SessionLifetime is the fixed lifetime of every session.
const SessionLifetime = 24 * time.Hour

// Session is a server-issued, time-bounded proof of a successful login.
// A session is valid iff now < ExpiresAt; every store backend enforces
// that same invariant, by lazy check or by native TTL.
type Session struct {
	Token     string    `json:"token" bson:"token"`
	Username  string    `json:"username" bson:"username"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// NewSession creates a session for the given username with a fresh
// cryptographically random UUIDv4 token and the fixed 24h lifetime.
func NewSession(username string) *Session {
	now := time.Now().UTC()
	return &Session{
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionLifetime),
	}
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given
// time. Useful for testing with deterministic time values.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
