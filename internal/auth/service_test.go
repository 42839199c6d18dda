// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore lets tests script store behavior per call.
type fakeStore struct {
	createUserErr  error
	getUserUser    *User
	getUserErr     error
	createSessErr  error
	getSessSession *Session
	getSessErr     error
	deleteSessErr  error

	createdUsername string
	createdHash     string
	deletedToken    string
}

func (f *fakeStore) CreateUser(_ context.Context, username, passwordHash string) (*User, error) {
	f.createdUsername = username
	f.createdHash = passwordHash
	if f.createUserErr != nil {
		return nil, f.createUserErr
	}
	return NewUser(username, passwordHash), nil
}

func (f *fakeStore) GetUser(_ context.Context, _ string) (*User, error) {
	return f.getUserUser, f.getUserErr
}

func (f *fakeStore) CreateSession(_ context.Context, username string) (*Session, error) {
	if f.createSessErr != nil {
		return nil, f.createSessErr
	}
	return NewSession(username), nil
}

func (f *fakeStore) GetSession(_ context.Context, _ string) (*Session, error) {
	return f.getSessSession, f.getSessErr
}

func (f *fakeStore) DeleteSession(_ context.Context, token string) error {
	f.deletedToken = token
	return f.deleteSessErr
}

func (f *fakeStore) DeleteExpiredSessions(_ context.Context) (int64, error) { return 0, nil }

func (f *fakeStore) Close(_ context.Context) error { return nil }

// fakeHasher avoids burning bcrypt CPU in unit tests.
type fakeHasher struct {
	hashErr    error
	verifyErr  error
	verifyLast string
}

func (f *fakeHasher) Hash(_ context.Context, password string) (string, error) {
	if f.hashErr != nil {
		return "", f.hashErr
	}
	return "hashed:" + password, nil
}

func (f *fakeHasher) Verify(_ context.Context, password, hash string) (bool, error) {
	f.verifyLast = hash
	if f.verifyErr != nil {
		return false, f.verifyErr
	}
	return hash == "hashed:"+password, nil
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected an oops error, got %v", err)
	assert.Equal(t, code, oopsErr.Code())
}

func TestNewServiceNilDeps(t *testing.T) {
	_, err := NewService(nil, &fakeHasher{})
	require.Error(t, err)

	_, err = NewService(&fakeStore{}, nil)
	require.Error(t, err)

	_, err = NewServiceWithLogger(&fakeStore{}, &fakeHasher{}, nil)
	require.Error(t, err)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("success stores the hash not the password", func(t *testing.T) {
		store := &fakeStore{}
		svc, err := NewService(store, &fakeHasher{})
		require.NoError(t, err)

		require.NoError(t, svc.Register(ctx, "alice", "secret1"))
		assert.Equal(t, "alice", store.createdUsername)
		assert.Equal(t, "hashed:secret1", store.createdHash)
	})

	t.Run("invalid username", func(t *testing.T) {
		store := &fakeStore{}
		svc, err := NewService(store, &fakeHasher{})
		require.NoError(t, err)

		err = svc.Register(ctx, "a", "secret1")
		assertCode(t, err, "AUTH_INVALID_USERNAME")
		assert.Empty(t, store.createdUsername, "store must not be touched")
	})

	t.Run("invalid password", func(t *testing.T) {
		svc, err := NewService(&fakeStore{}, &fakeHasher{})
		require.NoError(t, err)

		err = svc.Register(ctx, "alice", "short")
		assertCode(t, err, "AUTH_INVALID_PASSWORD")
	})

	t.Run("username taken", func(t *testing.T) {
		svc, err := NewService(&fakeStore{createUserErr: ErrUsernameTaken}, &fakeHasher{})
		require.NoError(t, err)

		err = svc.Register(ctx, "alice", "secret1")
		assertCode(t, err, "AUTH_USERNAME_TAKEN")
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("store unavailable", func(t *testing.T) {
		svc, err := NewService(&fakeStore{createUserErr: ErrUnavailable}, &fakeHasher{})
		require.NoError(t, err)

		err = svc.Register(ctx, "alice", "secret1")
		assertCode(t, err, "AUTH_REGISTER_FAILED")
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	user := NewUser("alice", "hashed:secret1")

	t.Run("success issues a session", func(t *testing.T) {
		svc, err := NewService(&fakeStore{getUserUser: user}, &fakeHasher{})
		require.NoError(t, err)

		session, err := svc.Login(ctx, "alice", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "alice", session.Username)
		assert.NotEmpty(t, session.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, err := NewService(&fakeStore{getUserUser: user}, &fakeHasher{})
		require.NoError(t, err)

		_, err = svc.Login(ctx, "alice", "wrong-pass")
		assertCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, err := NewService(&fakeStore{getUserErr: ErrNotFound}, &fakeHasher{})
		require.NoError(t, err)

		_, err = svc.Login(ctx, "nobody", "secret1")
		assertCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		svcKnown, err := NewService(&fakeStore{getUserUser: user}, &fakeHasher{})
		require.NoError(t, err)
		svcUnknown, err := NewService(&fakeStore{getUserErr: ErrNotFound}, &fakeHasher{})
		require.NoError(t, err)

		_, errKnown := svcKnown.Login(ctx, "alice", "wrong-pass")
		_, errUnknown := svcUnknown.Login(ctx, "nobody", "wrong-pass")
		assert.Equal(t, errKnown.Error(), errUnknown.Error())
	})

	t.Run("verification runs even for unknown users", func(t *testing.T) {
		hasher := &fakeHasher{}
		svc, err := NewService(&fakeStore{getUserErr: ErrNotFound}, hasher)
		require.NoError(t, err)

		_, _ = svc.Login(ctx, "nobody", "secret1")
		assert.NotEmpty(t, hasher.verifyLast, "hash verification must not be skipped")
	})

	t.Run("store unavailable is not invalid credentials", func(t *testing.T) {
		svc, err := NewService(&fakeStore{getUserErr: ErrUnavailable}, &fakeHasher{})
		require.NoError(t, err)

		_, err = svc.Login(ctx, "alice", "secret1")
		assertCode(t, err, "AUTH_LOGIN_FAILED")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("session persistence failure", func(t *testing.T) {
		svc, err := NewService(&fakeStore{getUserUser: user, createSessErr: errors.New("down")}, &fakeHasher{})
		require.NoError(t, err)

		_, err = svc.Login(ctx, "alice", "secret1")
		assertCode(t, err, "AUTH_SESSION_CREATE_FAILED")
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the session", func(t *testing.T) {
		store := &fakeStore{}
		svc, err := NewService(store, &fakeHasher{})
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, "some-token"))
		assert.Equal(t, "some-token", store.deletedToken)
	})

	t.Run("store failure surfaces", func(t *testing.T) {
		svc, err := NewService(&fakeStore{deleteSessErr: ErrUnavailable}, &fakeHasher{})
		require.NoError(t, err)

		err = svc.Logout(ctx, "some-token")
		assertCode(t, err, "AUTH_LOGOUT_FAILED")
	})
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token returns the username", func(t *testing.T) {
		session := NewSession("alice")
		svc, err := NewService(&fakeStore{getSessSession: session}, &fakeHasher{})
		require.NoError(t, err)

		username, err := svc.Validate(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice", username)
	})

	t.Run("empty token", func(t *testing.T) {
		svc, err := NewService(&fakeStore{}, &fakeHasher{})
		require.NoError(t, err)

		_, err = svc.Validate(ctx, "")
		assertCode(t, err, "SESSION_INVALID")
	})

	t.Run("unknown token", func(t *testing.T) {
		svc, err := NewService(&fakeStore{getSessErr: ErrNotFound}, &fakeHasher{})
		require.NoError(t, err)

		_, err = svc.Validate(ctx, "no-such-token")
		assertCode(t, err, "SESSION_INVALID")
	})

	t.Run("store unavailable is distinguishable", func(t *testing.T) {
		svc, err := NewService(&fakeStore{getSessErr: ErrUnavailable}, &fakeHasher{})
		require.NoError(t, err)

		_, err = svc.Validate(ctx, "some-token")
		assertCode(t, err, "SESSION_VALIDATE_FAILED")
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}
