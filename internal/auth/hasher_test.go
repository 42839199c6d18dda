// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher := NewBcryptHasher()
	ctx := context.Background()

	hash, err := hasher.Hash(ctx, "correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.NotContains(t, hash, "correct horse")

	ok, err := hasher.Verify(ctx, "correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify(ctx, "battery staple", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasherHashesDiffer(t *testing.T) {
	hasher := NewBcryptHasher()
	ctx := context.Background()

	first, err := hasher.Hash(ctx, "secret1")
	require.NoError(t, err)
	second, err := hasher.Hash(ctx, "secret1")
	require.NoError(t, err)

	// Each hash carries its own salt.
	assert.NotEqual(t, first, second)
}

func TestBcryptHasherEmptyPassword(t *testing.T) {
	hasher := NewBcryptHasher()

	_, err := hasher.Hash(context.Background(), "")
	require.Error(t, err)
}

func TestBcryptHasherInvalidHash(t *testing.T) {
	hasher := NewBcryptHasher()

	_, err := hasher.Verify(context.Background(), "secret1", "not-a-bcrypt-hash")
	require.Error(t, err)
}

func TestBcryptHasherCanceledContext(t *testing.T) {
	hasher := NewBcryptHasher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The semaphore refuses to admit work once the context is done, so
	// neither operation burns CPU after the caller has gone away.
	_, err := hasher.Hash(ctx, "secret1")
	require.ErrorIs(t, err, context.Canceled)

	_, err = hasher.Verify(ctx, "secret1", dummyPasswordHash)
	require.ErrorIs(t, err, context.Canceled)
}
