// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
// An expired session is indistinguishable from a missing one.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when creating a user whose username exists.
var ErrUsernameTaken = errors.New("username already exists")

// ErrUnavailable is returned when a remote credential store cannot be
// reached. It is distinct from ErrNotFound so callers never mistake a
// connectivity failure for a missing record.
var ErrUnavailable = errors.New("credential store unavailable")
