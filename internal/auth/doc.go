// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

// Package auth provides user accounts, sessions, and the credential store
// abstraction for the GeekCraft server.
package auth
