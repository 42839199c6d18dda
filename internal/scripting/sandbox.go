// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

// Package scripting stores per-player code submissions. Submitted code is
// held for a future execution engine; nothing here runs it.
package scripting

import (
	"sort"
	"sync"
)

// Sandbox keeps the latest code submission per player. Safe for
// concurrent use.
type Sandbox struct {
	mu    sync.RWMutex
	codes map[string]string
}

// NewSandbox creates an empty sandbox.
func NewSandbox() *Sandbox {
	return &Sandbox{codes: make(map[string]string)}
}

// Submit stores code for a player, replacing any earlier submission.
func (s *Sandbox) Submit(player, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[player] = code
}

// Code returns the stored code for a player, or false if the player has
// never submitted.
func (s *Sandbox) Code(player string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.codes[player]
	return code, ok
}

// Players returns the sorted list of players with stored code.
func (s *Sandbox) Players() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]string, 0, len(s.codes))
	for player := range s.codes {
		players = append(players, player)
	}
	sort.Strings(players)
	return players
}
