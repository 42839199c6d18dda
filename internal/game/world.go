// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// World holds the zones and the global tick counter. All methods are safe
// for concurrent use.
type World struct {
	mu     sync.RWMutex
	tick   uint64
	zones  map[string]*Zone
	logger *slog.Logger
}

// NewWorld creates an empty world with a no-op logger.
func NewWorld() *World {
	return &World{
		zones:  make(map[string]*Zone),
		logger: slog.New(slog.DiscardHandler),
	}
}

// NewWorldWithLogger creates an empty world logging to the given logger.
func NewWorldWithLogger(logger *slog.Logger) *World {
	w := NewWorld()
	if logger != nil {
		w.logger = logger
	}
	return w
}

// Tick returns the current tick.
func (w *World) Tick() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// Advance increments the tick counter by one and returns the new value.
func (w *World) Advance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick++
	return w.tick
}

// AddZone registers a zone, replacing any zone with the same id.
func (w *World) AddZone(zone *Zone) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.zones[zone.ID] = zone
}

// Zone returns the zone with the given id, or false if absent.
func (w *World) Zone(id string) (*Zone, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	zone, ok := w.zones[id]
	return zone, ok
}

// ZoneIDs returns the ids of all registered zones.
func (w *World) ZoneIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.zones))
	for id := range w.zones {
		ids = append(ids, id)
	}
	return ids
}

// GeneratePlayerZone generates (or regenerates) the starting zone for a
// player and returns its id. The zone id determines the seed, so a
// player's zone is identical every time it is generated.
func (w *World) GeneratePlayerZone(playerID string) string {
	zoneID := fmt.Sprintf("player_%s_zone", playerID)
	zone := GenerateZone(zoneID, SeedFor(zoneID))
	w.AddZone(zone)

	w.logger.Info("zone generated", "zone_id", zoneID, "player", playerID)
	return zoneID
}

// State is a point-in-time summary of the world.
type State struct {
	Tick    uint64   `json:"tick"`
	ZoneIDs []string `json:"zone_ids"`
}

// Snapshot captures the current tick and zone ids.
func (w *World) Snapshot() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.zones))
	for id := range w.zones {
		ids = append(ids, id)
	}
	return State{Tick: w.tick, ZoneIDs: ids}
}

// Run advances the world at the given rate until the context is
// cancelled. Each tick also advances every running campaign when a
// manager is supplied.
func (w *World) Run(ctx context.Context, ticksPerSecond int, campaigns *CampaignManager) {
	interval := time.Second / time.Duration(ticksPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("tick loop started", "tick_rate", ticksPerSecond)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("tick loop stopped", "tick", w.Tick())
			return
		case <-ticker.C:
			w.Advance()
			if campaigns != nil {
				campaigns.TickRunning()
			}
		}
	}
}
