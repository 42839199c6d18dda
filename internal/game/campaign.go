// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package game

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
)

// ErrRunNotFound reports an unknown campaign run id.
var ErrRunNotFound = errors.New("campaign run not found")

// maxRunIDLength bounds run ids so save filenames stay reasonable.
const maxRunIDLength = 255

// ValidateRunID rejects run ids that could escape the save directory.
// Only letters, digits, underscore, hyphen, and dot are allowed, and the
// id must not contain path separators or "..".
func ValidateRunID(runID string) error {
	if runID == "" {
		return oops.Code("CAMPAIGN_INVALID_RUN_ID").Errorf("run id cannot be empty")
	}
	if len(runID) > maxRunIDLength {
		return oops.Code("CAMPAIGN_INVALID_RUN_ID").
			With("max", maxRunIDLength).
			Errorf("run id is too long")
	}
	if strings.ContainsAny(runID, `/\`) || strings.Contains(runID, "..") {
		return oops.Code("CAMPAIGN_INVALID_RUN_ID").Errorf("run id contains path characters")
	}
	for _, r := range runID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return oops.Code("CAMPAIGN_INVALID_RUN_ID").
				Errorf("run id can only contain letters, digits, underscore, hyphen, and dot")
		}
	}
	return nil
}

// Run is a single campaign run instance.
type Run struct {
	RunID     string `json:"run_id"`
	Tick      uint64 `json:"tick"`
	Running   bool   `json:"running"`
	CreatedAt int64  `json:"created_at"`
}

// CampaignManager owns campaign runs and their JSON persistence. All
// methods are safe for concurrent use.
type CampaignManager struct {
	mu      sync.Mutex
	runs    map[string]*Run
	saveDir string
	logger  *slog.Logger
}

// NewCampaignManager creates a manager persisting runs under saveDir,
// creating the directory if needed.
func NewCampaignManager(saveDir string) (*CampaignManager, error) {
	return NewCampaignManagerWithLogger(saveDir, slog.New(slog.DiscardHandler))
}

// NewCampaignManagerWithLogger creates a manager with the provided logger.
func NewCampaignManagerWithLogger(saveDir string, logger *slog.Logger) (*CampaignManager, error) {
	if saveDir == "" {
		return nil, oops.Errorf("save directory is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return nil, oops.Code("CAMPAIGN_SAVE_DIR_FAILED").
			With("save_dir", saveDir).
			Wrap(err)
	}
	return &CampaignManager{
		runs:    make(map[string]*Run),
		saveDir: saveDir,
		logger:  logger,
	}, nil
}

// StartRun creates a new run in the running state. Starting an id that
// already exists is an error.
func (m *CampaignManager) StartRun(runID string) (*Run, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[runID]; exists {
		return nil, oops.Code("CAMPAIGN_RUN_EXISTS").
			With("run_id", runID).
			Errorf("run %s already exists", runID)
	}

	run := &Run{
		RunID:     runID,
		Running:   true,
		CreatedAt: time.Now().Unix(),
	}
	m.runs[runID] = run

	m.logger.Info("campaign run started", "run_id", runID)
	out := *run
	return &out, nil
}

// RunState returns a copy of the run with the given id.
func (m *CampaignManager) RunState(runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, exists := m.runs[runID]
	if !exists {
		return nil, ErrRunNotFound
	}
	out := *run
	return &out, nil
}

// StopRun halts a run. The run stays registered and can be saved.
func (m *CampaignManager) StopRun(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, exists := m.runs[runID]
	if !exists {
		return ErrRunNotFound
	}
	run.Running = false

	m.logger.Info("campaign run stopped", "run_id", runID, "tick", run.Tick)
	return nil
}

// TickRunning advances every running run by one tick.
func (m *CampaignManager) TickRunning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, run := range m.runs {
		if run.Running {
			run.Tick++
		}
	}
}

// SaveRun writes a run to <save_dir>/<run_id>.json.
func (m *CampaignManager) SaveRun(runID string) error {
	if err := ValidateRunID(runID); err != nil {
		return err
	}

	m.mu.Lock()
	run, exists := m.runs[runID]
	if !exists {
		m.mu.Unlock()
		return ErrRunNotFound
	}
	snapshot := *run
	m.mu.Unlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return oops.Code("CAMPAIGN_SAVE_FAILED").With("run_id", runID).Wrap(err)
	}

	path := filepath.Join(m.saveDir, runID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return oops.Code("CAMPAIGN_SAVE_FAILED").
			With("run_id", runID).
			With("path", path).
			Wrap(err)
	}

	m.logger.Info("campaign run saved", "run_id", runID, "path", path)
	return nil
}

// LoadRun reads a run from its save file and registers it, replacing any
// in-memory run with the same id.
func (m *CampaignManager) LoadRun(runID string) (*Run, error) {
	if err := ValidateRunID(runID); err != nil {
		return nil, err
	}

	path := filepath.Join(m.saveDir, runID+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, oops.Code("CAMPAIGN_LOAD_FAILED").
			With("run_id", runID).
			With("path", path).
			Wrap(err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, oops.Code("CAMPAIGN_LOAD_FAILED").
			With("run_id", runID).
			With("path", path).
			Wrap(err)
	}

	m.mu.Lock()
	m.runs[runID] = &run
	m.mu.Unlock()

	m.logger.Info("campaign run loaded", "run_id", runID, "path", path)
	out := run
	return &out, nil
}

// ListSaves returns the run ids of all save files in the save directory.
func (m *CampaignManager) ListSaves() ([]string, error) {
	entries, err := os.ReadDir(m.saveDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("CAMPAIGN_LIST_FAILED").
			With("save_dir", m.saveDir).
			Wrap(err)
	}

	var saves []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			saves = append(saves, strings.TrimSuffix(name, ".json"))
		}
	}
	return saves, nil
}
