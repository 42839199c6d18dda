// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("geekcraft", "1.2.3", "json", &buf)

	logger.Info("server started", "addr", ":3030")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "server started", record["msg"])
	assert.Equal(t, "geekcraft", record["service"])
	assert.Equal(t, "1.2.3", record["version"])
	assert.Equal(t, ":3030", record["addr"])
}

func TestSetup_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("geekcraft", "dev", "text", &buf)

	logger.Warn("backend slow")

	out := buf.String()
	assert.Contains(t, out, "backend slow")
	assert.Contains(t, out, "service=geekcraft")
	assert.Contains(t, out, "version=dev")
}

func TestSetup_EmptyFormatDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("geekcraft", "dev", "", &buf)

	logger.Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
}

func TestSetup_WithAttrsPreservesService(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("geekcraft", "dev", "json", &buf)

	logger.With("component", "auth").Info("login ok")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "auth", record["component"])
	assert.Equal(t, "geekcraft", record["service"])
}

func TestSetup_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("geekcraft", "dev", "json", &buf)

	logger.WithGroup("req").Info("handled", "path", "/api/players")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	req, ok := record["req"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/api/players", req["path"])
}

func TestSetup_DebugEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("geekcraft", "dev", "json", &buf)

	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
}
