// Copyright (c) 2022 Netskope, Inc. All rights reserved.

package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewLogger_File(t *testing.T) {
	dir := t.TempDir()
	logger, cleanup, err := NewLogger(Options{Dir: dir, Name: "migration"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Loaded dump", zap.Int("bytes", 42))
	logger.Warn("Skipped row", zap.String("table", "leads"))
	require.NoError(t, cleanup())

	lines := readLines(t, filepath.Join(dir, "migration.log"))
	require.Len(t, lines, 2)
	assert.Equal(t, "IN", lines[0]["lv"])
	assert.Equal(t, "Loaded dump", lines[0]["msg"])
	assert.Equal(t, float64(42), lines[0]["bytes"])
	assert.IsType(t, float64(0), lines[0]["ts"])
	assert.NotContains(t, lines[0], "call")
	assert.Equal(t, "WA", lines[1]["lv"])
}

func TestNewLogger_Debug(t *testing.T) {
	dir := t.TempDir()
	logger, cleanup, err := NewLogger(Options{Dir: dir, Name: "migration", Debug: true})
	require.NoError(t, err)

	logger.Debug("row mapped")
	require.NoError(t, cleanup())

	lines := readLines(t, filepath.Join(dir, "migration.log"))
	require.Len(t, lines, 1)
	assert.Equal(t, "DE", lines[0]["lv"])
	assert.Contains(t, lines[0]["call"], "log_test.go")
}

func TestNewLogger_BadDir(t *testing.T) {
	_, _, err := NewLogger(Options{Dir: filepath.Join(t.TempDir(), "missing"), Name: "migration"})
	assert.Error(t, err)
}

func TestLogPath(t *testing.T) {
	assert.Equal(t, "/tmp/migration.log", LogPath("", "migration"))
	assert.Equal(t, "/var/log/x.log", LogPath("/var/log", "x"))
}
