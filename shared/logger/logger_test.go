package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, cfg Config) (*Logger, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	cfg.writer = output

	logger, err := New(&cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	return logger, output
}

func decodeLines(t *testing.T, output *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level      string
		wantLevels []string
	}{
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{"warn", []string{"WARN", "ERROR"}},
		{"error", []string{"ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, output := newBufferLogger(t, Config{Level: tt.level, Format: "json"})

			logger.Debug("d")
			logger.Info("i")
			logger.Warn("w")
			logger.Error("e")

			var got []string
			for _, entry := range decodeLines(t, output) {
				got = append(got, entry["level"].(string))
			}
			assert.Equal(t, tt.wantLevels, got)
		})
	}
}

func TestNew_JSONAttributes(t *testing.T) {
	// format matching is case-insensitive
	logger, output := newBufferLogger(t, Config{Level: "info", Format: "JSON", TimeFormat: time.RFC3339})

	logger.Info("files received", slog.String("customer_id", "628111"), slog.Int("file_count", 3))

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	assert.Equal(t, "files received", entries[0]["msg"])
	assert.Equal(t, "628111", entries[0]["customer_id"])
	assert.Equal(t, float64(3), entries[0]["file_count"])
	assert.Contains(t, entries[0], "time")
}

func TestNew_ConsoleWithoutColors(t *testing.T) {
	logger, output := newBufferLogger(t, Config{Level: "info", Format: "console", NoColor: true})

	logger.Info("console test")

	// tint abbreviates levels
	assert.Contains(t, output.String(), "INF")
	assert.Contains(t, output.String(), "console test")
	assert.NotContains(t, output.String(), "\x1b[")
}

func TestNew_SourceLocation(t *testing.T) {
	logger, output := newBufferLogger(t, Config{Level: "info", Format: "json", EnableSource: true})

	logger.Info("message with source")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	source, ok := entries[0]["source"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, source, "file")
	assert.Contains(t, source, "line")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" Warning ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info+2", slog.Level(2)},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestLogger_Component(t *testing.T) {
	logger, output := newBufferLogger(t, Config{Level: "info", Format: "json"})

	logger.Component("workflow").Info("print job completed", slog.String("customer_id", "628111"))

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	assert.Equal(t, "workflow", entries[0]["component"])
	assert.Equal(t, "628111", entries[0]["customer_id"])
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "print-service.log")

	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("written to file", slog.Int("file_count", 2))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "written to file", entry["msg"])
}

func TestNew_FileOutputError(t *testing.T) {
	logger, err := New(&Config{
		Output: filepath.Join(t.TempDir(), "missing", "dir", "app.log"),
	})

	require.Error(t, err)
	assert.Nil(t, logger)
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	logger, _ := newBufferLogger(t, Config{})

	assert.NoError(t, logger.Close())
}
