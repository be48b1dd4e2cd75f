package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/taskboard/internal/config"
	"github.com/phrazzld/taskboard/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.ParseLevel(tt.input))
		})
	}
}

func TestNew_WritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "warn")

	l.Info("dropped")
	assert.Empty(t, buf.String(), "info records should be filtered at warn level")

	l.Warn("kept", "task_id", 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.EqualValues(t, 7, entry["task_id"])
}

func TestSetup_WithFile(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	path := filepath.Join(t.TempDir(), "logs", "taskboard.log")

	l, err := logger.Setup(
		config.ServerConfig{LogLevel: "info"},
		config.LogConfig{File: path, MaxSizeMB: 1},
	)
	require.NoError(t, err)
	require.NotNil(t, l)

	l.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
	assert.Same(t, l, slog.Default())
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	custom := logger.New(&buf, "debug")
	fallback := logger.New(&bytes.Buffer{}, "debug")

	t.Run("returns stored logger", func(t *testing.T) {
		ctx := logger.WithLogger(context.Background(), custom)
		assert.Same(t, custom, logger.FromContextOrDefault(ctx, fallback))
		assert.Same(t, custom, logger.FromContext(ctx))
	})

	t.Run("falls back when absent", func(t *testing.T) {
		assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
		assert.Same(t, slog.Default(), logger.FromContext(context.Background()))
	})

	t.Run("nil fallback uses default", func(t *testing.T) {
		assert.Same(t, slog.Default(), logger.FromContextOrDefault(context.Background(), nil))
	})
}
