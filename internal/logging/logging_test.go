package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewHandler(&buf, Config{Level: "info", Format: "JSON"}))
		logger.Info("search completed", slog.Int("files", 2))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "search completed", line["msg"])
		assert.Equal(t, float64(2), line["files"])
	})

	t.Run("text format filters by level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewHandler(&buf, Config{Level: "error"}))
		logger.Warn("ignored")
		assert.Empty(t, buf.String())
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		err  bool
	}{
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelWarn, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewHandler_mode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, Config{Level: "info", Mode: "mcp"}))
	logger.Info("ready")
	assert.Contains(t, buf.String(), "mode=mcp")
}

func TestSetup_unknownLevel(t *testing.T) {
	_, err := Setup(Config{Level: "loud"})
	assert.ErrorContains(t, err, "unknown log level")
}

func TestSetup_file(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "chunkgrep.log")
	cleanup, err := Setup(Config{Level: "info", FilePath: path, MaxSizeMB: 1})
	require.NoError(t, err)

	slog.Info("hello")
	require.True(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
}
