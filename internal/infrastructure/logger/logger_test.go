package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestProductionConfig(t *testing.T) {
	cfg := ProductionConfig()

	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "default config", cfg: DefaultConfig()},
		{name: "production config", cfg: ProductionConfig()},
		{name: "empty time format", cfg: &Config{Level: "debug", Format: "console", Output: "stdout"}},
		{
			name:    "unwritable file",
			cfg:     &Config{Level: "info", Format: "json", Output: filepath.Join(t.TempDir(), "missing", "recon.log")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production", ""} {
		logger, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestNamed(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	named := Named(logger, "merger")
	assert.NotEqual(t, logger, named)
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recon.log")
	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("run completed", zap.Int("output_rows", 42))
	_ = Sync(logger)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "run completed", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(42), entry["output_rows"])
	assert.Contains(t, entry, "caller")
}
