package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kylixs/flareon/internal/aggregate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv keeps the caller's environment out of the loaded config.
func clearEnv(t *testing.T) {
	for _, key := range []string{"PORT", "TRACE_DIR", "DATA_DIR", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_CreatesDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should be written")

	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, ".jfr", cfg.Storage.TraceExtension)
	assert.Equal(t, filepath.Join(dir, "traces"), cfg.Storage.TraceDirectory)
	assert.Equal(t, filepath.Join(dir, "data", "history.duckdb"), cfg.Storage.HistoryDatabase)
	assert.Equal(t, aggregate.SpanFirstLast, cfg.GetSpanMode())

	// Reloading the written file gives the same values
	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
storage:
  traceDirectory: /var/traces
processing:
  timeSpanMode: min-max
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.BindAddress)
	assert.Equal(t, "/var/traces", cfg.Storage.TraceDirectory)
	assert.Equal(t, ".jfr", cfg.Storage.TraceExtension)
	assert.Equal(t, aggregate.SpanMinMax, cfg.GetSpanMode())
	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddr())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7001")
	t.Setenv("TRACE_DIR", "/env/traces")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "/env/traces", cfg.Storage.TraceDirectory)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
	}{
		{"malformed yaml", "server: [unclosed"},
		{"bad port", "server:\n  port: 70000\n"},
		{"bad span mode", "processing:\n  timeSpanMode: median\n"},
		{"bad log level", "advanced:\n  logLevel: loud\n"},
		{"empty extension", "storage:\n  traceExtension: \"\"\n"},
		{"memory limit injection", "advanced:\n  duckdbMemoryLimit: \"1GB'; DROP TABLE trace_summaries; --\"\n"},
		{"memory limit without unit", "advanced:\n  duckdbMemoryLimit: \"256\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.resolvePaths(dir)

	require.NoError(t, cfg.EnsureDirectories())
	for _, d := range []string{"traces", "data"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
