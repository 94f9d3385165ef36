package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "info", cfg.Logging.Level)

	assert.Equal(t, "https://registry.npmjs.org", cfg.Registry.URL)
	assert.Equal(t, 10.0, cfg.Registry.RequestsPerSecond)

	assert.Equal(t, 2, cfg.Queue.Workers)
	assert.Equal(t, 24*time.Hour, cfg.Queue.Retention)

	assert.Equal(t, 256, cfg.Preload.CacheSize)
	assert.Equal(t, "docgen", cfg.Generator.Command)

	// Mirror is disabled unless a bucket is configured.
	assert.Empty(t, cfg.Mirror.Bucket)
}

func TestLoadRuntimeOverrides(t *testing.T) {
	overrides := map[string]any{
		"server": map[string]any{
			"port": 9000,
			"host": "0.0.0.0",
		},
		"logging": map[string]any{
			"level": "debug",
		},
	}

	cfg, err := Load(overrides)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Non-overridden values remain default.
	assert.Equal(t, 2, cfg.Queue.Workers)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DOCSHED_SERVER_PORT", "3000")
	t.Setenv("DOCSHED_LOGGING_LEVEL", "warn")
	t.Setenv("DOCSHED_QUEUE_RETENTION", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 48*time.Hour, cfg.Queue.Retention)
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("DOCSHED_SERVER_PORT", "4000")

	overrides := map[string]any{
		"server": map[string]any{"port": 5000},
	}

	cfg, err := Load(overrides)
	require.NoError(t, err)

	// Runtime override beats the env var.
	assert.Equal(t, 5000, cfg.Server.Port)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docshed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
docs:
  root: /srv/docs
preload:
  exclude:
    - "**/*.map"
`), 0644))
	t.Setenv("DOCSHED_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/srv/docs", cfg.Docs.Root)
	assert.Equal(t, []string{"**/*.map"}, cfg.Preload.Exclude)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative port", func(c *Config) { c.Server.Port = -1 }, "invalid server port"},
		{"missing docs root", func(c *Config) { c.Docs.Root = "" }, "docs root"},
		{"missing registry url", func(c *Config) { c.Registry.URL = " " }, "registry url"},
		{"missing queue dir", func(c *Config) { c.Queue.Dir = "" }, "queue dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
