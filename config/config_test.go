package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-pfq/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pfq.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, config.DefaultRuntimeBase, cfg.Server.RuntimeDir)
	assert.Equal(t, 10*time.Second, cfg.Stats.Interval.Duration)
	assert.Equal(t, 24*time.Hour, cfg.Stats.Retention.Duration)
	assert.Empty(t, cfg.DevMap.PinPath)
	assert.Zero(t, cfg.Factory.Capacity)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "/run/pfq-sock/pfq.sock", cfg.SocketPath())
	assert.Equal(t, "/run/pfq/db/stats.db", cfg.StatsDBPath())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
runtime_dir = "/tmp/pfq-x"

[stats]
interval = "1m"

[factory]
capacity = 128
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/pfq-x", cfg.Server.RuntimeDir)
	assert.Equal(t, time.Minute, cfg.Stats.Interval.Duration)
	assert.Equal(t, 24*time.Hour, cfg.Stats.Retention.Duration, "untouched keys keep defaults")
	assert.Equal(t, 128, cfg.Factory.Capacity)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "/tmp/pfq-x-sock/pfq.sock", cfg.SocketPath())
}

func TestLoadExplicitPaths(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
[server]
socket = "/tmp/ctl.sock"

[stats]
db = "/var/lib/pfq/stats.db"
`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ctl.sock", cfg.SocketPath())
	assert.Equal(t, "/var/lib/pfq/stats.db", cfg.StatsDBPath())
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	tests := map[string]string{
		"syntax":       "[server\n",
		"bad duration": "[stats]\ninterval = \"soon\"\n",
		"unknown key":  "[server]\nport = 80\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging"},
		{"relative runtime dir", func(c *config.Config) { c.Server.RuntimeDir = "run" }, "server.runtime_dir"},
		{"negative interval", func(c *config.Config) { c.Stats.Interval.Duration = -time.Second }, "stats.interval"},
		{"negative capacity", func(c *config.Config) { c.Factory.Capacity = -1 }, "factory.capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestLoggingToSpec(t *testing.T) {
	c := config.LoggingConfig{Components: map[string]string{"group": "debug", "factory": "warn"}}
	assert.Equal(t, "info,factory=warn,group=debug", c.ToSpec())

	c.Level = "debug"
	assert.Equal(t, "debug", c.ToSpec())

	assert.Empty(t, (&config.LoggingConfig{}).ToSpec())
}
