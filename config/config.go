// Package config handles pfq daemon configuration.
//
// Configuration is loaded with overlay semantics:
//
//  1. Start with built-in defaults (embedded via go:embed from default.toml)
//  2. Overlay with config file values (if file exists)
//  3. CLI flags and environment variables override at runtime (handled by CLI layer)
//
// The TOML decoder only sets fields present in the file, leaving
// unspecified fields at their default values. If the config file exists
// but is invalid, Load returns an error rather than silently falling
// back to defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/frobware/go-pfq/logging"
)

//go:embed default.toml
var defaultConfigTOML string

// DefaultConfigPath is the default path to the pfq config file.
const DefaultConfigPath = "/etc/pfq/pfq.toml"

// Config is the top-level pfq configuration.
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	Server  ServerConfig  `toml:"server"`
	Stats   StatsConfig   `toml:"stats"`
	DevMap  DevMapConfig  `toml:"devmap"`
	Factory FactoryConfig `toml:"factory"`
}

// LoggingConfig controls logging behaviour.
type LoggingConfig struct {
	// Level is the log spec (e.g., "info" or "info,group=debug").
	Level string `toml:"level"`
	// Format is the output format: "text" or "json".
	Format string `toml:"format"`
	// Components provides an alternative way to specify per-component levels.
	Components map[string]string `toml:"components"`
}

// ToSpec converts the LoggingConfig to a log spec string. Level wins
// over Components when both are set.
func (c *LoggingConfig) ToSpec() string {
	if c.Level != "" {
		return c.Level
	}
	if len(c.Components) == 0 {
		return ""
	}
	names := make([]string, 0, len(c.Components))
	for name := range c.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := []string{"info"}
	for _, name := range names {
		parts = append(parts, name+"="+c.Components[name])
	}
	return strings.Join(parts, ",")
}

// ServerConfig locates the daemon's runtime state.
type ServerConfig struct {
	RuntimeDir string `toml:"runtime_dir"`
	Socket     string `toml:"socket"`
}

// StatsConfig controls the statistics recorder.
type StatsConfig struct {
	DB        string   `toml:"db"`
	Interval  Duration `toml:"interval"`
	Retention Duration `toml:"retention"`
}

// DevMapConfig selects the device map backend.
type DevMapConfig struct {
	PinPath string `toml:"pin_path"`
}

// FactoryConfig bounds the function factory.
type FactoryConfig struct {
	Capacity int `toml:"capacity"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the configuration from the embedded default.toml.
func DefaultConfig() Config {
	var cfg Config
	if _, err := toml.Decode(defaultConfigTOML, &cfg); err != nil {
		// default.toml is embedded at build time and covered by tests.
		panic(fmt.Sprintf("config: invalid embedded default.toml: %v", err))
	}
	return cfg
}

// Load reads configuration from a file path with overlay semantics.
//
// Behaviour:
//   - File missing: returns default configuration (no error)
//   - File exists and valid: overlays file values onto defaults
//   - File exists but invalid: returns error (fail fast)
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error
	if spec := c.Logging.ToSpec(); spec != "" {
		if _, err := logging.ParseSpec(spec); err != nil {
			errs = append(errs, fmt.Errorf("logging: %w", err))
		}
	}
	if c.Logging.Format != "" {
		if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
			errs = append(errs, fmt.Errorf("logging: %w", err))
		}
	}
	if _, err := NewRuntimeDirs(c.Server.RuntimeDir); err != nil {
		errs = append(errs, fmt.Errorf("server.runtime_dir: %w", err))
	}
	if c.Stats.Interval.Duration < 0 {
		errs = append(errs, fmt.Errorf("stats.interval must not be negative"))
	}
	if c.Stats.Retention.Duration < 0 {
		errs = append(errs, fmt.Errorf("stats.retention must not be negative"))
	}
	if c.Factory.Capacity < 0 {
		errs = append(errs, fmt.Errorf("factory.capacity must not be negative"))
	}
	return errors.Join(errs...)
}

// RuntimeDirs returns the runtime paths for Server.RuntimeDir.
func (c *Config) RuntimeDirs() (RuntimeDirs, error) {
	return NewRuntimeDirs(c.Server.RuntimeDir)
}

// SocketPath returns Server.Socket, or the runtime default.
func (c *Config) SocketPath() string {
	if c.Server.Socket != "" {
		return c.Server.Socket
	}
	dirs, err := c.RuntimeDirs()
	if err != nil {
		return DefaultRuntimeDirs().SocketPath()
	}
	return dirs.SocketPath()
}

// StatsDBPath returns Stats.DB, or the runtime default.
func (c *Config) StatsDBPath() string {
	if c.Stats.DB != "" {
		return c.Stats.DB
	}
	dirs, err := c.RuntimeDirs()
	if err != nil {
		return DefaultRuntimeDirs().DBPath()
	}
	return dirs.DBPath()
}
