// Package config loads eventbus configuration.
//
// Settings come from three layers, later ones winning:
//
//  1. Defaults (see Default)
//  2. A TOML or YAML file, chosen by extension
//  3. EVENTBUS_* environment variables
//
// A missing file is not an error; the defaults apply.
package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/eventbus/event"
)

// Config is the complete eventbus configuration.
type Config struct {
	Log      LogConfig      `toml:"log" yaml:"log"`
	Dispatch DispatchConfig `toml:"dispatch" yaml:"dispatch"`
	Metrics  MetricsConfig  `toml:"metrics" yaml:"metrics"`
	Scripts  ScriptsConfig  `toml:"scripts" yaml:"scripts"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`

	// Format is "console" for human-readable output or "json".
	Format string `toml:"format" yaml:"format"`

	// File, when set, receives the log instead of stderr and is rotated.
	File string `toml:"file" yaml:"file"`

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int `toml:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept.
	MaxBackups int `toml:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `toml:"max_age_days" yaml:"max_age_days"`

	// Compress gzips rotated files.
	Compress bool `toml:"compress" yaml:"compress"`
}

// DispatchConfig configures the dispatcher.
type DispatchConfig struct {
	// CaptureStack logs the stack trace of panicking listeners.
	CaptureStack bool `toml:"capture_stack" yaml:"capture_stack"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Namespace string `toml:"namespace" yaml:"namespace"`
}

// ScriptsConfig configures Lua script listeners.
type ScriptsConfig struct {
	// Paths are loaded in order at startup.
	Paths []string `toml:"paths" yaml:"paths"`

	// Timeout bounds each script execution and listener call.
	Timeout Duration `toml:"timeout" yaml:"timeout"`

	// Priority is used by events.on calls that give none.
	Priority string `toml:"priority" yaml:"priority"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "eventbus",
		},
		Scripts: ScriptsConfig{
			Timeout:  Duration(5 * time.Second),
			Priority: event.PriorityNormal.String(),
		},
	}
}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// Validate checks every setting and reports the first invalid one.
func (c *Config) Validate() error {
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log.format %q (want console or json)", ErrInvalidConfig, c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("%w: log rotation limits must not be negative", ErrInvalidConfig)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("%w: metrics.namespace is empty", ErrInvalidConfig)
	}
	if c.Scripts.Timeout < 0 {
		return fmt.Errorf("%w: scripts.timeout %v is negative", ErrInvalidConfig, c.Scripts.Timeout)
	}
	if _, err := event.ParsePriority(c.Scripts.Priority); err != nil {
		return fmt.Errorf("%w: scripts.priority %q", ErrInvalidConfig, c.Scripts.Priority)
	}
	return nil
}

// ScriptPriority returns the parsed default script priority.
func (c *Config) ScriptPriority() event.Priority {
	p, err := event.ParsePriority(c.Scripts.Priority)
	if err != nil {
		return event.PriorityNormal
	}
	return p
}

// Duration is a time.Duration written as a string such as "1.5s" in config files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler, used by TOML.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// String returns the duration in time.Duration notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}
