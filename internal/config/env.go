package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "EVENTBUS_"

// LookupFunc returns the value of an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envSetter applies one environment value to the config.
type envSetter func(c *Config, value string) error

// envMapping maps environment variables to the settings they override.
var envMapping = map[string]envSetter{
	"LOG_LEVEL":  func(c *Config, v string) error { c.Log.Level = v; return nil },
	"LOG_FORMAT": func(c *Config, v string) error { c.Log.Format = v; return nil },
	"LOG_FILE":   func(c *Config, v string) error { c.Log.File = v; return nil },
	"DISPATCH_CAPTURE_STACK": func(c *Config, v string) error {
		return setBool(&c.Dispatch.CaptureStack, v)
	},
	"METRICS_ENABLED": func(c *Config, v string) error {
		return setBool(&c.Metrics.Enabled, v)
	},
	"METRICS_NAMESPACE": func(c *Config, v string) error { c.Metrics.Namespace = v; return nil },
	"SCRIPTS_PATHS": func(c *Config, v string) error {
		c.Scripts.Paths = splitList(v)
		return nil
	},
	"SCRIPTS_TIMEOUT": func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Scripts.Timeout = Duration(d)
		return nil
	},
	"SCRIPTS_PRIORITY": func(c *Config, v string) error { c.Scripts.Priority = v; return nil },
}

// EnvVars returns the names of all recognized environment variables.
func EnvVars() []string {
	names := make([]string, 0, len(envMapping))
	for key := range envMapping {
		names = append(names, EnvPrefix+key)
	}
	return names
}

// ApplyEnv overrides cfg with every recognized EVENTBUS_* variable that is set.
// Empty values count as set.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	for key, set := range envMapping {
		value, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		if err := set(cfg, value); err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalidConfig, EnvPrefix, key, value, err)
		}
	}
	return nil
}

// setBool accepts true/false, yes/no, on/off and 1/0.
func setBool(dst *bool, s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		*dst = true
	case "false", "no", "off", "0", "":
		*dst = false
	default:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		*dst = b
	}
	return nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
