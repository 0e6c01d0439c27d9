// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

// Package config loads devroot client settings.
//
// Sources are layered, later ones winning: built-in defaults, a YAML file,
// DEVROOT_* environment variables, then command-line flags the user set.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/devroot/devroot/internal/gateway"
	"github.com/devroot/devroot/internal/logging"
	"github.com/devroot/devroot/internal/route"
	"github.com/devroot/devroot/internal/xdg"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DEVROOT_"

// Error codes.
const (
	CodeLoad    = "CONFIG_LOAD"
	CodeInvalid = "CONFIG_INVALID"
)

// Keys.
const (
	KeyBackendURL      = "backend_url"
	KeyTimeout         = "timeout"
	KeyLogFormat       = "log_format"
	KeyLogLevel        = "log_level"
	KeyStateFile       = "state_file"
	KeyMetricsAddr     = "metrics_addr"
	KeyProtectedRoutes = "protected_routes"
)

// Config is the resolved client configuration.
type Config struct {
	BackendURL      string        `koanf:"backend_url"`
	Timeout         time.Duration `koanf:"timeout"`
	LogFormat       string        `koanf:"log_format"`
	LogLevel        string        `koanf:"log_level"`
	StateFile       string        `koanf:"state_file"`
	MetricsAddr     string        `koanf:"metrics_addr"`
	ProtectedRoutes []string      `koanf:"protected_routes"`
}

// Default returns the built-in settings. BackendURL has no default.
func Default() Config {
	stateFile, err := xdg.SessionFile()
	if err != nil {
		stateFile = ""
	}
	return Config{
		Timeout:         gateway.DefaultTimeout,
		LogFormat:       logging.FormatJSON,
		LogLevel:        "info",
		StateFile:       stateFile,
		ProtectedRoutes: route.DefaultProtected(),
	}
}

// RegisterFlags adds the config flags to fs. Flag names are the keys with
// '-' for '_'.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("backend-url", "", "identity service base URL (env DEVROOT_BACKEND_URL)")
	fs.Duration("timeout", d.Timeout, "per-request timeout")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String("state-file", d.StateFile, "session snapshot file")
	fs.String("metrics-addr", "", "serve /metrics and health probes on this address")
	fs.StringSlice("protected-routes", d.ProtectedRoutes, "glob patterns of pages that need a signed-in user")
}

var knownKeys = map[string]bool{
	KeyBackendURL:      true,
	KeyTimeout:         true,
	KeyLogFormat:       true,
	KeyLogLevel:        true,
	KeyStateFile:       true,
	KeyMetricsAddr:     true,
	KeyProtectedRoutes: true,
}

// Load resolves the configuration. configFile may be empty, in which case
// $XDG_CONFIG_HOME/devroot/config.yaml is read when it exists. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	d := Default()
	defaults := map[string]any{
		KeyBackendURL:      d.BackendURL,
		KeyTimeout:         d.Timeout.String(),
		KeyLogFormat:       d.LogFormat,
		KeyLogLevel:        d.LogLevel,
		KeyStateFile:       d.StateFile,
		KeyMetricsAddr:     d.MetricsAddr,
		KeyProtectedRoutes: d.ProtectedRoutes,
	}
	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code(CodeLoad).With("key", key).Wrap(err)
		}
	}

	path, required := configFile, true
	if path == "" {
		required = false
		if p, err := xdg.ConfigFile(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := loadFile(k, path, required); err != nil {
			return nil, err
		}
	}

	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(name, value string) (string, any) {
		key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
		if !knownKeys[key] {
			return "", nil
		}
		if key == KeyProtectedRoutes {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, oops.Code(CodeLoad).With("source", "env").Wrap(err)
	}

	if flags != nil {
		flagProvider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !knownKeys[key] {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(flagProvider, nil); err != nil {
			return nil, oops.Code(CodeLoad).With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeLoad).With("source", "unmarshal").Wrap(err)
	}
	cfg.BackendURL = strings.TrimSpace(cfg.BackendURL)
	return &cfg, nil
}

// splitList splits a comma-separated environment value.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return oops.Code(CodeLoad).With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code(CodeLoad).With("path", path).Wrap(err)
	}
	return nil
}

// Validate checks the settings needed to talk to the identity service.
func (c *Config) Validate() error {
	if _, err := gateway.ParseBaseURL(c.BackendURL); err != nil {
		return invalid(KeyBackendURL, err)
	}
	return c.ValidateLocal()
}

// ValidateLocal checks every setting except the backend URL, for commands
// that never talk to the identity service.
func (c *Config) ValidateLocal() error {
	if c.Timeout <= 0 {
		return oops.Code(CodeInvalid).
			With("key", KeyTimeout).
			Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if err := logging.ValidateFormat(c.LogFormat); err != nil {
		return invalid(KeyLogFormat, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return invalid(KeyLogLevel, err)
	}
	if strings.TrimSpace(c.StateFile) == "" {
		return oops.Code(CodeInvalid).
			With("key", KeyStateFile).
			Errorf("state file is not set and no XDG state directory could be found")
	}
	if err := route.ValidatePatterns(c.ProtectedRoutes); err != nil {
		return invalid(KeyProtectedRoutes, err)
	}
	return nil
}

// invalid reports a bad key. The cause is flattened so CodeInvalid is the
// code callers see.
func invalid(key string, cause error) error {
	return oops.Code(CodeInvalid).
		With("key", key).
		Errorf("invalid %s: %v", key, cause)
}
