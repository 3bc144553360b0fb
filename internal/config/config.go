// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Shelfside Contributors

// Package config loads Shelfside runtime configuration from YAML files
// and command-line flags.
package config

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// LogConfig controls structured logging.
type LogConfig struct {
	Format string `koanf:"format"` // "json" or "text"
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error"
}

// MetricsConfig controls the observability server.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// ExtensionsConfig controls the extension runtime session.
type ExtensionsConfig struct {
	// Dir is the directory scanned for extension manifests.
	Dir string `koanf:"dir"`

	// EnabledByDefault controls whether freshly registered extensions
	// start active.
	EnabledByDefault bool `koanf:"enabled_by_default"`

	// AutoCleanup controls whether session teardown unregisters all
	// extensions.
	AutoCleanup bool `koanf:"auto_cleanup"`

	// Disabled names extensions to disable right after startup
	// registration.
	Disabled []string `koanf:"disabled"`
}

// AppConfig carries host application identity.
type AppConfig struct {
	Environment string `koanf:"environment"`
}

// Config is the full application configuration.
type Config struct {
	Log        LogConfig        `koanf:"log"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Extensions ExtensionsConfig `koanf:"extensions"`
	App        AppConfig        `koanf:"app"`
}

// Default returns the configuration used when no file or flag overrides a
// value.
func Default() Config {
	return Config{
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9180",
		},
		Extensions: ExtensionsConfig{
			Dir:              "extensions",
			EnabledByDefault: true,
			AutoCleanup:      true,
		},
		App: AppConfig{
			Environment: "production",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// an optional flag set, in that precedence order (flags win).
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cfg, oops.In("config").With("path", path).Hint("failed to load config file").Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return cfg, oops.In("config").Hint("failed to load flags").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, oops.In("config").Hint("failed to unmarshal config").Wrap(err)
	}
	return cfg, nil
}
