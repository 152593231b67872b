// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gundem Contributors

// Package config loads service configuration from a YAML file, environment
// variables, and command-line flags. Precedence is flags over file over
// defaults; DATABASE_URL from the environment fills in a missing database URL.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	flag "github.com/spf13/pflag"
)

// Config holds the full service configuration.
type Config struct {
	DatabaseURL    string        `koanf:"database_url"`
	LogFormat      string        `koanf:"log_format"`
	LogLevel       string        `koanf:"log_level"`
	MetricsAddr    string        `koanf:"metrics_addr"`
	SessionTTL     time.Duration `koanf:"session_ttl"`
	HashIterations int           `koanf:"hash_iterations"`
	SweepInterval  time.Duration `koanf:"sweep_interval"`
}

// Default returns the built-in configuration values.
func Default() Config {
	return Config{
		LogFormat:      "json",
		LogLevel:       "info",
		MetricsAddr:    "127.0.0.1:9100",
		SessionTTL:     24 * time.Hour,
		HashIterations: 100_000,
		SweepInterval:  time.Hour,
	}
}

// Load reads configuration from the given YAML file (skipped when path is
// empty) and overlays any set flags. Validate is not called; callers decide
// when a complete config is required.
func Load(path string, flags *flag.FlagSet) (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	return cfg, nil
}

// Validate checks that the configuration is complete enough to run commands
// that need a database.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_MISSING_DATABASE_URL").
			Errorf("database_url is required (set it in the config file or the DATABASE_URL environment variable)")
	}
	if c.SessionTTL <= 0 {
		return oops.Code("CONFIG_INVALID_SESSION_TTL").
			Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.SweepInterval <= 0 {
		return oops.Code("CONFIG_INVALID_SWEEP_INTERVAL").
			Errorf("sweep_interval must be positive, got %s", c.SweepInterval)
	}
	return nil
}
