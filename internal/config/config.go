// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config holds the read-only configuration surface consumed by the
// discovery core. The configuration is loaded once at the composition root
// and passed down by value; there is deliberately no package-level singleton.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Discovery modes. Hybrid joins on-disk definitions with live engine state;
// engine mode runs with an empty filesystem side and serves engine state only.
const (
	ModeHybrid = "hybrid"
	ModeEngine = "engine"
)

// Config is the full configuration surface of the core.
//
// All durations are expressed in whole seconds in the file format and
// converted through the accessor methods.
type Config struct {
	// Root is the directory tree scanned for project definition files.
	// May point at a missing directory; the core then runs degraded on
	// engine state alone. Required in hybrid mode.
	Root string `yaml:"root" validate:"required_if=Mode hybrid"`

	// Mode selects hybrid or engine-only discovery.
	Mode string `yaml:"mode" validate:"oneof=hybrid engine"`

	// MaxDepth is the deepest directory level (root = 0) the scanner
	// descends into, inclusive.
	MaxDepth int `yaml:"max_depth" validate:"min=0,max=32"`

	// CacheTTLSeconds is how long a computed project snapshot stays fresh.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" validate:"min=1"`

	// MaxFileSizeKB is the largest definition file the validator accepts.
	MaxFileSizeKB int `yaml:"max_file_size_kb" validate:"min=1"`

	// CommandTimeoutSeconds bounds every spawned engine process.
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds" validate:"min=1"`

	// Watch enables fsnotify-based cache invalidation on changes under Root.
	Watch bool `yaml:"watch"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Mode:                  ModeHybrid,
		MaxDepth:              5,
		CacheTTLSeconds:       10,
		MaxFileSizeKB:         1024,
		CommandTimeoutSeconds: 30,
	}
}

// Load reads a YAML configuration file, layers it over the defaults, and
// validates the result. Unknown keys are rejected so typos surface at startup
// instead of silently falling back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints. Exposed so callers constructing a Config
// in code (tests, embedding applications) get the same checks as Load.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// EngineOnly reports whether the filesystem side of discovery is disabled.
func (c Config) EngineOnly() bool {
	return c.Mode == ModeEngine
}

// CacheTTL returns the snapshot TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// MaxFileBytes returns the definition size limit in bytes.
func (c Config) MaxFileBytes() int64 {
	return int64(c.MaxFileSizeKB) * 1024
}

// CommandTimeout returns the per-process timeout as a duration.
func (c Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}
