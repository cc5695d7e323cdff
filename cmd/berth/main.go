// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/berthd/berth/internal/config"
	"github.com/berthd/berth/internal/engine"
	"github.com/berthd/berth/internal/process"
	"github.com/berthd/berth/internal/project"
	"github.com/berthd/berth/internal/snapshot"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsage)
	}
}

// loadConfig layers CLI overrides on top of the config file. A missing file
// at the default path is not an error; defaults apply. An explicitly given
// path that does not exist is.
func loadConfig() (config.Config, error) {
	cfg := config.Default()

	if _, err := os.Stat(configPath); err == nil || configPath != defaultConfigPath {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if rootOverride != "" {
		cfg.Root = rootOverride
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newService builds the composition root: logger, process runner, engine
// client, service facade, and the optional filesystem watcher.
func newService() (*project.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	eng := engine.New(process.NewExecRunner(), cfg.CommandTimeout(), log)
	svc := project.New(cfg, eng, log)

	cleanup := func() {}
	if cfg.Watch && !cfg.EngineOnly() {
		watcher, err := snapshot.NewWatcher(cfg.Root, svc.Refresh, log)
		if err != nil {
			log.Warn("filesystem watcher unavailable", "error", err)
			return svc, cleanup, nil
		}
		if err := watcher.Start(context.Background()); err != nil {
			log.Warn("filesystem watcher failed to start", "error", err)
			return svc, cleanup, nil
		}
		cleanup = watcher.Stop
	}
	return svc, cleanup, nil
}

// commandContext returns a context canceled on SIGINT/SIGTERM so in-flight
// engine processes are killed rather than orphaned.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// exitCode maps an invocation error to the process exit code: operator
// mistakes exit 2, engine and environment failures exit 1.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, project.ErrNotFound) ||
		errors.Is(err, project.ErrUnknownVerb) ||
		errors.Is(err, project.ErrVerbNeedsFile) {
		return ExitUsage
	}
	return ExitError
}
