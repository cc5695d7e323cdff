// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package project reconciles on-disk definitions with live engine state into a
unified, queryable view and applies the lifecycle command policy.

The Service type is the inbound surface consumed by embedding applications
(API layers, the berth CLI). All data it returns is immutable once built and
recomputed wholesale through the snapshot cache.
*/
package project

import (
	"github.com/berthd/berth/internal/discovery"
	"github.com/berthd/berth/internal/engine"
)

// View is the reconciled, externally visible record of one compose project.
// A View exists for every name seen on either side of discovery.
type View struct {
	// Name is the project name, the join key between both sources.
	Name string `json:"name"`

	// State is the parsed lifecycle state. Projects known only from a
	// definition file report StateNotStarted.
	State engine.State `json:"state"`

	// RawStatus preserves the engine's status string for display,
	// especially when it did not parse.
	RawStatus string `json:"raw_status,omitempty"`

	// ContainerCount is parsed from the engine status; 0 when unstarted.
	ContainerCount int `json:"container_count"`

	// DefinitionFile is the resolved on-disk definition path, or "".
	DefinitionFile string `json:"definition_file,omitempty"`

	// HasDefinitionFile is true iff DefinitionFile is set.
	HasDefinitionFile bool `json:"has_definition_file"`

	// Services comes from the matched definition when one exists. It may
	// be stale relative to a running project whose file was edited after
	// the last up; that inconsistency is accepted.
	Services []string `json:"services,omitempty"`

	// AvailableActions maps each lifecycle verb to its legality for this
	// project, as decided by the command classifier.
	AvailableActions map[string]bool `json:"available_actions"`

	// Warning carries a human-readable caveat, e.g. a project running
	// without any discovered definition file.
	Warning string `json:"warning,omitempty"`
}

// Health reports the availability of both discovery sources.
type Health struct {
	// RootAccessible is false when the configured scan root cannot be
	// read. Vacuously true in engine-only mode, where no root exists.
	RootAccessible bool `json:"root_accessible"`

	// EngineReachable is false when the last engine listing failed.
	EngineReachable bool `json:"engine_reachable"`

	// Degraded is true when either source is unavailable.
	Degraded bool `json:"degraded"`

	// Reason is a human-readable explanation when Degraded is set.
	Reason string `json:"reason,omitempty"`
}

// OperationResult reports a completed lifecycle invocation.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Stdout  string `json:"stdout,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
}

// Snapshot is one fully computed discovery result: the unified views plus
// the diagnostics that came out of the same pipeline run.
type Snapshot struct {
	Views     []View
	Conflicts []discovery.Conflict
	Health    Health
}
