// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"sort"

	"github.com/samber/lo"

	"github.com/berthd/berth/internal/discovery"
	"github.com/berthd/berth/internal/engine"
)

// WarningNoDefinition flags a project the engine knows but no resolved
// definition file backs. The project was likely started from a file that has
// since been removed, renamed, or lost a naming conflict.
const WarningNoDefinition = "no definition file found for this project"

// Reconcile joins resolved definitions with engine records by exact,
// case-sensitive project name.
//
// The output covers the union of names from both inputs, one View per name,
// sorted ascending. Where both sides match, engine state wins for lifecycle
// status and the definition wins for file path and services. Names only the
// engine knows get a warning; names only the filesystem knows report
// StateNotStarted.
func Reconcile(defs []discovery.Definition, records []engine.Record) []View {
	defsByName := lo.KeyBy(defs, func(d discovery.Definition) string { return d.ProjectName })
	recordsByName := lo.KeyBy(records, func(r engine.Record) string { return r.Name })

	names := lo.Uniq(append(lo.Keys(defsByName), lo.Keys(recordsByName)...))
	sort.Strings(names)

	views := make([]View, 0, len(names))
	for _, name := range names {
		def, hasDef := defsByName[name]
		record, hasRecord := recordsByName[name]

		view := View{
			Name:  name,
			State: engine.StateNotStarted,
		}

		if hasRecord {
			view.State, view.ContainerCount = engine.ParseStatus(record.RawStatus)
			view.RawStatus = record.RawStatus
		}

		if hasDef {
			view.DefinitionFile = def.FilePath
			view.HasDefinitionFile = true
			view.Services = def.Services
		} else {
			view.Warning = WarningNoDefinition
		}

		view.AvailableActions = AvailableActions(view.HasDefinitionFile)
		views = append(views, view)
	}

	return views
}
