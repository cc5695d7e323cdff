// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import "sort"

// The verb partition is static policy: a verb either needs the definition
// file on disk or the engine can resolve the project from its own state by
// name. It never depends on cache freshness, engine reachability, or prior
// invocation history.
var (
	fileVerbs = map[string]struct{}{
		"up":      {},
		"create":  {},
		"run":     {},
		"build":   {},
		"pull":    {},
		"push":    {},
		"config":  {},
		"convert": {},
	}

	nameVerbs = map[string]struct{}{
		"start":   {},
		"stop":    {},
		"restart": {},
		"pause":   {},
		"unpause": {},
		"ps":      {},
		"logs":    {},
		"top":     {},
		"down":    {},
		"rm":      {},
		"kill":    {},
	}
)

// KnownVerb reports whether verb is a recognized lifecycle verb.
func KnownVerb(verb string) bool {
	_, file := fileVerbs[verb]
	_, name := nameVerbs[verb]
	return file || name
}

// NeedsDefinitionFile reports whether verb can only run against a project
// with a resolved definition file.
func NeedsDefinitionFile(verb string) bool {
	_, ok := fileVerbs[verb]
	return ok
}

// Allowed reports whether verb is legal for a project with the given data
// completeness. Unknown verbs are never allowed.
func Allowed(verb string, hasDefinitionFile bool) bool {
	if _, ok := nameVerbs[verb]; ok {
		return true
	}
	if _, ok := fileVerbs[verb]; ok {
		return hasDefinitionFile
	}
	return false
}

// AvailableActions computes the full verb legality map for one project.
func AvailableActions(hasDefinitionFile bool) map[string]bool {
	actions := make(map[string]bool, len(fileVerbs)+len(nameVerbs))
	for verb := range fileVerbs {
		actions[verb] = hasDefinitionFile
	}
	for verb := range nameVerbs {
		actions[verb] = true
	}
	return actions
}

// Verbs returns every known lifecycle verb, sorted. Used by the CLI to
// register one subcommand per verb.
func Verbs() []string {
	verbs := make([]string, 0, len(fileVerbs)+len(nameVerbs))
	for verb := range fileVerbs {
		verbs = append(verbs, verb)
	}
	for verb := range nameVerbs {
		verbs = append(verbs, verb)
	}
	sort.Strings(verbs)
	return verbs
}
