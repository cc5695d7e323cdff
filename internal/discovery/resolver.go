// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import (
	"sort"

	"github.com/samber/lo"
)

// Resolve reduces scanned definitions to at most one per project name.
//
// Per name: disabled definitions never win and never conflict. Exactly one
// active definition is emitted as-is; two or more active claimants drop the
// whole group and produce a Conflict listing the active paths in ascending
// order; a group of only disabled definitions vanishes without a conflict.
//
// Pure and deterministic: identical input yields identical output ordering
// (resolved by project name, conflict paths by file path).
func Resolve(defs []Definition) ([]Definition, []Conflict) {
	groups := lo.GroupBy(defs, func(d Definition) string { return d.ProjectName })

	names := lo.Keys(groups)
	sort.Strings(names)

	resolved := []Definition{}
	conflicts := []Conflict{}

	for _, name := range names {
		active := lo.Filter(groups[name], func(d Definition, _ int) bool { return !d.Disabled })
		sort.Slice(active, func(i, j int) bool { return active[i].FilePath < active[j].FilePath })

		switch len(active) {
		case 0:
			// All claimants disabled: intentionally parked, not a conflict.
		case 1:
			resolved = append(resolved, active[0])
		default:
			conflicts = append(conflicts, Conflict{
				ProjectName: name,
				FilePaths:   lo.Map(active, func(d Definition, _ int) string { return d.FilePath }),
			})
		}
	}

	return resolved, conflicts
}
