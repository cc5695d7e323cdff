// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/berthd/berth/internal/discovery"
	"github.com/berthd/berth/internal/project"
)

// Process exit codes. Usage errors (unknown project, illegal verb, bad
// config) are distinguished from runtime failures so scripts can tell a typo
// from a down engine.
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// snapshotResponse is the machine-readable envelope for full listings.
type snapshotResponse struct {
	Projects  []project.View       `json:"projects"`
	Conflicts []discovery.Conflict `json:"conflicts"`
	Health    project.Health       `json:"health"`
}

// errorResponse is the machine-readable envelope for failures.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func snapshotEnvelope(snap project.Snapshot) snapshotResponse {
	return snapshotResponse{
		Projects:  snap.Views,
		Conflicts: snap.Conflicts,
		Health:    snap.Health,
	}
}

// outputJSON writes v as indented JSON to stdout.
func outputJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
	}
}

// outputError reports a failure on stderr, honoring --json.
func outputError(message string, err error) {
	if jsonOutput {
		data, _ := json.Marshal(errorResponse{Error: err.Error(), Message: message})
		fmt.Fprintln(os.Stderr, string(data))
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", message, err)
}

func outputViewsText(snap project.Snapshot) {
	if quiet {
		for _, view := range snap.Views {
			fmt.Println(view.Name)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tCONTAINERS\tDEFINITION\tWARNING")
	for _, view := range snap.Views {
		def := view.DefinitionFile
		if def == "" {
			def = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			view.Name, view.State, view.ContainerCount, def, view.Warning)
	}
	w.Flush()

	if len(snap.Conflicts) > 0 {
		fmt.Printf("\n%d naming conflict(s); run 'berth conflicts' for details\n", len(snap.Conflicts))
	}
	if snap.Health.Degraded {
		fmt.Printf("\ndegraded: %s\n", snap.Health.Reason)
	}
}

func outputViewText(view project.View) {
	fmt.Printf("Name:        %s\n", view.Name)
	fmt.Printf("State:       %s\n", view.State)
	fmt.Printf("Containers:  %d\n", view.ContainerCount)
	if view.HasDefinitionFile {
		fmt.Printf("Definition:  %s\n", view.DefinitionFile)
		fmt.Printf("Services:    %s\n", strings.Join(view.Services, ", "))
	}
	if view.Warning != "" {
		fmt.Printf("Warning:     %s\n", view.Warning)
	}

	// Iterate Verbs() rather than the map so the order is stable.
	allowed := []string{}
	for _, verb := range project.Verbs() {
		if view.AvailableActions[verb] {
			allowed = append(allowed, verb)
		}
	}
	fmt.Printf("Actions:     %s\n", strings.Join(allowed, ", "))
}

func outputConflictsText(conflicts []discovery.Conflict) {
	if len(conflicts) == 0 {
		if !quiet {
			fmt.Println("no conflicts")
		}
		return
	}
	for _, c := range conflicts {
		fmt.Printf("%s:\n", c.ProjectName)
		for _, path := range c.FilePaths {
			fmt.Printf("  %s\n", path)
		}
	}
}

func outputHealthText(h project.Health) {
	fmt.Printf("root accessible:  %t\n", h.RootAccessible)
	fmt.Printf("engine reachable: %t\n", h.EngineReachable)
	if h.Degraded {
		fmt.Printf("degraded:         %s\n", h.Reason)
	}
}

// outputOperation reports a lifecycle invocation, relaying the engine's own
// output so failures are diagnosable without rerunning by hand.
func outputOperation(result project.OperationResult, err error) {
	if jsonOutput {
		outputJSON(result)
		return
	}

	if result.Stdout != "" && !quiet {
		fmt.Print(result.Stdout)
		if !strings.HasSuffix(result.Stdout, "\n") {
			fmt.Println()
		}
	}
	if result.Stderr != "" {
		fmt.Fprint(os.Stderr, result.Stderr)
		if !strings.HasSuffix(result.Stderr, "\n") {
			fmt.Fprintln(os.Stderr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", result.Message, err)
		return
	}
	if !quiet {
		fmt.Println(result.Message)
	}
}
