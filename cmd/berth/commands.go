// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/berthd/berth/internal/project"
)

const defaultConfigPath = "berth.yaml"

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	configPath   string
	rootOverride string
	jsonOutput   bool
	quiet        bool
	verbose      bool
	forceRefresh bool

	rootCmd = &cobra.Command{
		Use:   "berth",
		Short: "Discover and drive compose projects from one unified view",
		Long: `Berth joins two sources of truth about compose projects, the
definition files under a scan root and the live state the engine reports,
into a single reconciled listing, and runs lifecycle commands against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	lsCmd = &cobra.Command{
		Use:   "ls",
		Short: "List all discovered projects",
		Args:  cobra.NoArgs,
		Run:   runList,
	}

	getCmd = &cobra.Command{
		Use:   "get NAME",
		Short: "Show one project by exact name",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	conflictsCmd = &cobra.Command{
		Use:   "conflicts",
		Short: "List project names claimed by more than one definition file",
		Args:  cobra.NoArgs,
		Run:   runConflicts,
	}

	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Report availability of the scan root and the engine",
		Args:  cobra.NoArgs,
		Run:   runHealth,
	}

	refreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Recompute the project snapshot, bypassing the cache",
		Args:  cobra.NoArgs,
		Run:   runRefresh,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&rootOverride, "root", "", "Override the configured scan root")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	lsCmd.Flags().BoolVar(&forceRefresh, "refresh", false, "Bypass the snapshot cache")

	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(refreshCmd)

	// One subcommand per lifecycle verb; legality against the target's data
	// completeness is decided by the service, not here.
	for _, verb := range project.Verbs() {
		verb := verb
		rootCmd.AddCommand(&cobra.Command{
			Use:   verb + " NAME",
			Short: fmt.Sprintf("Run '%s' against a project", verb),
			Args:  cobra.ExactArgs(1),
			Run: func(cmd *cobra.Command, args []string) {
				runVerb(verb, args[0])
			},
		})
	}
}

func runList(cmd *cobra.Command, args []string) {
	svc, cleanup, err := newService()
	if err != nil {
		outputError("startup failed", err)
		os.Exit(ExitUsage)
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	snap, err := svc.List(ctx, forceRefresh)
	if err != nil {
		outputError("listing failed", err)
		os.Exit(ExitError)
	}

	if jsonOutput {
		outputJSON(snapshotEnvelope(snap))
	} else {
		outputViewsText(snap)
	}
	os.Exit(ExitSuccess)
}

func runGet(cmd *cobra.Command, args []string) {
	svc, cleanup, err := newService()
	if err != nil {
		outputError("startup failed", err)
		os.Exit(ExitUsage)
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	view, err := svc.Get(ctx, args[0])
	if err != nil {
		outputError("lookup failed", err)
		os.Exit(exitCode(err))
	}

	if jsonOutput {
		outputJSON(view)
	} else {
		outputViewText(view)
	}
	os.Exit(ExitSuccess)
}

func runConflicts(cmd *cobra.Command, args []string) {
	svc, cleanup, err := newService()
	if err != nil {
		outputError("startup failed", err)
		os.Exit(ExitUsage)
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	conflicts, err := svc.Conflicts(ctx)
	if err != nil {
		outputError("listing failed", err)
		os.Exit(ExitError)
	}

	if jsonOutput {
		outputJSON(conflicts)
	} else {
		outputConflictsText(conflicts)
	}
	os.Exit(ExitSuccess)
}

func runHealth(cmd *cobra.Command, args []string) {
	svc, cleanup, err := newService()
	if err != nil {
		outputError("startup failed", err)
		os.Exit(ExitUsage)
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	health, err := svc.Health(ctx)
	if err != nil {
		outputError("health check failed", err)
		os.Exit(ExitError)
	}

	if jsonOutput {
		outputJSON(health)
	} else {
		outputHealthText(health)
	}
	if health.Degraded {
		os.Exit(ExitError)
	}
	os.Exit(ExitSuccess)
}

func runRefresh(cmd *cobra.Command, args []string) {
	svc, cleanup, err := newService()
	if err != nil {
		outputError("startup failed", err)
		os.Exit(ExitUsage)
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	svc.Refresh()
	snap, err := svc.List(ctx, true)
	if err != nil {
		outputError("refresh failed", err)
		os.Exit(ExitError)
	}

	if jsonOutput {
		outputJSON(snapshotEnvelope(snap))
	} else if !quiet {
		fmt.Printf("refreshed: %d projects, %d conflicts\n", len(snap.Views), len(snap.Conflicts))
	}
	os.Exit(ExitSuccess)
}

func runVerb(verb, name string) {
	svc, cleanup, err := newService()
	if err != nil {
		outputError("startup failed", err)
		os.Exit(ExitUsage)
	}
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	result, err := svc.Invoke(ctx, name, verb)
	if err != nil {
		outputOperation(result, err)
		os.Exit(exitCode(err))
	}

	outputOperation(result, nil)
	os.Exit(ExitSuccess)
}
