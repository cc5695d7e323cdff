// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for snapshot cache operations. Exporter wiring is the
// embedding application's business; without one these counters are no-ops.
var meter = otel.Meter("berth.snapshot")

var (
	cacheHits          metric.Int64Counter
	cacheMisses        metric.Int64Counter
	cacheBuilds        metric.Int64Counter
	cacheInvalidations metric.Int64Counter

	metricsOnce sync.Once
)

// initMetrics initializes the counters. Safe to call multiple times; a
// registration failure leaves the affected counter nil and recording skips it.
func initMetrics() {
	metricsOnce.Do(func() {
		cacheHits, _ = meter.Int64Counter(
			"snapshot_hits_total",
			metric.WithDescription("Snapshot cache hits"),
		)
		cacheMisses, _ = meter.Int64Counter(
			"snapshot_misses_total",
			metric.WithDescription("Snapshot cache misses"),
		)
		cacheBuilds, _ = meter.Int64Counter(
			"snapshot_builds_total",
			metric.WithDescription("Full discovery pipeline executions"),
		)
		cacheInvalidations, _ = meter.Int64Counter(
			"snapshot_invalidations_total",
			metric.WithDescription("Explicit snapshot invalidations"),
		)
	})
}

func recordHit(ctx context.Context) {
	initMetrics()
	if cacheHits != nil {
		cacheHits.Add(ctx, 1)
	}
}

func recordMiss(ctx context.Context) {
	initMetrics()
	if cacheMisses != nil {
		cacheMisses.Add(ctx, 1)
	}
}

func recordBuild(ctx context.Context) {
	initMetrics()
	if cacheBuilds != nil {
		cacheBuilds.Add(ctx, 1)
	}
}

func recordInvalidation(ctx context.Context) {
	initMetrics()
	if cacheInvalidations != nil {
		cacheInvalidations.Add(ctx, 1)
	}
}
