// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package snapshot provides a single-entry TTL cache in front of an expensive,
process-spawning computation.

Concurrency discipline: readers under a hit take a read lock only; the miss
path is deduplicated through singleflight so N concurrent callers arriving in
a miss window trigger exactly one recomputation and all receive the same
result. The cache is an explicitly constructed instance handed to its callers,
never process-global state.
*/
package snapshot

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// BuildFunc computes a fresh value on a cache miss.
type BuildFunc[T any] func(ctx context.Context) (T, error)

// Cache memoizes one value for a fixed TTL.
//
// # Thread Safety
//
// Safe for concurrent use. Exactly one build runs at a time; see package doc.
type Cache[T any] struct {
	ttl time.Duration

	mu     sync.RWMutex
	entry  *entry[T]
	gen    uint64
	flight singleflight.Group
}

type entry[T any] struct {
	value   T
	builtAt time.Time
}

// New creates a Cache with the given TTL. A zero TTL disables reuse entirely,
// turning every Get into a (still deduplicated) rebuild.
func New[T any](ttl time.Duration) *Cache[T] {
	return &Cache[T]{ttl: ttl}
}

// Get returns the cached value, rebuilding it when the entry is missing or
// older than the TTL. force drops the current entry first, so the caller is
// guaranteed a value computed no earlier than its own call.
//
// Build failures are returned to every caller of the deduplicated build and
// are never stored, so a transient failure does not masquerade as a valid
// empty result for the rest of the TTL window.
func (c *Cache[T]) Get(ctx context.Context, force bool, build BuildFunc[T]) (T, error) {
	if force {
		c.Invalidate()
	} else if value, ok := c.fresh(); ok {
		recordHit(ctx)
		return value, nil
	}

	recordMiss(ctx)

	// Single cache key: the whole unified snapshot is one entry.
	result, err, _ := c.flight.Do("snapshot", func() (interface{}, error) {
		// Double-check after winning the flight: a concurrent caller may
		// have populated the entry while this one waited.
		if value, ok := c.fresh(); ok {
			return value, nil
		}

		c.mu.RLock()
		startGen := c.gen
		c.mu.RUnlock()

		recordBuild(ctx)
		value, err := build(ctx)
		if err != nil {
			var zero T
			return zero, err
		}

		// Store only if no Invalidate landed while the build was in
		// flight; the build observed pre-invalidation state, so storing
		// it would serve that state as fresh for a full TTL. The value
		// is still returned to the waiting callers.
		c.mu.Lock()
		if c.gen == startGen {
			c.entry = &entry[T]{value: value, builtAt: time.Now()}
		}
		c.mu.Unlock()

		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}

// Invalidate drops the stored entry immediately. Idempotent; the next Get
// unconditionally recomputes. A build already in flight when Invalidate is
// called completes but its result is not stored.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.gen++
	c.mu.Unlock()
	recordInvalidation(context.Background())
}

// fresh returns the cached value if one exists and is within TTL.
func (c *Cache[T]) fresh() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry == nil || time.Since(c.entry.builtAt) > c.ttl {
		var zero T
		return zero, false
	}
	return c.entry.value, true
}
