// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/berthd/berth/internal/config"
	"github.com/berthd/berth/internal/discovery"
	"github.com/berthd/berth/internal/engine"
	"github.com/berthd/berth/internal/snapshot"
)

// Sentinel errors for lifecycle invocation. Callers distinguish operator
// mistakes (unknown name or verb, verb/data mismatch) from engine failures,
// which arrive wrapped around the engine's own error.
var (
	// ErrNotFound is returned when no project with the requested name
	// exists in the current snapshot.
	ErrNotFound = errors.New("project not found")

	// ErrUnknownVerb is returned for verbs outside the lifecycle set.
	ErrUnknownVerb = errors.New("unknown lifecycle verb")

	// ErrVerbNeedsFile is returned when a file-addressed verb targets a
	// project with no resolved definition file. The check happens before
	// any process is spawned.
	ErrVerbNeedsFile = errors.New("verb requires a definition file")

	// ErrPathOutsideRoot is returned when a definition path escapes the
	// configured root. Indicates snapshot corruption or tampering; the
	// invocation is refused.
	ErrPathOutsideRoot = errors.New("definition path outside configured root")
)

// EngineClient is the slice of the engine surface the service consumes.
// *engine.Engine satisfies it; tests substitute a stub.
type EngineClient interface {
	List(ctx context.Context) ([]engine.Record, error)
	Invoke(ctx context.Context, verb string, target engine.Target) (*engine.Result, error)
}

var _ EngineClient = (*engine.Engine)(nil)

// Service is the inbound facade of the discovery core: it computes unified
// project snapshots through the TTL cache and applies the command policy to
// lifecycle invocations.
//
// # Thread Safety
//
// Safe for concurrent use. All mutable state lives in the snapshot cache.
type Service struct {
	cfg     config.Config
	client  EngineClient
	scanner *discovery.Scanner
	cache   *snapshot.Cache[Snapshot]
	log     *slog.Logger
}

// New creates a Service. In engine-only mode no scanner is constructed and
// every snapshot has an empty filesystem side.
func New(cfg config.Config, client EngineClient, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	var scanner *discovery.Scanner
	if !cfg.EngineOnly() {
		limits := discovery.DefaultLimits()
		limits.MaxBytes = cfg.MaxFileBytes()
		scanner = discovery.NewScanner(cfg.Root, cfg.MaxDepth, limits, log)
	}

	return &Service{
		cfg:     cfg,
		client:  client,
		scanner: scanner,
		cache:   snapshot.New[Snapshot](cfg.CacheTTL()),
		log:     log,
	}
}

// List returns the current snapshot, recomputing it when stale or when force
// is set. A degraded snapshot (one or both sources down) is still a valid
// snapshot; only context cancellation surfaces as an error.
func (s *Service) List(ctx context.Context, force bool) (Snapshot, error) {
	return s.cache.Get(ctx, force, s.build)
}

// Get returns the view of a single project by exact name.
func (s *Service) Get(ctx context.Context, name string) (View, error) {
	snap, err := s.List(ctx, false)
	if err != nil {
		return View{}, err
	}
	for _, view := range snap.Views {
		if view.Name == name {
			return view, nil
		}
	}
	return View{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Conflicts returns the naming conflicts detected in the current snapshot.
func (s *Service) Conflicts(ctx context.Context) ([]discovery.Conflict, error) {
	snap, err := s.List(ctx, false)
	if err != nil {
		return nil, err
	}
	return snap.Conflicts, nil
}

// Health reports source availability from a fresh snapshot, so the answer
// reflects the sources as they are now rather than as they were when the
// cache last filled.
func (s *Service) Health(ctx context.Context) (Health, error) {
	snap, err := s.List(ctx, true)
	if err != nil {
		return Health{}, err
	}
	return snap.Health, nil
}

// Refresh drops the cached snapshot. The next List recomputes.
func (s *Service) Refresh() {
	s.cache.Invalidate()
}

// Invoke runs a lifecycle verb against a named project.
//
// The verb is classified and the project resolved against a forced-fresh
// snapshot before any engine process is spawned, so a file-addressed verb on
// a fileless project fails fast with ErrVerbNeedsFile. The cache is
// invalidated after the invocation completes, successful or not, because the
// engine state it observed is now suspect either way.
func (s *Service) Invoke(ctx context.Context, name, verb string) (OperationResult, error) {
	if !KnownVerb(verb) {
		return OperationResult{}, fmt.Errorf("%w: %s", ErrUnknownVerb, verb)
	}

	view, err := s.freshView(ctx, name)
	if err != nil {
		return OperationResult{}, err
	}

	if !Allowed(verb, view.HasDefinitionFile) {
		return OperationResult{}, fmt.Errorf("%w: %s on %s", ErrVerbNeedsFile, verb, name)
	}

	target := engine.Target{Name: name}
	if NeedsDefinitionFile(verb) {
		if !discovery.WithinRoot(view.DefinitionFile, s.cfg.Root, s.log) {
			return OperationResult{}, fmt.Errorf("%w: %s", ErrPathOutsideRoot, view.DefinitionFile)
		}
		target.File = view.DefinitionFile
		target.Dir = filepath.Dir(view.DefinitionFile)
	}

	result, invokeErr := s.client.Invoke(ctx, verb, target)

	// Invalidate strictly after the invocation finishes; a snapshot built
	// mid-invocation would race the engine's state transition.
	s.cache.Invalidate()

	op := OperationResult{
		Success: invokeErr == nil,
		Message: fmt.Sprintf("%s %s", verb, name),
	}
	if result != nil {
		op.Stdout = result.Stdout
		op.Stderr = result.Stderr
	}
	if invokeErr != nil {
		op.Message = fmt.Sprintf("%s %s failed", verb, name)
		return op, invokeErr
	}
	return op, nil
}

// build runs one full discovery pipeline: scan and engine listing in
// parallel, resolve, reconcile. Source failures are demoted to health
// signals; the snapshot itself is always produced.
func (s *Service) build(ctx context.Context) (Snapshot, error) {
	var (
		defs      []discovery.Definition
		conflicts []discovery.Conflict
		records   []engine.Record
		scanErr   error
		listErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.scanner == nil {
			return nil
		}
		raw, err := s.scanner.Scan(gctx)
		if err != nil {
			scanErr = err
			return nil
		}
		defs, conflicts = discovery.Resolve(raw)
		return nil
	})
	g.Go(func() error {
		recs, err := s.client.List(gctx)
		if err != nil {
			listErr = err
			return nil
		}
		records = recs
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	if scanErr != nil {
		s.log.Warn("filesystem discovery degraded", "error", scanErr)
	}
	if listErr != nil {
		s.log.Warn("engine discovery degraded", "error", listErr)
	}

	return Snapshot{
		Views:     Reconcile(defs, records),
		Conflicts: conflicts,
		Health:    buildHealth(scanErr, listErr),
	}, nil
}

// freshView resolves one project against a forced rebuild. Lifecycle
// decisions must never run on a stale snapshot.
func (s *Service) freshView(ctx context.Context, name string) (View, error) {
	snap, err := s.List(ctx, true)
	if err != nil {
		return View{}, err
	}
	for _, view := range snap.Views {
		if view.Name == name {
			return view, nil
		}
	}
	return View{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// buildHealth folds per-source failures into the health record.
func buildHealth(scanErr, listErr error) Health {
	h := Health{
		RootAccessible:  scanErr == nil,
		EngineReachable: listErr == nil,
	}
	switch {
	case scanErr != nil && listErr != nil:
		h.Degraded = true
		h.Reason = fmt.Sprintf("scan root: %v; engine: %v", scanErr, listErr)
	case scanErr != nil:
		h.Degraded = true
		h.Reason = fmt.Sprintf("scan root: %v", scanErr)
	case listErr != nil:
		h.Degraded = true
		h.Reason = fmt.Sprintf("engine: %v", listErr)
	}
	return h
}
