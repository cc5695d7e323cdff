// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package snapshot

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates a snapshot on filesystem changes under a root.
//
// The TTL remains the correctness backstop; the watcher only shortens the
// window between an on-disk edit and the next recomputation. Events are
// debounced so a burst of writes triggers one invalidation.
type Watcher struct {
	root     string
	notify   func()
	debounce time.Duration
	watcher  *fsnotify.Watcher
	log      *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher over root that calls notify after changes
// settle. Call Start to begin watching and Stop to release the inotify
// resources.
func NewWatcher(root string, notify func(), log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		root:     root,
		notify:   notify,
		debounce: 250 * time.Millisecond,
		watcher:  fsw,
		log:      log,
		done:     make(chan struct{}),
	}, nil
}

// Start registers the root tree and begins processing events. Watching stops
// when ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

// Stop releases the underlying watcher. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
}

// addRecursive watches root and every subdirectory. Unreadable subtrees are
// skipped; the scanner handles them the same way.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(path)
	})
}

// loop debounces events into invalidations. New directories are added to the
// watch set as they appear.
func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.watcher.Add(event.Name)
				}
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				// Drain a fired-but-unread timer before Reset, per the
				// time.Timer contract, so the debounce window cannot
				// expire immediately.
				if !timer.Stop() {
					select {
					case <-timerC:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			w.log.Debug("filesystem change settled, invalidating snapshot", "root", w.root)
			w.notify()
			timer = nil
			timerC = nil

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("filesystem watcher error", "error", err)
		}
	}
}
