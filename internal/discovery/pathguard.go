// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import (
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
)

// caseInsensitiveFS reports whether the platform's filesystem compares paths
// case-insensitively by default.
var caseInsensitiveFS = runtime.GOOS == "darwin" || runtime.GOOS == "windows"

// WithinRoot reports whether candidate resolves to root or a descendant of
// root.
//
// This is the boundary check for externally supplied paths (API parameters
// and the like). The scanner never needs it: paths it emits originate from
// its own enumeration and are trusted by construction. Symlinks are resolved
// before comparison, so a link inside the root pointing outside it is
// rejected. Every rejection is logged at warning severity as a potential
// traversal probe; translating the rejection into a user-facing error is the
// caller's job.
func WithinRoot(candidate, root string, log *slog.Logger) bool {
	if log == nil {
		log = slog.Default()
	}

	absRoot, err := canonicalize(root)
	if err != nil {
		log.Warn("path rejected: root not resolvable", "root", root, "error", err)
		return false
	}
	absCandidate, err := canonicalize(candidate)
	if err != nil {
		log.Warn("path rejected: not resolvable", "path", candidate, "error", err)
		return false
	}

	cmpRoot, cmpCandidate := absRoot, absCandidate
	if caseInsensitiveFS {
		cmpRoot = strings.ToLower(cmpRoot)
		cmpCandidate = strings.ToLower(cmpCandidate)
	}

	rel, err := filepath.Rel(cmpRoot, cmpCandidate)
	if err != nil {
		log.Warn("path rejected: outside scan root", "path", candidate, "root", root)
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		log.Warn("path rejected: outside scan root", "path", candidate, "root", root)
		return false
	}

	return true
}

// canonicalize returns the absolute, symlink-resolved form of path. A path
// that does not exist yet is resolved through its deepest existing parent,
// falling back to the lexical absolute form.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs)), nil
	}
	return abs, nil
}
