// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// candidateExtensions is the case-sensitive allow-list of definition file
// extensions. Mixed-case spellings like .Yml are deliberately not matched.
var candidateExtensions = map[string]struct{}{
	".yml":  {},
	".yaml": {},
	".YML":  {},
	".YAML": {},
}

// Scanner recursively walks a root directory and emits one Definition per
// structurally valid file.
//
// # Failure Policy
//
// A single file's I/O or parse error never aborts the scan: the file is
// skipped with a debug log entry. Directory permission errors are logged as
// warnings and the subtree is skipped. Only an unreadable root is reported to
// the caller, so it can flag degraded mode.
type Scanner struct {
	root     string
	maxDepth int
	limits   Limits
	log      *slog.Logger
}

// NewScanner creates a Scanner over root. Depth counts directory levels below
// root, with files directly in root at depth 0; files deeper than maxDepth
// are silently out of scope.
func NewScanner(root string, maxDepth int, limits Limits, log *slog.Logger) *Scanner {
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{
		root:     root,
		maxDepth: maxDepth,
		limits:   limits,
		log:      log,
	}
}

// Scan walks the tree and returns all discovered definitions, sorted by file
// path so the output is deterministic regardless of directory enumeration
// order. The returned error is non-nil only when the root itself is
// inaccessible; the definitions slice is then empty but valid.
func (s *Scanner) Scan(ctx context.Context) ([]Definition, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("resolve scan root: %w", err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("scan root inaccessible: %w", err)
	}

	defs := []Definition{}
	s.walk(ctx, root, 0, &defs)

	sort.Slice(defs, func(i, j int) bool { return defs[i].FilePath < defs[j].FilePath })
	return defs, nil
}

// walk enumerates one directory level. Files in dir are at the given depth;
// subdirectories are descended only while their contents stay within
// maxDepth.
func (s *Scanner) walk(ctx context.Context, dir string, depth int, out *[]Definition) {
	if ctx.Err() != nil {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Warn("skipping unreadable directory", "path", dir, "error", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			if depth+1 <= s.maxDepth {
				s.walk(ctx, filepath.Join(dir, entry.Name()), depth+1, out)
			}
			continue
		}

		if _, ok := candidateExtensions[filepath.Ext(entry.Name())]; !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if def, ok := s.readDefinition(path, entry); ok {
			*out = append(*out, def)
		}
	}
}

// readDefinition loads and validates a single candidate file. The size limit
// is enforced from directory metadata before the file is read.
func (s *Scanner) readDefinition(path string, entry os.DirEntry) (Definition, bool) {
	info, err := entry.Info()
	if err != nil {
		s.log.Debug("skipping unreadable file", "path", path, "error", err)
		return Definition{}, false
	}
	if info.Size() > s.limits.MaxBytes {
		s.log.Debug("skipping oversized file", "path", path, "size", info.Size(), "limit", s.limits.MaxBytes)
		return Definition{}, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Debug("skipping unreadable file", "path", path, "error", err)
		return Definition{}, false
	}

	doc, err := ParseDocument(data, s.limits)
	if err != nil {
		s.log.Debug("skipping invalid definition", "path", path, "reason", err)
		return Definition{}, false
	}

	return Definition{
		FilePath:      path,
		ProjectName:   extractName(doc, path),
		DirectoryPath: filepath.Dir(path),
		LastModified:  info.ModTime(),
		Disabled:      doc.Disabled,
		Services:      doc.Services,
	}, true
}

// extractName derives the project name. Priority: explicit root-level name
// field, then the immediate parent directory's base name, then the file's
// base name without extension.
func extractName(doc *Document, path string) string {
	if doc.Name != "" {
		return doc.Name
	}
	if parent := filepath.Base(filepath.Dir(path)); parent != "." && parent != string(filepath.Separator) {
		return parent
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
