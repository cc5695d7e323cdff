// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discovery

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestWithinRoot(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"root itself", root, true},
		{"direct child", filepath.Join(root, "compose.yml"), true},
		{"nested child", filepath.Join(root, "a", "b", "compose.yml"), true},
		{"dot segments that stay inside", filepath.Join(root, "a", "..", "b", "compose.yml"), true},
		{"parent escape", filepath.Join(root, ".."), false},
		{"traversal below root", filepath.Join(root, "..", "other", "compose.yml"), false},
		{"unrelated absolute path", "/etc/passwd", false},
		{"sibling with shared prefix", root + "-evil/compose.yml", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinRoot(tt.candidate, root, nil); got != tt.want {
				t.Errorf("WithinRoot(%q, %q) = %v, want %v", tt.candidate, root, got, tt.want)
			}
		})
	}
}

func TestWithinRoot_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation needs elevated rights on windows")
	}

	base := t.TempDir()
	root := filepath.Join(base, "root")
	outside := filepath.Join(base, "outside")
	for _, dir := range []string{root, outside} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	secret := filepath.Join(outside, "secret.yml")
	if err := os.WriteFile(secret, []byte("services: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("file symlink pointing outside", func(t *testing.T) {
		link := filepath.Join(root, "link.yml")
		if err := os.Symlink(secret, link); err != nil {
			t.Fatal(err)
		}
		if WithinRoot(link, root, nil) {
			t.Error("symlink escaping the root accepted")
		}
	})

	t.Run("directory symlink pointing outside", func(t *testing.T) {
		link := filepath.Join(root, "linkdir")
		if err := os.Symlink(outside, link); err != nil {
			t.Fatal(err)
		}
		if WithinRoot(filepath.Join(link, "secret.yml"), root, nil) {
			t.Error("path through an escaping directory symlink accepted")
		}
	})

	t.Run("internal symlink stays accepted", func(t *testing.T) {
		target := filepath.Join(root, "real.yml")
		if err := os.WriteFile(target, []byte("services: {}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		link := filepath.Join(root, "alias.yml")
		if err := os.Symlink(target, link); err != nil {
			t.Fatal(err)
		}
		if !WithinRoot(link, root, nil) {
			t.Error("symlink resolving inside the root rejected")
		}
	})

	t.Run("nonexistent candidate resolved lexically", func(t *testing.T) {
		if !WithinRoot(filepath.Join(root, "future", "compose.yml"), root, nil) {
			t.Error("not-yet-created path under root rejected")
		}
	})
}

func TestWithinRoot_RelativeCandidate(t *testing.T) {
	// Relative candidates are resolved against the working directory, not the
	// root, so they are only inside when the cwd happens to be.
	if WithinRoot("../outside.yml", t.TempDir(), nil) {
		t.Error("escaped relative path accepted")
	}
}
