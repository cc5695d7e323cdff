// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package discovery finds compose project definitions on disk.

The scanner walks a configured root, the structural validator decides which
files are minimally valid definitions, and the resolver reduces the result to
at most one definition per project name. Everything this package produces is
immutable once constructed and recomputed wholesale on every scan; nothing is
persisted.
*/
package discovery

import "time"

// Definition is one on-disk candidate project file.
//
// FilePath is always scanner-generated, never externally supplied, so it is
// trusted by construction and needs no traversal validation.
type Definition struct {
	// FilePath is the absolute path of the definition file.
	FilePath string

	// ProjectName is the derived logical project name (see extractName).
	ProjectName string

	// DirectoryPath is the directory containing the file.
	DirectoryPath string

	// LastModified is the file's mtime at scan time.
	LastModified time.Time

	// Disabled is set when the document carries a truthy x-disabled marker.
	Disabled bool

	// Services holds the service names declared in the file, sorted.
	Services []string
}

// Conflict records two or more active definitions claiming the same name.
// The affected project is absent from resolved output until an operator
// removes or disables all but one of the files.
type Conflict struct {
	// ProjectName is the contested name.
	ProjectName string

	// FilePaths lists the active claimants, sorted ascending.
	FilePaths []string
}
