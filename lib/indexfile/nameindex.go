// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package indexfile

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// NameIndex is the typed view over the provider and executable
// indices: a mapping from a logical name (module namespace or script
// base name) to the artifact files providing it, each with an
// optional provided-name version. The provided-name version is
// distinct from the artifact's own version — a distribution Kit-0.02
// may provide Kit::Util 0.01.
type NameIndex struct {
	handle *Handle
}

// Entry is one (name, file, version) row of a name index.
type Entry struct {
	Name    string
	File    string
	Version *string
}

// NameIndex returns the typed name view of an open handle. The
// handle must belong to the provider or executable index.
func (h *Handle) NameIndex() *NameIndex {
	return &NameIndex{handle: h}
}

// Set records that file provides name at the given version (nil for
// unversioned). An existing version under the same (name, file) pair
// is overwritten.
func (ix *NameIndex) Set(name, file string, version *string) error {
	var versionArg any
	if version != nil {
		versionArg = *version
	}

	err := sqlitex.Execute(ix.handle.conn,
		`INSERT INTO entries (name, file, version) VALUES (?, ?, ?)
		 ON CONFLICT (name, file) DO UPDATE SET version = excluded.version`,
		&sqlitex.ExecOptions{Args: []any{name, file, versionArg}},
	)
	if err != nil {
		return fmt.Errorf("index %s: recording %q for %s: %w", ix.handle.id, name, file, err)
	}
	return nil
}

// FilesFor returns the files providing name, mapped to their
// provided-name versions (nil for unversioned). An unknown name
// returns an empty map.
func (ix *NameIndex) FilesFor(name string) (map[string]*string, error) {
	files := make(map[string]*string)
	err := sqlitex.Execute(ix.handle.conn,
		`SELECT file, version FROM entries WHERE name = ?`,
		&sqlitex.ExecOptions{
			Args: []any{name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var version *string
				if !stmt.ColumnIsNull(1) {
					value := stmt.ColumnText(1)
					version = &value
				}
				files[stmt.ColumnText(0)] = version
				return nil
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("index %s: looking up %q: %w", ix.handle.id, name, err)
	}
	return files, nil
}

// Names returns every distinct logical name in the index.
func (ix *NameIndex) Names() ([]string, error) {
	var names []string
	err := sqlitex.Execute(ix.handle.conn,
		`SELECT DISTINCT name FROM entries ORDER BY name`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				names = append(names, stmt.ColumnText(0))
				return nil
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("index %s: listing names: %w", ix.handle.id, err)
	}
	return names, nil
}

// Entries returns every row of the index. Used by verification.
func (ix *NameIndex) Entries() ([]Entry, error) {
	var entries []Entry
	err := sqlitex.Execute(ix.handle.conn,
		`SELECT name, file, version FROM entries ORDER BY name, file`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry := Entry{Name: stmt.ColumnText(0), File: stmt.ColumnText(1)}
				if !stmt.ColumnIsNull(2) {
					value := stmt.ColumnText(2)
					entry.Version = &value
				}
				entries = append(entries, entry)
				return nil
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("index %s: listing entries: %w", ix.handle.id, err)
	}
	return entries, nil
}

// StripFiles deletes every entry whose file is in the given set,
// under any name. Names left with no files disappear with their last
// row — emptiness of the inner mapping is structural here, not
// tracked separately. Reports whether anything was deleted so the
// caller can decide whether compaction is worth running.
func (ix *NameIndex) StripFiles(files map[string]struct{}) (bool, error) {
	removed := false
	for file := range files {
		err := sqlitex.Execute(ix.handle.conn,
			`DELETE FROM entries WHERE file = ?`,
			&sqlitex.ExecOptions{Args: []any{file}},
		)
		if err != nil {
			return removed, fmt.Errorf("index %s: stripping %s: %w", ix.handle.id, file, err)
		}
		if ix.handle.conn.Changes() > 0 {
			removed = true
		}
	}
	return removed, nil
}

// Compact reclaims storage after a sweep. See [Handle.Compact].
func (ix *NameIndex) Compact() error {
	return ix.handle.Compact()
}
