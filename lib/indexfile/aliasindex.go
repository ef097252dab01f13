// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package indexfile

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// AliasIndex is the typed view over the alias index: for each real
// artifact file, the ordered list of alias file names pointing at it.
// Append order is preserved so alias listings are stable across
// sessions.
type AliasIndex struct {
	handle *Handle
}

// AliasIndex returns the typed alias view of an open handle. The
// handle must belong to the alias index.
func (h *Handle) AliasIndex() *AliasIndex {
	return &AliasIndex{handle: h}
}

// Append adds alias to the end of realFile's alias list, creating the
// list if absent. Re-appending an alias already on the list is a
// no-op.
func (ax *AliasIndex) Append(realFile, alias string) error {
	err := sqlitex.Execute(ax.handle.conn,
		`INSERT INTO aliases (real_file, alias, position)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM aliases WHERE real_file = ?))
		 ON CONFLICT (real_file, alias) DO NOTHING`,
		&sqlitex.ExecOptions{Args: []any{realFile, alias, realFile}},
	)
	if err != nil {
		return fmt.Errorf("alias index: appending %s -> %s: %w", realFile, alias, err)
	}
	return nil
}

// AliasesFor returns realFile's aliases in append order. A file with
// no aliases returns an empty slice.
func (ax *AliasIndex) AliasesFor(realFile string) ([]string, error) {
	var aliases []string
	err := sqlitex.Execute(ax.handle.conn,
		`SELECT alias FROM aliases WHERE real_file = ? ORDER BY position`,
		&sqlitex.ExecOptions{
			Args: []any{realFile},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				aliases = append(aliases, stmt.ColumnText(0))
				return nil
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("alias index: listing aliases of %s: %w", realFile, err)
	}
	return aliases, nil
}

// RemoveAliasEverywhere strips the named alias from every list it
// appears in. Aliases are identified purely by name, so this is a
// whole-index sweep, not a lookup under one real file. Lists left
// empty disappear with their last row. Reports whether anything was
// removed.
func (ax *AliasIndex) RemoveAliasEverywhere(alias string) (bool, error) {
	err := sqlitex.Execute(ax.handle.conn,
		`DELETE FROM aliases WHERE alias = ?`,
		&sqlitex.ExecOptions{Args: []any{alias}},
	)
	if err != nil {
		return false, fmt.Errorf("alias index: removing %s: %w", alias, err)
	}
	return ax.handle.conn.Changes() > 0, nil
}

// RemoveKey deletes realFile's entire alias list.
func (ax *AliasIndex) RemoveKey(realFile string) error {
	err := sqlitex.Execute(ax.handle.conn,
		`DELETE FROM aliases WHERE real_file = ?`,
		&sqlitex.ExecOptions{Args: []any{realFile}},
	)
	if err != nil {
		return fmt.Errorf("alias index: removing key %s: %w", realFile, err)
	}
	return nil
}

// Reals returns every real file that has at least one alias. Used by
// verification.
func (ax *AliasIndex) Reals() ([]string, error) {
	var reals []string
	err := sqlitex.Execute(ax.handle.conn,
		`SELECT DISTINCT real_file FROM aliases ORDER BY real_file`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				reals = append(reals, stmt.ColumnText(0))
				return nil
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("alias index: listing real files: %w", err)
	}
	return reals, nil
}

// Compact reclaims storage after a sweep. See [Handle.Compact].
func (ax *AliasIndex) Compact() error {
	return ax.handle.Compact()
}
