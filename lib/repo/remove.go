// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gitpan/par-repository/lib/distname"
	"github.com/gitpan/par-repository/lib/indexfile"
)

// Remove takes an artifact or alias out of the repository. The target
// is named either by file name or by explicit identity fields merged
// over it, exactly as for Inject.
//
// Removing an alias retracts the alias's own index entries and
// deletes the link; the real artifact it points at is untouched.
// Removing a real file cascades: every alias pointing at it goes too,
// along with all index entries for the file and its aliases.
//
// Returns false without error when nothing exists at the target path.
// A failure to delete the real file itself is reported as a
// *CorruptionError: the indices no longer mention the file but it is
// still on disk, which the engine cannot repair. All indices touched
// are persisted before return.
func (r *Repository) Remove(fileName string, overrides distname.Identity) (removed bool, err error) {
	defer func() {
		if closeErr := r.indexes.CloseAll(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if fileName != "" {
		fileName = filepath.Base(fileName)
	}
	id, err := distname.Resolve(overrides, fileName)
	if err != nil {
		return false, err
	}
	return r.removeArtifact(id.FileName())
}

// removeArtifact is the shared removal path, also used by Inject when
// overwriting. Operates on the canonical bare file name; indices are
// left open for the caller to close.
func (r *Repository) removeArtifact(fileName string) (bool, error) {
	targetPath, err := r.aliases.cellPath(fileName)
	if err != nil {
		return false, err
	}

	info, err := os.Lstat(targetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking %s: %w", targetPath, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		// Alias only: its own index entries go, the real file stays.
		if err := r.stripFromIndexes(map[string]struct{}{fileName: {}}); err != nil {
			return false, err
		}
		if _, err := r.aliases.remove(fileName); err != nil {
			return false, err
		}
		r.logger.Info("alias removed", "alias", fileName)
		return true, nil
	}

	aliasHandle, err := r.indexes.Open(indexfile.Alias)
	if err != nil {
		return false, err
	}
	aliasIndex := aliasHandle.AliasIndex()
	aliases, err := aliasIndex.AliasesFor(fileName)
	if err != nil {
		return false, err
	}

	doomed := map[string]struct{}{fileName: {}}
	for _, alias := range aliases {
		doomed[alias] = struct{}{}
	}
	if err := r.stripFromIndexes(doomed); err != nil {
		return false, err
	}

	for _, alias := range aliases {
		if _, err := r.aliases.remove(alias); err != nil {
			return false, err
		}
	}
	if err := aliasIndex.RemoveKey(fileName); err != nil {
		return false, err
	}

	if err := os.Remove(targetPath); err != nil {
		return false, &CorruptionError{Path: targetPath, Err: err}
	}
	if err := r.removeReceipt(fileName); err != nil {
		return false, err
	}

	r.logger.Info("artifact removed", "file", fileName, "aliases", len(aliases))
	return true, nil
}
