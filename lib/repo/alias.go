// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/gitpan/par-repository/lib/distname"
	"github.com/gitpan/par-repository/lib/indexfile"
)

// symlink is stubbable so tests can simulate hosts without symbolic
// link support.
var symlink = os.Symlink

// aliasManager creates and removes the symbolic links that fan an
// artifact out across matrix cells, and keeps the alias index's
// reverse mapping in step. It takes bare file names only: placement
// is derived by re-parsing the identity embedded in each name, never
// from caller-supplied paths.
type aliasManager struct {
	root    string
	indexes *indexfile.Store
	logger  *slog.Logger
}

// cellPath computes the absolute matrix path for a bare artifact
// file name by parsing its identity.
func (m *aliasManager) cellPath(fileName string) (string, error) {
	id, err := distname.ParseFileName(fileName)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.root, id.Cell(), fileName), nil
}

// create places a symbolic link named aliasFile pointing at realFile,
// each in its own matrix cell, and appends the alias to realFile's
// list in the alias index. Returns false without error when the alias
// name is already taken and may not be replaced: an existing alias
// with overwrite unset, or an existing real file regardless of
// overwrite (real files are never clobbered by aliases).
func (m *aliasManager) create(realFile, aliasFile string, overwrite bool) (bool, error) {
	realFile = filepath.Base(realFile)
	aliasFile = filepath.Base(aliasFile)

	realPath, err := m.cellPath(realFile)
	if err != nil {
		return false, err
	}
	aliasPath, err := m.cellPath(aliasFile)
	if err != nil {
		return false, err
	}

	if info, err := os.Lstat(aliasPath); err == nil {
		if info.Mode()&os.ModeSymlink == 0 {
			m.logger.Debug("alias refused, real file present", "alias", aliasFile)
			return false, nil
		}
		if !overwrite {
			m.logger.Debug("alias exists, overwrite not set", "alias", aliasFile)
			return false, nil
		}
		if _, err := m.remove(aliasFile); err != nil {
			return false, err
		}
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking alias target %s: %w", aliasPath, err)
	}

	aliasDir := filepath.Dir(aliasPath)
	if err := os.MkdirAll(aliasDir, 0o755); err != nil {
		return false, fmt.Errorf("creating cell for %s: %w", aliasFile, err)
	}

	// The link target is relative, crossing out of the alias's two
	// matrix levels and back into the real file's cell, so the
	// repository remains valid when the root moves.
	target, err := filepath.Rel(aliasDir, realPath)
	if err != nil {
		return false, fmt.Errorf("computing link target for %s: %w", aliasFile, err)
	}
	if err := symlink(target, aliasPath); err != nil {
		if errors.Is(err, syscall.ENOSYS) || errors.Is(err, syscall.EOPNOTSUPP) || errors.Is(err, syscall.EPERM) {
			return false, fmt.Errorf("creating symbolic link %s: %w", aliasPath, ErrUnsupportedPlatform)
		}
		return false, fmt.Errorf("creating symbolic link %s: %w", aliasPath, err)
	}

	handle, err := m.indexes.Open(indexfile.Alias)
	if err != nil {
		return false, err
	}
	if err := handle.AliasIndex().Append(realFile, aliasFile); err != nil {
		return false, err
	}

	m.logger.Debug("alias created", "real", realFile, "alias", aliasFile)
	return true, nil
}

// remove deletes the on-disk link for aliasFile and then strips the
// alias out of every list in the alias index it appears in — aliases
// are identified purely by name, so the index retraction is a full
// sweep, not a lookup under one real file. Returns false without
// error when no symbolic link exists at the alias's cell.
func (m *aliasManager) remove(aliasFile string) (bool, error) {
	aliasFile = filepath.Base(aliasFile)

	aliasPath, err := m.cellPath(aliasFile)
	if err != nil {
		return false, err
	}

	info, err := os.Lstat(aliasPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking alias %s: %w", aliasPath, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false, nil
	}

	if err := os.Remove(aliasPath); err != nil {
		return false, fmt.Errorf("deleting alias %s: %w", aliasPath, err)
	}

	handle, err := m.indexes.Open(indexfile.Alias)
	if err != nil {
		return false, err
	}
	if _, err := handle.AliasIndex().RemoveAliasEverywhere(aliasFile); err != nil {
		return false, err
	}

	m.logger.Debug("alias removed", "alias", aliasFile)
	return true, nil
}
