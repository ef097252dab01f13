// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gitpan/par-repository/lib/distname"
	"github.com/gitpan/par-repository/lib/indexfile"
)

// Report is the outcome of a Verify pass. Each slice holds one
// human-readable line per finding; an all-empty report means the
// indices, the directory matrix, and the receipts agree.
type Report struct {
	// DanglingEntries are index rows naming a file that no longer
	// exists anywhere in the matrix.
	DanglingEntries []string

	// UnindexedFiles are artifacts present in the matrix that no
	// index row mentions.
	UnindexedFiles []string

	// BrokenAliases are alias-index rows whose link is missing or
	// does not resolve to the recorded real file.
	BrokenAliases []string

	// HashMismatches are artifacts whose content no longer matches
	// the hash recorded at injection time.
	HashMismatches []string
}

// Clean reports whether the verification found nothing wrong.
func (rep *Report) Clean() bool {
	return len(rep.DanglingEntries) == 0 &&
		len(rep.UnindexedFiles) == 0 &&
		len(rep.BrokenAliases) == 0 &&
		len(rep.HashMismatches) == 0
}

// matrixEntry is one file found in the directory matrix.
type matrixEntry struct {
	path    string
	isAlias bool
}

// Verify cross-checks the three indices against the directory matrix
// and the injection receipts. It never mutates anything; repair is
// manual (re-inject with overwrite, or remove the offending entry).
func (r *Repository) Verify() (report *Report, err error) {
	defer func() {
		if closeErr := r.indexes.CloseAll(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	onDisk, err := r.scanMatrix()
	if err != nil {
		return nil, err
	}

	report = &Report{}
	referenced := make(map[string]struct{})

	for _, open := range []struct {
		label string
		fn    func() (*indexfile.NameIndex, error)
	}{
		{"provider", r.providerIndex},
		{"executable", r.executableIndex},
	} {
		index, err := open.fn()
		if err != nil {
			return nil, err
		}
		entries, err := index.Entries()
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			referenced[entry.File] = struct{}{}
			if _, ok := onDisk[entry.File]; !ok {
				report.DanglingEntries = append(report.DanglingEntries,
					fmt.Sprintf("%s index: %s -> %s", open.label, entry.Name, entry.File))
			}
		}
	}

	aliasHandle, err := r.indexes.Open(indexfile.Alias)
	if err != nil {
		return nil, err
	}
	aliasIndex := aliasHandle.AliasIndex()
	reals, err := aliasIndex.Reals()
	if err != nil {
		return nil, err
	}
	for _, real := range reals {
		aliases, err := aliasIndex.AliasesFor(real)
		if err != nil {
			return nil, err
		}
		realEntry, realExists := onDisk[real]
		for _, alias := range aliases {
			referenced[alias] = struct{}{}
			entry, ok := onDisk[alias]
			if !ok || !entry.isAlias {
				report.BrokenAliases = append(report.BrokenAliases,
					fmt.Sprintf("%s: alias link missing", alias))
				continue
			}
			if !realExists {
				report.BrokenAliases = append(report.BrokenAliases,
					fmt.Sprintf("%s: real file %s missing", alias, real))
				continue
			}
			resolved, err := filepath.EvalSymlinks(entry.path)
			if err != nil {
				report.BrokenAliases = append(report.BrokenAliases,
					fmt.Sprintf("%s: %v", alias, err))
				continue
			}
			expected, err := filepath.EvalSymlinks(realEntry.path)
			if err != nil {
				return nil, fmt.Errorf("resolving %s: %w", realEntry.path, err)
			}
			if resolved != expected {
				report.BrokenAliases = append(report.BrokenAliases,
					fmt.Sprintf("%s: resolves to %s, expected %s", alias, resolved, expected))
			}
		}
	}

	for name, entry := range onDisk {
		if _, ok := referenced[name]; !ok {
			report.UnindexedFiles = append(report.UnindexedFiles, name)
		}
		if entry.isAlias {
			continue
		}
		receipt, err := r.readReceipt(name)
		if err != nil {
			return nil, err
		}
		if receipt == nil {
			continue
		}
		hash, err := hashFile(entry.path)
		if err != nil {
			return nil, err
		}
		if hash != receipt.ContentHash {
			report.HashMismatches = append(report.HashMismatches,
				fmt.Sprintf("%s: content changed since injection", name))
		}
	}

	sort.Strings(report.DanglingEntries)
	sort.Strings(report.UnindexedFiles)
	sort.Strings(report.BrokenAliases)
	sort.Strings(report.HashMismatches)
	return report, nil
}

// scanMatrix walks the two-level arch/perl-version matrix and returns
// every artifact found, keyed by bare file name. Bookkeeping paths
// (working copies, receipts, index archives, metadata) are skipped.
func (r *Repository) scanMatrix() (map[string]matrixEntry, error) {
	onDisk := make(map[string]matrixEntry)

	archDirs, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("reading repository root: %w", err)
	}
	for _, archDir := range archDirs {
		if !archDir.IsDir() || strings.HasPrefix(archDir.Name(), ".") {
			continue
		}
		archPath := filepath.Join(r.root, archDir.Name())
		perlDirs, err := os.ReadDir(archPath)
		if err != nil {
			return nil, fmt.Errorf("reading cell directory %s: %w", archPath, err)
		}
		for _, perlDir := range perlDirs {
			if !perlDir.IsDir() {
				continue
			}
			cellPath := filepath.Join(archPath, perlDir.Name())
			files, err := os.ReadDir(cellPath)
			if err != nil {
				return nil, fmt.Errorf("reading cell %s: %w", cellPath, err)
			}
			for _, file := range files {
				if file.IsDir() || !strings.HasSuffix(file.Name(), distname.Extension) {
					continue
				}
				info, err := file.Info()
				if err != nil {
					return nil, fmt.Errorf("inspecting %s: %w", file.Name(), err)
				}
				onDisk[file.Name()] = matrixEntry{
					path:    filepath.Join(cellPath, file.Name()),
					isAlias: info.Mode()&os.ModeSymlink != 0,
				}
			}
		}
	}
	return onDisk, nil
}
