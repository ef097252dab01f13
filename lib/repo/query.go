// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"errors"
	"sort"

	"github.com/gitpan/par-repository/lib/indexfile"
	"github.com/gitpan/par-repository/lib/parver"
)

// Candidate is one query result: an artifact file providing the
// queried name, with the version recorded for the name itself (nil
// when unversioned).
type Candidate struct {
	File    string
	Version *string
}

// QueryProvider returns the artifacts providing the given module
// name, best first: highest distribution version leads, ties broken
// by file name for stability. An unknown name returns an empty slice.
func (r *Repository) QueryProvider(name string) (candidates []Candidate, err error) {
	defer func() {
		if closeErr := r.indexes.CloseAll(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	index, err := r.providerIndex()
	if err != nil {
		return nil, err
	}
	return rankedCandidates(index, name)
}

// QueryScript returns the artifacts shipping the given script name,
// ordered like QueryProvider.
func (r *Repository) QueryScript(name string) (candidates []Candidate, err error) {
	defer func() {
		if closeErr := r.indexes.CloseAll(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	index, err := r.executableIndex()
	if err != nil {
		return nil, err
	}
	return rankedCandidates(index, name)
}

// Aliases returns the alias file names recorded for a real artifact
// file, in creation order.
func (r *Repository) Aliases(fileName string) (aliases []string, err error) {
	defer func() {
		if closeErr := r.indexes.CloseAll(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	handle, err := r.indexes.Open(indexfile.Alias)
	if err != nil {
		return nil, err
	}
	return handle.AliasIndex().AliasesFor(fileName)
}

func rankedCandidates(index *indexfile.NameIndex, name string) ([]Candidate, error) {
	files, err := index.FilesFor(name)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(files))
	for file, version := range files {
		candidates = append(candidates, Candidate{File: file, Version: version})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if c := parver.CompareDistFiles(candidates[i].File, candidates[j].File); c != 0 {
			return c > 0
		}
		return candidates[i].File < candidates[j].File
	})
	return candidates, nil
}
