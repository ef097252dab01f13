// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import "github.com/gitpan/par-repository/lib/indexfile"

// stripFromIndexes purges every index entry, in both the provider
// and executable indices, whose file name is in the given set.
// Compaction runs per index only when that index actually lost rows.
func (r *Repository) stripFromIndexes(files map[string]struct{}) error {
	if len(files) == 0 {
		return nil
	}

	for _, open := range []func() (*indexfile.NameIndex, error){
		r.providerIndex, r.executableIndex,
	} {
		index, err := open()
		if err != nil {
			return err
		}
		removed, err := index.StripFiles(files)
		if err != nil {
			return err
		}
		if removed {
			if err := index.Compact(); err != nil {
				return err
			}
		}
	}
	return nil
}
