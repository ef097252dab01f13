// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package parver

import (
	"strconv"
	"strings"

	"github.com/gitpan/par-repository/lib/distname"
)

// Compare orders two version strings. Returns -1 when a ranks below
// b, 1 when a ranks above b, and 0 when they rank equal. A string
// that does not parse as a version ranks below any that does; two
// unparseable strings rank equal.
func Compare(a, b string) int {
	segmentsA, okA := parse(a)
	segmentsB, okB := parse(b)

	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}

	length := len(segmentsA)
	if len(segmentsB) > length {
		length = len(segmentsB)
	}
	for i := 0; i < length; i++ {
		var valueA, valueB uint64
		if i < len(segmentsA) {
			valueA = segmentsA[i]
		}
		if i < len(segmentsB) {
			valueB = segmentsB[i]
		}
		if valueA < valueB {
			return -1
		}
		if valueA > valueB {
			return 1
		}
	}
	return 0
}

// CompareDistFiles orders two artifact file names by the distribution
// version embedded in each name. A file whose name does not parse
// ranks below any file with a version, matching Compare's handling of
// unparseable versions.
func CompareDistFiles(fileA, fileB string) int {
	return Compare(distname.VersionOf(fileA), distname.VersionOf(fileB))
}

// parse splits a version string into numeric segments. A leading "v"
// is tolerated, and underscores (developer release separators) are
// treated as additional segment breaks, so "0.10_01" parses as
// [0, 10, 1].
func parse(version string) ([]uint64, bool) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if trimmed == "" {
		return nil, false
	}

	trimmed = strings.ReplaceAll(trimmed, "_", ".")
	parts := strings.Split(trimmed, ".")

	segments := make([]uint64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, false
		}
		segments = append(segments, value)
	}
	return segments, true
}
