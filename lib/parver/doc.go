// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

// Package parver compares distribution version strings.
//
// Versions are dotted numeric tokens in the perl style: "0.02",
// "1.10", "v1.2.3", "0.10_01" (developer release). Comparison is
// numeric per dot-separated segment, never lexical, so 1.10 ranks
// above 1.9. A value that does not parse as a version ranks below
// every parseable version, and two unparseable values rank equal.
// This is the total order used to pick the winning provider when
// multiple artifacts supply the same module name.
package parver
