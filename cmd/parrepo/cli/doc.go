// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the small command-tree framework used by
// parrepo: nested subcommand dispatch over pflag flag sets, structured
// help output, and typo suggestions for unknown commands and flags.
package cli
