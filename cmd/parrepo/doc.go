// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

// Parrepo is the CLI for managing a local .par artifact repository.
// It provides subcommands for repository lifecycle (create), artifact
// management (inject, remove), index lookups (query provider, query
// script), and consistency checking (verify).
package main
