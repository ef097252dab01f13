// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

// Package repo implements the repository engine: the single entry
// point through which artifacts are injected into and removed from a
// local .par repository.
//
// A repository is a directory tree. The root carries a metadata
// stamp (repository_info.yml) and three compressed indices; artifacts
// and aliases live in a two-level matrix of subdirectories keyed by
// (architecture, perl version). The directory tree is the source of
// truth for file existence; the indices accelerate lookups and are
// kept consistent with the tree by the engine.
//
// The engine composes its collaborators by construction: an
// indexfile.Store owning the three indices, an alias manager for
// symbolic-link fan-out, the distname resolver, and the two scanner
// capabilities. Each public operation opens indices lazily, mutates
// them, and closes them (flush + recompress) before returning;
// [Repository.Close] is the teardown safety net for sessions that
// end early.
//
// Consistency is best-effort, not transactional: the underlying
// storage offers no transactions spanning the index archives and the
// directory tree, so a crash between an index update and a file
// operation can leave an index entry pointing at a nonexistent file
// or a file present but unindexed. [Repository.Verify] detects both
// conditions; recovery is a re-inject with overwrite or a remove of
// the orphaned name.
package repo
