// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's failure taxonomy. "Not found" and
// "no clobber" conditions on inject and remove are ordinary false
// returns, never errors; these sentinels are reserved for resource
// and precondition violations.
var (
	// ErrSourceMissing reports that the artifact to inject does not
	// exist.
	ErrSourceMissing = errors.New("source artifact does not exist")

	// ErrNoProvidersFound reports that neither the embedded manifest
	// nor source scanning yielded any provided names. Injection is
	// refused rather than silently storing an unindexed artifact.
	ErrNoProvidersFound = errors.New("artifact provides no indexable names")

	// ErrUnsupportedPlatform reports that the host cannot create
	// symbolic links. Terminal for any alias-requesting operation.
	ErrUnsupportedPlatform = errors.New("platform cannot create symbolic links")

	// ErrIncompatibleFormat reports an unknown repository format
	// version on open.
	ErrIncompatibleFormat = errors.New("incompatible repository format version")

	// ErrPathConflict reports that the target path exists but is not
	// a valid repository.
	ErrPathConflict = errors.New("path exists but is not a repository")
)

// CorruptionError reports an unrecoverable mid-operation I/O failure
// that has left the repository inconsistent: index entries were
// already retracted but the artifact file could not be deleted.
// Callers must treat this as terminal for the process — there is no
// rollback of index state, and continuing to operate on the
// repository would compound the damage.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("repository corrupted: failed to delete %s after retracting its index entries: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}
