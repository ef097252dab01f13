// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gitpan/par-repository/lib/archive"
	"github.com/gitpan/par-repository/lib/indexfile"
	"github.com/gitpan/par-repository/lib/scan"
)

// metadataFile is the repository's format stamp at the root.
const metadataFile = "repository_info.yml"

// Repository format versions. FormatVersionCurrent is written by
// Create; formatVersionLegacy repositories predate the executable
// index and are upgraded in place on open.
const (
	FormatVersionCurrent = "2.0"
	formatVersionLegacy  = "1.0"
)

// Info is the versioned compatibility stamp for the on-disk layout.
type Info struct {
	FormatVersion string `yaml:"format_version"`
}

// Verbosity selects how much the engine reports through its logger.
type Verbosity int

const (
	// VerbosityError reports failures only.
	VerbosityError Verbosity = iota
	// VerbosityStatus adds one line per completed operation.
	VerbosityStatus
	// VerbosityTrace adds per-step progress.
	VerbosityTrace
	// VerbosityFull traces every index mutation.
	VerbosityFull
)

// Level maps a verbosity to the slog level that should pass the
// handler's filter.
func (v Verbosity) Level() slog.Level {
	switch {
	case v <= VerbosityError:
		return slog.LevelError
	case v == VerbosityStatus:
		return slog.LevelInfo
	case v == VerbosityTrace:
		return slog.LevelDebug
	default:
		return slog.LevelDebug - 4
	}
}

// Config holds the parameters for opening or creating a repository.
// Root is required; everything else has working defaults.
type Config struct {
	// Root is the repository root directory.
	Root string

	// Logger receives operational messages. Nil discards them.
	Logger *slog.Logger

	// Algorithm is the compression algorithm for index archives.
	// The zero value is zstd.
	Algorithm archive.Algorithm

	// ProviderScanner discovers provided module names. Nil uses the
	// default zip scanner.
	ProviderScanner scan.ProviderScanner

	// ScriptScanner discovers shipped scripts. Nil uses the default
	// zip scanner.
	ScriptScanner scan.ScriptScanner
}

// Repository is an open repository session. It exclusively owns the
// three index stores for its lifetime. Not safe for concurrent use,
// and two sessions must not write the same repository concurrently —
// the index archives have no cross-process locking.
type Repository struct {
	root    string
	logger  *slog.Logger
	indexes *indexfile.Store
	aliases *aliasManager

	providerScan scan.ProviderScanner
	scriptScan   scan.ScriptScanner

	info Info
}

// Create initializes a new repository at cfg.Root: the metadata
// stamp and three empty compressed indices. The root may exist only
// as an empty directory; anything else fails with [ErrPathConflict].
func Create(cfg Config) (*Repository, error) {
	r, err := newSession(cfg)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(filepath.Join(r.root, metadataFile)); err == nil {
		return nil, fmt.Errorf("%s already holds a repository: %w", r.root, ErrPathConflict)
	}
	if entries, err := os.ReadDir(r.root); err == nil && len(entries) > 0 {
		return nil, fmt.Errorf("%s is not empty: %w", r.root, ErrPathConflict)
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", r.root, err)
	}

	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return nil, fmt.Errorf("creating repository root: %w", err)
	}

	r.info = Info{FormatVersion: FormatVersionCurrent}
	if err := r.writeInfo(); err != nil {
		return nil, err
	}

	for _, id := range []indexfile.ID{indexfile.Provider, indexfile.Executable, indexfile.Alias} {
		if err := r.indexes.CreateEmpty(id); err != nil {
			return nil, err
		}
	}

	r.logger.Info("repository created", "root", r.root, "format_version", r.info.FormatVersion)
	return r, nil
}

// Open opens an existing repository, checking the format stamp. A
// legacy-format repository is upgraded in place: the stamp is
// rewritten and the executable index is created if it is absent.
// Unknown format versions fail with [ErrIncompatibleFormat]; a root
// without a metadata stamp fails with [ErrPathConflict].
func Open(cfg Config) (*Repository, error) {
	r, err := newSession(cfg)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(r.root, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", r.root, ErrPathConflict)
		}
		return nil, fmt.Errorf("reading repository metadata: %w", err)
	}
	if err := yaml.Unmarshal(data, &r.info); err != nil {
		return nil, fmt.Errorf("parsing repository metadata: %w", err)
	}

	switch r.info.FormatVersion {
	case FormatVersionCurrent:
		// Up to date.

	case formatVersionLegacy:
		if err := r.upgradeFromLegacy(); err != nil {
			return nil, fmt.Errorf("upgrading legacy repository: %w", err)
		}

	default:
		return nil, fmt.Errorf("format version %q: %w", r.info.FormatVersion, ErrIncompatibleFormat)
	}

	return r, nil
}

// OpenOrCreate opens the repository at cfg.Root, creating it when the
// root does not yet hold one. A non-empty root that is not a
// repository fails with [ErrPathConflict].
func OpenOrCreate(cfg Config) (*Repository, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", cfg.Root, err)
	}
	if _, err := os.Stat(filepath.Join(root, metadataFile)); err == nil {
		return Open(cfg)
	}
	return Create(cfg)
}

// Close flushes and persists any indices still open in this session.
// Operations close indices themselves on completion, so this is a
// safety net for sessions that end between operations or after a
// failure; it is safe to call multiple times.
func (r *Repository) Close() error {
	return r.indexes.CloseAll()
}

// Root returns the absolute repository root directory.
func (r *Repository) Root() string {
	return r.root
}

// FormatVersion returns the repository's on-disk format version.
func (r *Repository) FormatVersion() string {
	return r.info.FormatVersion
}

// newSession builds the session plumbing shared by Create and Open.
func newSession(cfg Config) (*Repository, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("repository root is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", cfg.Root, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	providerScan := cfg.ProviderScanner
	if providerScan == nil {
		providerScan = scan.Scanner{}
	}
	scriptScan := cfg.ScriptScanner
	if scriptScan == nil {
		scriptScan = scan.Scanner{}
	}

	indexes := indexfile.NewStore(root, cfg.Algorithm, logger)
	return &Repository{
		root:         root,
		logger:       logger,
		indexes:      indexes,
		aliases:      &aliasManager{root: root, indexes: indexes, logger: logger},
		providerScan: providerScan,
		scriptScan:   scriptScan,
	}, nil
}

// upgradeFromLegacy brings a legacy repository up to the current
// layout without touching existing artifacts: stamp the new format
// version and create the executable index if this repository predates
// it.
func (r *Repository) upgradeFromLegacy() error {
	if r.indexes.ArchivePath(indexfile.Executable) == "" {
		if err := r.indexes.CreateEmpty(indexfile.Executable); err != nil {
			return err
		}
	}

	r.info.FormatVersion = FormatVersionCurrent
	if err := r.writeInfo(); err != nil {
		return err
	}

	r.logger.Info("repository upgraded",
		"root", r.root,
		"from", formatVersionLegacy,
		"to", FormatVersionCurrent,
	)
	return nil
}

// writeInfo persists the metadata stamp atomically.
func (r *Repository) writeInfo() error {
	data, err := yaml.Marshal(r.info)
	if err != nil {
		return fmt.Errorf("encoding repository metadata: %w", err)
	}

	finalPath := filepath.Join(r.root, metadataFile)
	tmpFile, err := os.CreateTemp(r.root, ".info-*")
	if err != nil {
		return fmt.Errorf("creating temp metadata file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing repository metadata: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp metadata file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming metadata into place: %w", err)
	}

	success = true
	return nil
}

// providerIndex, executableIndex, and aliasIndex open (or reuse) the
// session's index handles. All engine mutations flow through these
// accessors; the alias manager shares the same store, so within one
// session everyone sees the same working copies.
func (r *Repository) providerIndex() (*indexfile.NameIndex, error) {
	handle, err := r.indexes.Open(indexfile.Provider)
	if err != nil {
		return nil, err
	}
	return handle.NameIndex(), nil
}

func (r *Repository) executableIndex() (*indexfile.NameIndex, error) {
	handle, err := r.indexes.Open(indexfile.Executable)
	if err != nil {
		return nil, err
	}
	return handle.NameIndex(), nil
}

func (r *Repository) aliasIndex() (*indexfile.AliasIndex, error) {
	handle, err := r.indexes.Open(indexfile.Alias)
	if err != nil {
		return nil, err
	}
	return handle.AliasIndex(), nil
}

// copyFile copies source into place at destination via a temp file
// and rename, so a partially copied artifact is never visible at the
// final path.
func copyFile(source, destination string) error {
	input, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening %s: %w", source, err)
	}
	defer input.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(destination), ".inject-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, input); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copying %s: %w", source, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destination); err != nil {
		return fmt.Errorf("renaming into place: %w", err)
	}

	success = true
	return nil
}
