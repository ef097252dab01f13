// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package indexfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/gitpan/par-repository/lib/archive"
)

// ID names one of the repository's indices. The ID doubles as the
// archive base name on disk.
type ID string

const (
	// Provider maps provided module names to the artifact files that
	// supply them.
	Provider ID = "provider_index"

	// Executable maps script base names to the artifact files that
	// carry them.
	Executable ID = "executable_index"

	// Alias maps real artifact file names to the ordered list of
	// alias names pointing at them.
	Alias ID = "alias_index"
)

// ErrIndexMissing is returned by [Store.Open] when the compressed
// archive for an index does not exist. During repository creation
// this means "empty index"; once a repository is expected to exist it
// is a hard error.
var ErrIndexMissing = errors.New("index archive missing")

// workDir is the directory under the repository root holding private
// working copies of open indices.
const workDir = ".work"

// archiveExts lists the archive extensions probed when opening an
// index, in preference order. The algorithm is detected from the
// frame magic, so an extension mismatch is cosmetic.
var archiveExts = []string{".db.zst", ".db.lz4"}

// Store owns the open/close lifecycle of the three indices for one
// repository session. It is not safe for concurrent use; the
// repository engine is single-threaded by design.
type Store struct {
	root      string
	algorithm archive.Algorithm
	logger    *slog.Logger
	handles   map[ID]*Handle
}

// Handle wraps an open index: the live SQLite connection, the working
// copy path backing it, and the canonical archive path it will be
// recompressed to on close.
type Handle struct {
	id          ID
	conn        *sqlite.Conn
	workPath    string
	archivePath string
}

// NewStore creates a Store for the repository rooted at root. Archives
// written by this store use the given compression algorithm. A nil
// logger discards all messages.
func NewStore(root string, algorithm archive.Algorithm, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		root:      root,
		algorithm: algorithm,
		logger:    logger,
		handles:   make(map[ID]*Handle),
	}
}

// ArchivePath returns the canonical archive path for an index if one
// exists on disk, or "" when the index has no archive yet.
func (s *Store) ArchivePath(id ID) string {
	for _, ext := range archiveExts {
		path := filepath.Join(s.root, string(id)+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// defaultArchivePath returns the archive path used when creating a
// new archive for id with the store's configured algorithm.
func (s *Store) defaultArchivePath(id ID) string {
	ext := ".db.zst"
	if s.algorithm == archive.AlgorithmLZ4 {
		ext = ".db.lz4"
	}
	return filepath.Join(s.root, string(id)+ext)
}

// Open returns the handle for an index, decompressing the archive to
// a working copy on first access in this session. Subsequent calls
// return the cached handle. Returns [ErrIndexMissing] (wrapped) when
// the archive does not exist.
func (s *Store) Open(id ID) (*Handle, error) {
	if handle, open := s.handles[id]; open {
		return handle, nil
	}

	archivePath := s.ArchivePath(id)
	if archivePath == "" {
		return nil, fmt.Errorf("index %s: %w", id, ErrIndexMissing)
	}

	if err := os.MkdirAll(filepath.Join(s.root, workDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}

	workPath := filepath.Join(s.root, workDir, string(id)+".db")
	if err := archive.DecompressFile(archivePath, workPath); err != nil {
		return nil, fmt.Errorf("materializing index %s: %w", id, err)
	}

	conn, err := openWorkingCopy(workPath, false)
	if err != nil {
		os.Remove(workPath)
		return nil, fmt.Errorf("opening index %s: %w", id, err)
	}

	handle := &Handle{
		id:          id,
		conn:        conn,
		workPath:    workPath,
		archivePath: archivePath,
	}
	s.handles[id] = handle

	s.logger.Debug("index opened", "index", id, "working_copy", workPath)
	return handle, nil
}

// Close flushes an index and persists it: the connection is closed,
// the working copy is recompressed atomically over the canonical
// archive, and the working copy is deleted. No-op if the index is not
// open in this session.
func (s *Store) Close(id ID) error {
	handle, open := s.handles[id]
	if !open {
		return nil
	}
	delete(s.handles, id)

	if err := handle.conn.Close(); err != nil {
		return fmt.Errorf("closing index %s connection: %w", id, err)
	}

	if err := archive.CompressFile(handle.workPath, handle.archivePath, s.algorithm); err != nil {
		return fmt.Errorf("persisting index %s: %w", id, err)
	}

	if err := os.Remove(handle.workPath); err != nil {
		return fmt.Errorf("removing working copy for index %s: %w", id, err)
	}

	s.logger.Debug("index closed", "index", id, "archive", handle.archivePath)
	return nil
}

// CloseAll closes every open index, continuing past individual
// failures and joining their errors. Used as the end-of-operation
// flush and as the session teardown safety net.
func (s *Store) CloseAll() error {
	var errs []error
	for _, id := range []ID{Provider, Executable, Alias} {
		if err := s.Close(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CreateEmpty creates a fresh, empty archive for an index. The
// schema is applied to a new working copy which is then compressed to
// the canonical location and deleted. Fails if the index is currently
// open in this session.
func (s *Store) CreateEmpty(id ID) error {
	if _, open := s.handles[id]; open {
		return fmt.Errorf("index %s is open, cannot recreate", id)
	}

	if err := os.MkdirAll(filepath.Join(s.root, workDir), 0o755); err != nil {
		return fmt.Errorf("creating working directory: %w", err)
	}

	workPath := filepath.Join(s.root, workDir, string(id)+".db")
	conn, err := openWorkingCopy(workPath, true)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", id, err)
	}

	if err := sqlitex.ExecuteScript(conn, schemaFor(id), nil); err != nil {
		conn.Close()
		os.Remove(workPath)
		return fmt.Errorf("initializing index %s schema: %w", id, err)
	}
	if err := conn.Close(); err != nil {
		os.Remove(workPath)
		return fmt.Errorf("closing new index %s: %w", id, err)
	}

	if err := archive.CompressFile(workPath, s.defaultArchivePath(id), s.algorithm); err != nil {
		os.Remove(workPath)
		return fmt.Errorf("persisting new index %s: %w", id, err)
	}

	if err := os.Remove(workPath); err != nil {
		return fmt.Errorf("removing working copy for new index %s: %w", id, err)
	}

	s.logger.Debug("index created", "index", id)
	return nil
}

// Compact reclaims unused pages in an index's working copy. Called by
// the engine after a bulk sweep that actually deleted entries;
// skipped otherwise because a VACUUM rewrites the whole database.
func (h *Handle) Compact() error {
	if err := sqlitex.ExecuteTransient(h.conn, "VACUUM", nil); err != nil {
		return fmt.Errorf("compacting index %s: %w", h.id, err)
	}
	return nil
}

// openWorkingCopy opens a SQLite connection against a working copy.
// The create flag controls whether a missing file is an error.
func openWorkingCopy(path string, create bool) (*sqlite.Conn, error) {
	flags := sqlite.OpenReadWrite
	if create {
		flags |= sqlite.OpenCreate
	}

	conn, err := sqlite.OpenConn(path, flags)
	if err != nil {
		return nil, err
	}

	// The working copy is disposable: on any crash it is rebuilt from
	// the archive. Skip fsyncs and keep temp structures in memory.
	for _, pragma := range []string{
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return conn, nil
}

// schemaFor returns the table schema for an index. The provider and
// executable indices share the name→file→version shape; the alias
// index keeps an ordered alias list per real file.
func schemaFor(id ID) string {
	if id == Alias {
		return `
CREATE TABLE IF NOT EXISTS aliases (
    real_file TEXT NOT NULL,
    alias     TEXT NOT NULL,
    position  INTEGER NOT NULL,
    PRIMARY KEY (real_file, alias)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS aliases_by_alias ON aliases (alias);
`
	}
	return `
CREATE TABLE IF NOT EXISTS entries (
    name    TEXT NOT NULL,
    file    TEXT NOT NULL,
    version TEXT,
    PRIMARY KEY (name, file)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS entries_by_file ON entries (file);
`
}
