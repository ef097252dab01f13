// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

// Package indexfile manages the repository's three persistent
// indices: the provider index, the executable index, and the alias
// index.
//
// Each index is persisted as a single compressed archive containing a
// SQLite database. A session opens an index by decompressing the
// archive to a private working copy under <root>/.work/ and opening a
// connection against it; mutations happen in place on the working
// copy. Closing flushes the connection, recompresses the working copy
// atomically over the canonical archive, and deletes the working
// copy. An index that is never closed loses its mutations — the
// previous archive stays untouched.
//
// Handles are cached per index for the life of a [Store], so repeated
// accessor calls within one session reuse the same open connection.
// All paths are derived from the repository root; nothing here ever
// changes the process working directory.
//
// The working copy runs with synchronous=OFF: it is disposable by
// construction (durability comes from the recompressed archive, and a
// crashed session's stale working copy is overwritten on next open),
// so there is no reason to pay for fsyncs on every statement.
package indexfile
