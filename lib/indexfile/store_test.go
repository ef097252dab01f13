// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package indexfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gitpan/par-repository/lib/archive"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), archive.AlgorithmZstd, nil)
}

func TestOpenMissingIndex(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Open(Provider); !errors.Is(err, ErrIndexMissing) {
		t.Errorf("Open of absent archive = %v, want ErrIndexMissing", err)
	}
}

func TestCreateOpenCloseLifecycle(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateEmpty(Provider); err != nil {
		t.Fatal(err)
	}
	if store.ArchivePath(Provider) == "" {
		t.Fatal("no archive on disk after CreateEmpty")
	}

	handle, err := store.Open(Provider)
	if err != nil {
		t.Fatal(err)
	}

	version := "0.02"
	providers := handle.NameIndex()
	if err := providers.Set("Kit", "Kit-0.02-any_arch-any_perlversion.par", &version); err != nil {
		t.Fatal(err)
	}
	if err := providers.Set("Kit::Util", "Kit-0.02-any_arch-any_perlversion.par", nil); err != nil {
		t.Fatal(err)
	}

	workPath := handle.workPath
	if err := store.Close(Provider); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(workPath); !os.IsNotExist(err) {
		t.Error("working copy survived close")
	}

	// Reopen in a fresh session: mutations must have persisted.
	reopened := NewStore(store.root, archive.AlgorithmZstd, nil)
	handle, err = reopened.Open(Provider)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.CloseAll()

	files, err := handle.NameIndex().FilesFor("Kit")
	if err != nil {
		t.Fatal(err)
	}
	got, exists := files["Kit-0.02-any_arch-any_perlversion.par"]
	if !exists {
		t.Fatal("Kit entry missing after reopen")
	}
	if got == nil || *got != "0.02" {
		t.Errorf("Kit version = %v, want 0.02", got)
	}

	files, err = handle.NameIndex().FilesFor("Kit::Util")
	if err != nil {
		t.Fatal(err)
	}
	if version, exists := files["Kit-0.02-any_arch-any_perlversion.par"]; !exists || version != nil {
		t.Errorf("Kit::Util entry = (%v, %t), want unversioned entry", version, exists)
	}
}

func TestUnclosedMutationsAreLost(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateEmpty(Provider); err != nil {
		t.Fatal(err)
	}

	handle, err := store.Open(Provider)
	if err != nil {
		t.Fatal(err)
	}
	if err := handle.NameIndex().Set("Lost", "Lost-1.0-any_arch-any_perlversion.par", nil); err != nil {
		t.Fatal(err)
	}
	// No Close: simulate a crashed session.
	handle.conn.Close()
	delete(store.handles, Provider)

	reopened := NewStore(store.root, archive.AlgorithmZstd, nil)
	handle, err = reopened.Open(Provider)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.CloseAll()

	files, err := handle.NameIndex().FilesFor("Lost")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Error("mutation from unclosed session persisted")
	}
}

func TestOpenIsCachedPerSession(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateEmpty(Executable); err != nil {
		t.Fatal(err)
	}

	first, err := store.Open(Executable)
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Open(Executable)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second Open returned a different handle")
	}
	if err := store.CloseAll(); err != nil {
		t.Fatal(err)
	}
}

func TestStripFiles(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateEmpty(Provider); err != nil {
		t.Fatal(err)
	}
	handle, err := store.Open(Provider)
	if err != nil {
		t.Fatal(err)
	}
	defer store.CloseAll()

	providers := handle.NameIndex()
	keep := "Keep-1.0-any_arch-any_perlversion.par"
	gone := "Gone-1.0-any_arch-any_perlversion.par"
	for name, file := range map[string]string{
		"Keep":       keep,
		"Gone":       gone,
		"Gone::Deep": gone,
	} {
		if err := providers.Set(name, file, nil); err != nil {
			t.Fatal(err)
		}
	}
	// "Shared" is provided by both files; only the gone entry must drop.
	if err := providers.Set("Shared", keep, nil); err != nil {
		t.Fatal(err)
	}
	if err := providers.Set("Shared", gone, nil); err != nil {
		t.Fatal(err)
	}

	removed, err := providers.StripFiles(map[string]struct{}{gone: {}})
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("StripFiles reported nothing removed")
	}
	if err := providers.Compact(); err != nil {
		t.Fatal(err)
	}

	names, err := providers.Names()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Keep", "Shared"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("names after strip = %v, want %v", names, want)
	}

	shared, err := providers.FilesFor("Shared")
	if err != nil {
		t.Fatal(err)
	}
	if _, exists := shared[gone]; exists {
		t.Error("stripped file still listed under Shared")
	}
	if _, exists := shared[keep]; !exists {
		t.Error("surviving file dropped from Shared")
	}

	removed, err = providers.StripFiles(map[string]struct{}{gone: {}})
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("second strip of same file reported a removal")
	}
}

func TestAliasIndexOrderAndSweep(t *testing.T) {
	store := newTestStore(t)
	if err := store.CreateEmpty(Alias); err != nil {
		t.Fatal(err)
	}
	handle, err := store.Open(Alias)
	if err != nil {
		t.Fatal(err)
	}
	defer store.CloseAll()

	aliases := handle.AliasIndex()
	real := "Kit-0.02-x86_64-linux-5.38.0.par"
	for _, alias := range []string{
		"Kit-0.02-any_arch-5.38.0.par",
		"Kit-0.02-x86_64-linux-any_perlversion.par",
		"Kit-0.02-any_arch-any_perlversion.par",
	} {
		if err := aliases.Append(real, alias); err != nil {
			t.Fatal(err)
		}
	}
	// Idempotent re-append.
	if err := aliases.Append(real, "Kit-0.02-any_arch-5.38.0.par"); err != nil {
		t.Fatal(err)
	}

	list, err := aliases.AliasesFor(real)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0] != "Kit-0.02-any_arch-5.38.0.par" || list[2] != "Kit-0.02-any_arch-any_perlversion.par" {
		t.Errorf("alias list = %v, want append order preserved", list)
	}

	removed, err := aliases.RemoveAliasEverywhere("Kit-0.02-any_arch-5.38.0.par")
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Error("sweep of existing alias reported nothing removed")
	}
	removed, err = aliases.RemoveAliasEverywhere("no-such-alias.par")
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("sweep of unknown alias reported a removal")
	}

	if err := aliases.RemoveKey(real); err != nil {
		t.Fatal(err)
	}
	list, err = aliases.AliasesFor(real)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("aliases after RemoveKey = %v, want none", list)
	}
}

func TestArchiveExtensionProbing(t *testing.T) {
	root := t.TempDir()
	lz4Store := NewStore(root, archive.AlgorithmLZ4, nil)
	if err := lz4Store.CreateEmpty(Provider); err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(lz4Store.ArchivePath(Provider)) != ".lz4" {
		t.Errorf("archive path = %s, want .lz4 extension", lz4Store.ArchivePath(Provider))
	}

	// A zstd-configured store still opens the lz4 archive.
	zstdStore := NewStore(root, archive.AlgorithmZstd, nil)
	if _, err := zstdStore.Open(Provider); err != nil {
		t.Fatal(err)
	}
	if err := zstdStore.CloseAll(); err != nil {
		t.Fatal(err)
	}
}
