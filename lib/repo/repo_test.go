// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/gitpan/par-repository/lib/distname"
	"github.com/gitpan/par-repository/lib/indexfile"
)

// writePar builds a .par zip with the given entries at path/name.
func writePar(t *testing.T, name string, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	writer := zip.NewWriter(file)
	for entryName, content := range entries {
		entry, err := writer.Create(entryName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func kitPar(t *testing.T, name string) string {
	t.Helper()
	return writePar(t, name, map[string]string{
		"lib/Kit.pm":      "package Kit;\nour $VERSION = '0.02';\n1;\n",
		"lib/Kit/Util.pm": "package Kit::Util;\n1;\n",
		"script/kit":      "#!perl\nprint \"kit\\n\";\n",
	})
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := Create(Config{Root: filepath.Join(t.TempDir(), "repo")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateAndReopen(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	repo, err := Create(Config{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	if repo.FormatVersion() != FormatVersionCurrent {
		t.Errorf("format version = %q, want %q", repo.FormatVersion(), FormatVersionCurrent)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"repository_info.yml",
		"provider_index.db.zst",
		"executable_index.db.zst",
		"alias_index.db.zst",
	} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	reopened, err := Open(Config{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	if err := reopened.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenOrCreate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")

	created, err := OpenOrCreate(Config{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	if err := created.Close(); err != nil {
		t.Fatal(err)
	}

	opened, err := OpenOrCreate(Config{Root: root})
	if err != nil {
		t.Fatalf("OpenOrCreate on existing repository: %v", err)
	}
	if err := opened.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateRefusesOccupiedRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Create(Config{Root: root})
	if !errors.Is(err, ErrPathConflict) {
		t.Errorf("Create on non-empty root: error = %v, want ErrPathConflict", err)
	}
}

func TestOpenRequiresMetadata(t *testing.T) {
	_, err := Open(Config{Root: t.TempDir()})
	if !errors.Is(err, ErrPathConflict) {
		t.Errorf("Open without metadata: error = %v, want ErrPathConflict", err)
	}
}

func TestOpenRejectsUnknownFormat(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	repo, err := Create(Config{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}

	info := []byte("format_version: \"9.9\"\n")
	if err := os.WriteFile(filepath.Join(root, "repository_info.yml"), info, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = Open(Config{Root: root})
	if !errors.Is(err, ErrIncompatibleFormat) {
		t.Errorf("Open with unknown format: error = %v, want ErrIncompatibleFormat", err)
	}
}

func TestLegacyUpgrade(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	repo, err := Create(Config{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}

	// Rewind to the legacy shape: old format stamp, no executable
	// index.
	info := []byte("format_version: \"1.0\"\n")
	if err := os.WriteFile(filepath.Join(root, "repository_info.yml"), info, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "executable_index.db.zst")); err != nil {
		t.Fatal(err)
	}

	upgraded, err := Open(Config{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	defer upgraded.Close()

	if upgraded.FormatVersion() != FormatVersionCurrent {
		t.Errorf("format version after upgrade = %q, want %q",
			upgraded.FormatVersion(), FormatVersionCurrent)
	}
	if _, err := os.Stat(filepath.Join(root, "executable_index.db.zst")); err != nil {
		t.Errorf("executable index not created during upgrade: %v", err)
	}
}

func TestInjectQueryRemove(t *testing.T) {
	repo := newTestRepo(t)
	par := kitPar(t, "Kit-0.02-any_arch-any_perlversion.par")

	injected, err := repo.Inject(par, distname.Identity{}, InjectOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !injected {
		t.Fatal("Inject returned false")
	}

	placed := filepath.Join(repo.Root(), "any_arch", "any_perlversion",
		"Kit-0.02-any_arch-any_perlversion.par")
	if _, err := os.Stat(placed); err != nil {
		t.Fatalf("artifact not placed: %v", err)
	}

	candidates, err := repo.QueryProvider("Kit")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("QueryProvider(Kit) = %d candidates, want 1", len(candidates))
	}
	if candidates[0].File != "Kit-0.02-any_arch-any_perlversion.par" {
		t.Errorf("candidate file = %q", candidates[0].File)
	}
	if candidates[0].Version == nil || *candidates[0].Version != "0.02" {
		t.Errorf("candidate version = %v, want 0.02", candidates[0].Version)
	}

	scripts, err := repo.QueryScript("kit")
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 1 {
		t.Errorf("QueryScript(kit) = %d candidates, want 1", len(scripts))
	}

	removed, err := repo.Remove("Kit-0.02-any_arch-any_perlversion.par", distname.Identity{})
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("Remove returned false")
	}

	if _, err := os.Stat(placed); !os.IsNotExist(err) {
		t.Errorf("artifact still on disk after removal: %v", err)
	}
	candidates, err = repo.QueryProvider("Kit")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 0 {
		t.Errorf("QueryProvider(Kit) after removal = %v, want empty", candidates)
	}
}

func TestInjectNoClobber(t *testing.T) {
	repo := newTestRepo(t)
	par := kitPar(t, "Kit-0.02-any_arch-any_perlversion.par")

	if _, err := repo.Inject(par, distname.Identity{}, InjectOptions{}); err != nil {
		t.Fatal(err)
	}

	injected, err := repo.Inject(par, distname.Identity{}, InjectOptions{})
	if err != nil {
		t.Fatalf("second inject without overwrite: %v", err)
	}
	if injected {
		t.Error("second inject without overwrite returned true")
	}

	injected, err = repo.Inject(par, distname.Identity{}, InjectOptions{Overwrite: true})
	if err != nil {
		t.Fatal(err)
	}
	if !injected {
		t.Error("inject with overwrite returned false")
	}
}

func TestInjectFailures(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Inject(
		filepath.Join(t.TempDir(), "Kit-0.02-any_arch-any_perlversion.par"),
		distname.Identity{}, InjectOptions{})
	if !errors.Is(err, ErrSourceMissing) {
		t.Errorf("missing source: error = %v, want ErrSourceMissing", err)
	}

	empty := writePar(t, "Empty-0.01-any_arch-any_perlversion.par", map[string]string{
		"README": "nothing to provide\n",
	})
	_, err = repo.Inject(empty, distname.Identity{}, InjectOptions{})
	if !errors.Is(err, ErrNoProvidersFound) {
		t.Errorf("unscannable artifact: error = %v, want ErrNoProvidersFound", err)
	}

	var identityErr *distname.IdentityError
	_, err = repo.Inject("not-a-canonical-name.zip", distname.Identity{}, InjectOptions{})
	if !errors.As(err, &identityErr) {
		t.Errorf("unparseable name: error = %v, want *IdentityError", err)
	}
}

func TestAliasFanOut(t *testing.T) {
	repo := newTestRepo(t)
	real := "Kit-0.02-x86_64-linux-5.38.0.par"
	par := kitPar(t, real)

	injected, err := repo.Inject(par, distname.Identity{}, InjectOptions{
		AnyArch:        true,
		AnyPerlVersion: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !injected {
		t.Fatal("Inject returned false")
	}

	wantAliases := []string{
		"Kit-0.02-any_arch-5.38.0.par",
		"Kit-0.02-x86_64-linux-any_perlversion.par",
		"Kit-0.02-any_arch-any_perlversion.par",
	}
	aliases, err := repo.Aliases(real)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != len(wantAliases) {
		t.Fatalf("aliases = %v, want %v", aliases, wantAliases)
	}
	for i, want := range wantAliases {
		if aliases[i] != want {
			t.Errorf("alias[%d] = %q, want %q", i, aliases[i], want)
		}
	}

	realPath := filepath.Join(repo.Root(), "x86_64-linux", "5.38.0", real)
	realResolved, err := filepath.EvalSymlinks(realPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, alias := range wantAliases {
		id, err := distname.ParseFileName(alias)
		if err != nil {
			t.Fatal(err)
		}
		aliasPath := filepath.Join(repo.Root(), id.Cell(), alias)
		info, err := os.Lstat(aliasPath)
		if err != nil {
			t.Fatalf("alias %s: %v", alias, err)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			t.Errorf("alias %s is not a symbolic link", alias)
		}
		resolved, err := filepath.EvalSymlinks(aliasPath)
		if err != nil {
			t.Fatalf("alias %s: %v", alias, err)
		}
		if resolved != realResolved {
			t.Errorf("alias %s resolves to %s, want %s", alias, resolved, realResolved)
		}
	}

	// Every alias carries the same provider associations as the real
	// file.
	candidates, err := repo.QueryProvider("Kit")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 4 {
		t.Fatalf("QueryProvider(Kit) = %d candidates, want 4", len(candidates))
	}
	files := make(map[string]bool)
	for _, c := range candidates {
		files[c.File] = true
	}
	for _, want := range append([]string{real}, wantAliases...) {
		if !files[want] {
			t.Errorf("QueryProvider(Kit) missing %s", want)
		}
	}
}

func TestRemovalCascades(t *testing.T) {
	repo := newTestRepo(t)
	real := "Kit-0.02-x86_64-linux-5.38.0.par"
	par := kitPar(t, real)

	if _, err := repo.Inject(par, distname.Identity{}, InjectOptions{
		AnyArch:        true,
		AnyPerlVersion: true,
	}); err != nil {
		t.Fatal(err)
	}

	removed, err := repo.Remove(real, distname.Identity{})
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("Remove returned false")
	}

	for _, name := range []string{
		real,
		"Kit-0.02-any_arch-5.38.0.par",
		"Kit-0.02-x86_64-linux-any_perlversion.par",
		"Kit-0.02-any_arch-any_perlversion.par",
	} {
		id, err := distname.ParseFileName(name)
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(repo.Root(), id.Cell(), name)
		if _, err := os.Lstat(path); !os.IsNotExist(err) {
			t.Errorf("%s still on disk after cascade: %v", name, err)
		}
	}

	for _, name := range []string{"Kit", "Kit::Util"} {
		candidates, err := repo.QueryProvider(name)
		if err != nil {
			t.Fatal(err)
		}
		if len(candidates) != 0 {
			t.Errorf("QueryProvider(%s) after cascade = %v, want empty", name, candidates)
		}
	}
	aliases, err := repo.Aliases(real)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != 0 {
		t.Errorf("aliases after cascade = %v, want empty", aliases)
	}
}

func TestRemoveAliasLeavesRealFile(t *testing.T) {
	repo := newTestRepo(t)
	real := "Kit-0.02-x86_64-linux-5.38.0.par"
	alias := "Kit-0.02-any_arch-5.38.0.par"
	par := kitPar(t, real)

	if _, err := repo.Inject(par, distname.Identity{}, InjectOptions{AnyArch: true}); err != nil {
		t.Fatal(err)
	}

	removed, err := repo.Remove(alias, distname.Identity{})
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("Remove of alias returned false")
	}

	realPath := filepath.Join(repo.Root(), "x86_64-linux", "5.38.0", real)
	if _, err := os.Stat(realPath); err != nil {
		t.Errorf("real file gone after alias removal: %v", err)
	}

	candidates, err := repo.QueryProvider("Kit")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].File != real {
		t.Errorf("QueryProvider(Kit) = %v, want only %s", candidates, real)
	}
	aliases, err := repo.Aliases(real)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != 0 {
		t.Errorf("aliases after alias removal = %v, want empty", aliases)
	}
}

func TestRemoveMissingArtifact(t *testing.T) {
	repo := newTestRepo(t)

	removed, err := repo.Remove("Kit-0.02-any_arch-any_perlversion.par", distname.Identity{})
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("Remove of absent artifact returned true")
	}
}

func TestInjectUnsupportedPlatform(t *testing.T) {
	stashed := symlink
	symlink = func(oldname, newname string) error {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: syscall.ENOSYS}
	}
	defer func() { symlink = stashed }()

	repo := newTestRepo(t)
	par := kitPar(t, "Kit-0.02-x86_64-linux-5.38.0.par")

	_, err := repo.Inject(par, distname.Identity{}, InjectOptions{AnyArch: true})
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("inject with stubbed symlink: error = %v, want ErrUnsupportedPlatform", err)
	}
}

func TestIdentityOverrides(t *testing.T) {
	repo := newTestRepo(t)
	par := kitPar(t, "Kit-0.02-any_arch-any_perlversion.par")

	injected, err := repo.Inject(par, distname.Identity{Version: "0.03"}, InjectOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !injected {
		t.Fatal("Inject returned false")
	}

	placed := filepath.Join(repo.Root(), "any_arch", "any_perlversion",
		"Kit-0.03-any_arch-any_perlversion.par")
	if _, err := os.Stat(placed); err != nil {
		t.Errorf("override not applied to placement: %v", err)
	}
}

func TestVerify(t *testing.T) {
	repo := newTestRepo(t)
	real := "Kit-0.02-x86_64-linux-5.38.0.par"
	par := kitPar(t, real)

	if _, err := repo.Inject(par, distname.Identity{}, InjectOptions{AnyArch: true}); err != nil {
		t.Fatal(err)
	}

	report, err := repo.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if !report.Clean() {
		t.Fatalf("fresh repository not clean: %+v", report)
	}

	// Tamper with the artifact behind the engine's back.
	realPath := filepath.Join(repo.Root(), "x86_64-linux", "5.38.0", real)
	if err := os.WriteFile(realPath, []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	report, err = repo.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if len(report.HashMismatches) != 1 {
		t.Errorf("hash mismatches = %v, want 1 entry", report.HashMismatches)
	}

	// Delete it outright: the index rows and the alias link both
	// dangle.
	if err := os.Remove(realPath); err != nil {
		t.Fatal(err)
	}
	report, err = repo.Verify()
	if err != nil {
		t.Fatal(err)
	}
	if len(report.DanglingEntries) == 0 {
		t.Error("dangling index entries not reported")
	}
	if len(report.BrokenAliases) == 0 {
		t.Error("broken alias not reported")
	}
}

func TestMutationsPersistAcrossSessions(t *testing.T) {
	root := filepath.Join(t.TempDir(), "repo")
	repo, err := Create(Config{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	par := kitPar(t, "Kit-0.02-any_arch-any_perlversion.par")
	if _, err := repo.Inject(par, distname.Identity{}, InjectOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(Config{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	candidates, err := reopened.QueryProvider("Kit::Util")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Errorf("QueryProvider(Kit::Util) in new session = %v, want 1 candidate", candidates)
	}

	// No working copies may survive an operation.
	if _, err := os.Stat(filepath.Join(root, ".work", string(indexfile.Provider)+".db")); !os.IsNotExist(err) {
		t.Errorf("provider working copy left behind: %v", err)
	}
}
