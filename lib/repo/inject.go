// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gitpan/par-repository/lib/distname"
	"github.com/gitpan/par-repository/lib/scan"
)

// InjectOptions controls an injection.
type InjectOptions struct {
	// Overwrite allows replacing an occupant of the destination path:
	// an alias is removed, a real file is fully removed first.
	Overwrite bool

	// NoScripts skips script scanning and the executable index.
	NoScripts bool

	// AnyArch additionally aliases the artifact into the any_arch
	// dimension.
	AnyArch bool

	// AnyPerlVersion additionally aliases the artifact into the
	// any_perlversion dimension.
	AnyPerlVersion bool
}

// Inject copies the artifact at sourcePath into the repository under
// its canonical identity, records every provided module name in the
// provider index (and script name in the executable index unless
// disabled), and fans the artifact out across the requested any_*
// dimensions via aliases. Fields set in overrides take precedence
// over fields parsed from the source file name.
//
// Returns false without error when the destination is occupied and
// Overwrite is unset. All indices touched are persisted before
// return. Index writes from a failed injection are not rolled back;
// re-running with Overwrite set repairs the entry.
func (r *Repository) Inject(sourcePath string, overrides distname.Identity, opts InjectOptions) (injected bool, err error) {
	defer func() {
		if closeErr := r.indexes.CloseAll(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	// Validating.
	id, err := distname.Resolve(overrides, filepath.Base(sourcePath))
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(sourcePath); err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("%s: %w", sourcePath, ErrSourceMissing)
		}
		return false, fmt.Errorf("checking source %s: %w", sourcePath, err)
	}

	// Scanning.
	provides, err := r.providerScan.ScanProviders(sourcePath)
	if err != nil {
		return false, fmt.Errorf("scanning %s for providers: %w", sourcePath, err)
	}
	if len(provides) == 0 {
		return false, fmt.Errorf("%s: %w", sourcePath, ErrNoProvidersFound)
	}
	var scripts map[string]scan.Provided
	if !opts.NoScripts {
		scripts, err = r.scriptScan.ScanScripts(sourcePath)
		if err != nil {
			return false, fmt.Errorf("scanning %s for scripts: %w", sourcePath, err)
		}
	}

	// Placing.
	fileName := id.FileName()
	destPath := filepath.Join(r.root, id.Cell(), fileName)
	if info, lstatErr := os.Lstat(destPath); lstatErr == nil {
		if !opts.Overwrite {
			r.logger.Info("destination occupied, overwrite not set", "file", fileName)
			return false, nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			if _, err := r.aliases.remove(fileName); err != nil {
				return false, err
			}
		} else {
			if _, err := r.removeArtifact(fileName); err != nil {
				return false, err
			}
		}
	} else if !os.IsNotExist(lstatErr) {
		return false, fmt.Errorf("checking destination %s: %w", destPath, lstatErr)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return false, fmt.Errorf("creating cell for %s: %w", fileName, err)
	}
	if err := copyFile(sourcePath, destPath); err != nil {
		return false, err
	}

	// Indexing.
	if err := r.registerNames(fileName, provides, scripts); err != nil {
		return false, err
	}

	// Aliasing. Up to three aliases depending on which any_*
	// dimensions were requested and are not already the literal
	// identity. Each created alias is indexed under its own file
	// name so lookups by alias resolve without dereferencing the
	// link first.
	var created []string
	for _, aliasID := range aliasFanOut(id, opts) {
		aliasName := aliasID.FileName()
		ok, err := r.aliases.create(fileName, aliasName, opts.Overwrite)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if err := r.registerNames(aliasName, provides, scripts); err != nil {
			return false, err
		}
		created = append(created, aliasName)
	}

	// Receipt.
	contentHash, err := hashFile(destPath)
	if err != nil {
		return false, err
	}
	receipt := Receipt{
		File:        fileName,
		Name:        id.Name,
		Version:     id.Version,
		Arch:        id.Arch,
		PerlVersion: id.PerlVersion,
		ContentHash: contentHash,
		Provides:    providedVersions(provides),
		Scripts:     providedVersions(scripts),
		Aliases:     created,
		InjectedAt:  time.Now().UTC(),
	}
	if err := r.writeReceipt(receipt); err != nil {
		return false, err
	}

	r.logger.Info("artifact injected",
		"file", fileName,
		"provides", len(provides),
		"scripts", len(scripts),
		"aliases", len(created),
	)
	return true, nil
}

// registerNames records every provided and script name against the
// given artifact file name, overwriting any version previously
// recorded under the same (name, file) pair.
func (r *Repository) registerNames(fileName string, provides, scripts map[string]scan.Provided) error {
	providers, err := r.providerIndex()
	if err != nil {
		return err
	}
	for name, provided := range provides {
		if err := providers.Set(name, fileName, provided.Version); err != nil {
			return err
		}
	}

	if len(scripts) == 0 {
		return nil
	}
	executables, err := r.executableIndex()
	if err != nil {
		return err
	}
	for name, provided := range scripts {
		if err := executables.Set(name, fileName, provided.Version); err != nil {
			return err
		}
	}
	return nil
}

// aliasFanOut lists the alias identities to create for id under the
// requested options. Dimensions already holding a sentinel in the
// identity itself are skipped rather than aliased to themselves.
func aliasFanOut(id distname.Identity, opts InjectOptions) []distname.Identity {
	anyArch := opts.AnyArch && id.Arch != distname.AnyArch
	anyPerl := opts.AnyPerlVersion && id.PerlVersion != distname.AnyPerlVersion

	var out []distname.Identity
	if anyArch {
		alias := id
		alias.Arch = distname.AnyArch
		out = append(out, alias)
	}
	if anyPerl {
		alias := id
		alias.PerlVersion = distname.AnyPerlVersion
		out = append(out, alias)
	}
	if anyArch && anyPerl {
		alias := id
		alias.Arch = distname.AnyArch
		alias.PerlVersion = distname.AnyPerlVersion
		out = append(out, alias)
	}
	return out
}

func providedVersions(provided map[string]scan.Provided) map[string]*string {
	if len(provided) == 0 {
		return nil
	}
	out := make(map[string]*string, len(provided))
	for name, p := range provided {
		out[name] = p.Version
	}
	return out
}
