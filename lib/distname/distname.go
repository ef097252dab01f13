// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package distname

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Extension is the artifact file extension, including the dot.
const Extension = ".par"

// Sentinel values for the architecture and perl version identity
// fields. An artifact carrying a sentinel is usable regardless of
// that dimension. These strings are part of the on-disk layout —
// changing them breaks existing repositories.
const (
	AnyArch        = "any_arch"
	AnyPerlVersion = "any_perlversion"
)

// Identity names an artifact: distribution name, distribution
// version, architecture, and perl version. An Identity is complete
// when all four fields are non-empty. Identities are immutable once
// an artifact is placed; the file name is the serialized form.
type Identity struct {
	Name        string
	Version     string
	Arch        string
	PerlVersion string
}

// Complete reports whether all four identity fields are set.
func (id Identity) Complete() bool {
	return id.Name != "" && id.Version != "" && id.Arch != "" && id.PerlVersion != ""
}

// FileName returns the canonical artifact file name for the identity:
// the four fields joined with dashes plus the ".par" extension.
func (id Identity) FileName() string {
	return id.Name + "-" + id.Version + "-" + id.Arch + "-" + id.PerlVersion + Extension
}

// Cell returns the matrix directory for the identity relative to the
// repository root: <arch>/<perl version>.
func (id Identity) Cell() string {
	return filepath.Join(id.Arch, id.PerlVersion)
}

// IdentityError reports that an artifact identity could not be fully
// determined from the available inputs. Missing lists the field names
// that remained empty after merging explicit fields with anything
// parsed from the file name.
type IdentityError struct {
	File    string
	Missing []string
}

func (e *IdentityError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("incomplete artifact identity: missing %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("incomplete artifact identity for %q: missing %s", e.File, strings.Join(e.Missing, ", "))
}

// Resolve merges explicit identity fields with fields parsed from
// fileName and returns the resulting identity. Explicit fields always
// win over parsed ones. Parsing is only attempted when at least one
// explicit field is empty and a file name was given. Returns an
// *IdentityError if any field remains undetermined.
func Resolve(explicit Identity, fileName string) (Identity, error) {
	merged := explicit

	if !merged.Complete() && fileName != "" {
		if parsed, err := ParseFileName(fileName); err == nil {
			if merged.Name == "" {
				merged.Name = parsed.Name
			}
			if merged.Version == "" {
				merged.Version = parsed.Version
			}
			if merged.Arch == "" {
				merged.Arch = parsed.Arch
			}
			if merged.PerlVersion == "" {
				merged.PerlVersion = parsed.PerlVersion
			}
		}
	}

	if !merged.Complete() {
		var missing []string
		if merged.Name == "" {
			missing = append(missing, "name")
		}
		if merged.Version == "" {
			missing = append(missing, "version")
		}
		if merged.Arch == "" {
			missing = append(missing, "arch")
		}
		if merged.PerlVersion == "" {
			missing = append(missing, "perl version")
		}
		return Identity{}, &IdentityError{File: fileName, Missing: missing}
	}

	return merged, nil
}

// ParseFileName splits an artifact file name into its identity
// fields. Any directory components are stripped first. The perl
// version is the final dash-separated token; the distribution version
// is the first version-shaped token after at least one name token;
// everything between version and perl version is the architecture
// (which is itself dash-separated on most platforms, e.g.
// "x86_64-linux-gnu-thread-multi").
func ParseFileName(fileName string) (Identity, error) {
	base := filepath.Base(fileName)
	stem := strings.TrimSuffix(base, Extension)
	if stem == base {
		return Identity{}, fmt.Errorf("file name %q does not carry the %s extension", base, Extension)
	}

	tokens := strings.Split(stem, "-")
	if len(tokens) < 4 {
		return Identity{}, fmt.Errorf("file name %q has too few fields for an artifact identity", base)
	}

	perlVersion := tokens[len(tokens)-1]
	if perlVersion != AnyPerlVersion && !isVersionToken(perlVersion) {
		return Identity{}, fmt.Errorf("file name %q: final field %q is not a perl version", base, perlVersion)
	}
	tokens = tokens[:len(tokens)-1]

	// The distribution version is the first version-shaped token,
	// searched from index 1 so that the name is never empty. Name
	// tokens never look like versions (they must start with a letter),
	// so the first match is unambiguous.
	versionIndex := -1
	for i := 1; i < len(tokens); i++ {
		if isVersionToken(tokens[i]) {
			versionIndex = i
			break
		}
	}
	if versionIndex < 0 {
		return Identity{}, fmt.Errorf("file name %q has no version field", base)
	}

	arch := strings.Join(tokens[versionIndex+1:], "-")
	if arch == "" {
		return Identity{}, fmt.Errorf("file name %q has no architecture field", base)
	}

	return Identity{
		Name:        strings.Join(tokens[:versionIndex], "-"),
		Version:     tokens[versionIndex],
		Arch:        arch,
		PerlVersion: perlVersion,
	}, nil
}

// VersionOf returns the distribution version parsed from an artifact
// file name, or the empty string when the name does not parse. Used
// by version comparison, where an unparseable name simply ranks as
// unversioned rather than failing.
func VersionOf(fileName string) string {
	id, err := ParseFileName(fileName)
	if err != nil {
		return ""
	}
	return id.Version
}

// isVersionToken reports whether a token looks like a version number:
// an optional leading "v" followed by a digit, then digits, dots,
// and underscores (the perl convention for developer releases).
func isVersionToken(token string) bool {
	rest := strings.TrimPrefix(token, "v")
	if rest == "" || rest[0] < '0' || rest[0] > '9' {
		return false
	}
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if (c < '0' || c > '9') && c != '.' && c != '_' {
			return false
		}
	}
	return true
}
