// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"archive/zip"
	"io"

	"gopkg.in/yaml.v3"
)

// manifestName is the metadata file a packer embeds at the artifact
// root.
const manifestName = "META.yml"

// manifest mirrors the subset of META.yml the repository cares
// about: the provides map from module name to source file and
// provided-name version.
type manifest struct {
	Provides map[string]manifestProvided `yaml:"provides"`
}

type manifestProvided struct {
	File    string `yaml:"file"`
	Version string `yaml:"version"`
}

// manifestProvides extracts the provides map from an artifact's
// embedded manifest. Returns ok=false when the manifest is absent,
// malformed, or has an empty provides map — the caller falls back to
// source scanning in all three cases rather than failing.
func manifestProvides(reader *zip.Reader) (map[string]Provided, bool) {
	var entry *zip.File
	for _, candidate := range reader.File {
		if candidate.Name == manifestName {
			entry = candidate
			break
		}
	}
	if entry == nil {
		return nil, false
	}

	content, err := entry.Open()
	if err != nil {
		return nil, false
	}
	defer content.Close()

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, false
	}

	var parsed manifest
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, false
	}
	if len(parsed.Provides) == 0 {
		return nil, false
	}

	provides := make(map[string]Provided, len(parsed.Provides))
	for name, info := range parsed.Provides {
		provided := Provided{SourceFile: info.File}
		if info.Version != "" {
			version := info.Version
			provided.Version = &version
		}
		provides[name] = provided
	}
	return provides, true
}
