// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package scan

// Provided describes one discovered name: the file inside the
// artifact that declared it, and the version declared for the name
// itself (nil when unversioned). The provided-name version is
// independent of the artifact's distribution version.
type Provided struct {
	SourceFile string
	Version    *string
}

// ProviderScanner reports the module namespaces an artifact provides.
// Implementations must treat the artifact as read-only.
type ProviderScanner interface {
	ScanProviders(artifactPath string) (map[string]Provided, error)
}

// ScriptScanner reports the executable scripts an artifact carries.
type ScriptScanner interface {
	ScanScripts(artifactPath string) (map[string]Provided, error)
}
