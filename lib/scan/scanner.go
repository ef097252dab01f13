// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package scan

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/gitpan/par-repository/lib/parver"
)

// Scanner is the default zip-based implementation of both scanner
// interfaces. The zero value is ready to use.
type Scanner struct{}

var (
	packageLine = regexp.MustCompile(`^\s*package\s+([A-Za-z][A-Za-z0-9_:]*)\s*;`)
	versionLine = regexp.MustCompile(`\$(?:[\w:]+::)?VERSION\s*=\s*['"]?(v?[0-9][0-9._]*)['"]?\s*;`)
)

// ScanProviders reads every module source in the artifact and returns
// the declared namespaces. If META.yml is present with a well-formed
// provides map, that manifest is used instead of scanning. When
// several sources declare the same name, the source with the higher
// resolvable version wins; an unversioned source loses to any
// versioned one.
func (Scanner) ScanProviders(artifactPath string) (map[string]Provided, error) {
	reader, err := zip.OpenReader(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("opening artifact %s: %w", artifactPath, err)
	}
	defer reader.Close()

	if provides, ok := manifestProvides(&reader.Reader); ok {
		return provides, nil
	}

	providers := make(map[string]Provided)
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() || !strings.HasSuffix(entry.Name, ".pm") {
			continue
		}

		names, fileVersion, err := scanModuleSource(entry)
		if err != nil {
			return nil, fmt.Errorf("scanning %s in %s: %w", entry.Name, artifactPath, err)
		}

		for _, name := range names {
			current, seen := providers[name]
			if seen && parver.Compare(versionOrEmpty(current.Version), versionOrEmpty(fileVersion)) >= 0 {
				continue
			}
			providers[name] = Provided{SourceFile: entry.Name, Version: fileVersion}
		}
	}
	return providers, nil
}

// ScanScripts returns the executable scripts shipped under the
// conventional script/ and bin/ directories, keyed by base name.
// The packer's own entry script (main.pl) and hidden files are
// excluded.
func (Scanner) ScanScripts(artifactPath string) (map[string]Provided, error) {
	reader, err := zip.OpenReader(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("opening artifact %s: %w", artifactPath, err)
	}
	defer reader.Close()

	scripts := make(map[string]Provided)
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		dir, base := path.Split(entry.Name)
		if dir != "script/" && dir != "bin/" {
			continue
		}
		if base == "main.pl" || strings.HasPrefix(base, ".") {
			continue
		}

		version, err := scanScriptVersion(entry)
		if err != nil {
			return nil, fmt.Errorf("scanning %s in %s: %w", entry.Name, artifactPath, err)
		}
		scripts[base] = Provided{SourceFile: entry.Name, Version: version}
	}
	return scripts, nil
}

// scanModuleSource walks one module source line by line and returns
// the declared package names plus the file's own version. The walk
// is a two-state machine: in code, pod directives (a leading "=")
// switch to the pod state; in pod, only "=cut" switches back. An
// __END__ or __DATA__ marker stops the walk entirely.
func scanModuleSource(entry *zip.File) ([]string, *string, error) {
	content, err := entry.Open()
	if err != nil {
		return nil, nil, err
	}
	defer content.Close()

	var (
		names   []string
		version *string
		inPod   bool
	)

	lines := bufio.NewScanner(content)
	lines.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lines.Scan() {
		line := lines.Text()

		if inPod {
			if strings.HasPrefix(line, "=cut") {
				inPod = false
			}
			continue
		}
		if len(line) > 1 && line[0] == '=' && isLetter(line[1]) {
			inPod = true
			continue
		}
		trimmed := strings.TrimRight(line, "\r")
		if trimmed == "__END__" || trimmed == "__DATA__" {
			break
		}

		if match := packageLine.FindStringSubmatch(line); match != nil {
			if name := match[1]; acceptableName(name) {
				names = append(names, name)
			}
			continue
		}
		if version == nil {
			if match := versionLine.FindStringSubmatch(line); match != nil {
				value := match[1]
				version = &value
			}
		}
	}
	if err := lines.Err(); err != nil {
		return nil, nil, err
	}
	return names, version, nil
}

// scanScriptVersion extracts a $VERSION declaration from a script, if
// any. Pod and __END__ handling match module scanning.
func scanScriptVersion(entry *zip.File) (*string, error) {
	content, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer content.Close()
	return findVersion(content)
}

func findVersion(r io.Reader) (*string, error) {
	var inPod bool

	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lines.Scan() {
		line := lines.Text()
		if inPod {
			if strings.HasPrefix(line, "=cut") {
				inPod = false
			}
			continue
		}
		if len(line) > 1 && line[0] == '=' && isLetter(line[1]) {
			inPod = true
			continue
		}
		trimmed := strings.TrimRight(line, "\r")
		if trimmed == "__END__" || trimmed == "__DATA__" {
			break
		}
		if match := versionLine.FindStringSubmatch(line); match != nil {
			value := match[1]
			return &value, nil
		}
	}
	return nil, lines.Err()
}

// acceptableName applies the namespace rules: starts with a letter
// (guaranteed by the package regexp), ends with a word character, and
// is not the default namespace.
func acceptableName(name string) bool {
	if name == "main" {
		return false
	}
	last := name[len(name)-1]
	return isLetter(last) || last == '_' || (last >= '0' && last <= '9')
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func versionOrEmpty(version *string) string {
	if version == nil {
		return ""
	}
	return *version
}
