// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

// Package scan discovers what an artifact provides.
//
// A .par artifact is a zip archive carrying module sources and
// scripts. The repository engine consumes two capabilities from this
// package through the [ProviderScanner] and [ScriptScanner]
// interfaces: which module namespaces the artifact declares, and
// which executable scripts it ships. The engine itself never inspects
// artifact contents.
//
// The default implementation, [Scanner], prefers the artifact's
// embedded META.yml manifest when present and well-formed, and falls
// back to scanning module sources line by line. Source scanning is a
// small state machine (in-code / in-pod) rather than one big regular
// expression: pod blocks are skipped, scanning stops at __END__ or
// __DATA__, and a declared name is accepted only when it starts with
// a letter, ends with a word character, and is not the "main"
// default namespace.
package scan
