// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

// Package distname parses and formats distribution file names.
//
// Every artifact in a repository is named by a four-field identity:
// distribution name, distribution version, architecture, and perl
// version. The canonical file name joins the fields with dashes and
// appends the ".par" extension:
//
//	Foo-Bar-0.02-x86_64-linux-gnu-thread-multi-5.38.0.par
//
// The architecture and perl version fields accept the sentinel values
// [AnyArch] and [AnyPerlVersion], meaning the artifact is usable
// regardless of that dimension. The identity is re-derivable from the
// file name alone, which is what makes bare file names sufficient as
// index keys throughout the repository.
package distname
