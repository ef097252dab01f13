// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/gitpan/par-repository/lib/repo"
)

// NewCommandLogger creates a structured logger for CLI operations at
// the given verbosity. When stderr is a terminal, uses
// slog.TextHandler for human-readable output. When stderr is piped or
// redirected (CI, scripts), uses slog.JSONHandler for machine-parseable
// output.
func NewCommandLogger(verbosity repo.Verbosity) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: verbosity.Level()}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
