// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/gitpan/par-repository/cmd/parrepo/cli"
	"github.com/gitpan/par-repository/lib/archive"
	"github.com/gitpan/par-repository/lib/repo"
)

// repoOptions holds the flags shared by every repository-touching
// subcommand.
type repoOptions struct {
	repository  string
	verbose     int
	compression string
}

func (o *repoOptions) addFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&o.repository, "repository", "r", ".", "repository root directory")
	flags.CountVarP(&o.verbose, "verbose", "v", "increase verbosity (repeatable)")
	flags.StringVar(&o.compression, "compression", "zstd", "index archive compression (zstd or lz4)")
}

func (o *repoOptions) verbosity() repo.Verbosity {
	v := repo.VerbosityError + repo.Verbosity(o.verbose)
	if v > repo.VerbosityFull {
		v = repo.VerbosityFull
	}
	return v
}

// config builds the engine configuration from the parsed flags.
func (o *repoOptions) config() (repo.Config, error) {
	algorithm, err := archive.ParseAlgorithm(o.compression)
	if err != nil {
		return repo.Config{}, err
	}
	return repo.Config{
		Root:      o.repository,
		Logger:    cli.NewCommandLogger(o.verbosity()),
		Algorithm: algorithm,
	}, nil
}

// open opens an existing repository with the parsed flags.
func (o *repoOptions) open() (*repo.Repository, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	repository, err := repo.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", o.repository, err)
	}
	return repository, nil
}

// exitError carries an explicit process exit code through the command
// tree. Used for conditions where the default code 1 is too soft,
// such as repository corruption.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }
