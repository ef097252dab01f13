// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/gitpan/par-repository/cmd/parrepo/cli"
	"github.com/gitpan/par-repository/lib/distname"
	"github.com/gitpan/par-repository/lib/repo"
)

func removeCommand() *cli.Command {
	options := &repoOptions{}
	var overrides distname.Identity

	return &cli.Command{
		Name:    "remove",
		Summary: "Remove artifacts or aliases from the repository.",
		Usage:   "parrepo remove --repository <dir> [flags] <file>...",
		Description: "Remove deletes each named artifact and retracts its index\n" +
			"entries. Removing a real file also removes every alias pointing\n" +
			"at it; removing an alias leaves the real file untouched.",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("remove", pflag.ContinueOnError)
			options.addFlags(flags)
			flags.StringVar(&overrides.Name, "distname", "", "override the distribution name parsed from the file name")
			flags.StringVar(&overrides.Version, "distversion", "", "override the distribution version")
			flags.StringVar(&overrides.Arch, "arch", "", "override the architecture")
			flags.StringVar(&overrides.PerlVersion, "perlversion", "", "override the perl version")
			return flags
		},
		Run: func(args []string) error {
			if len(args) == 0 && !overrides.Complete() {
				return fmt.Errorf("remove requires a file name or a complete identity")
			}
			repository, err := options.open()
			if err != nil {
				return err
			}
			defer repository.Close()

			targets := args
			if len(targets) == 0 {
				targets = []string{overrides.FileName()}
			}
			for _, target := range targets {
				removed, err := repository.Remove(target, overrides)
				if err != nil {
					// A failed file delete leaves the indices and the tree
					// disagreeing; nothing further can be trusted.
					var corruption *repo.CorruptionError
					if errors.As(err, &corruption) {
						return &exitError{code: 2, err: err}
					}
					return fmt.Errorf("removing %s: %w", target, err)
				}
				if !removed {
					return fmt.Errorf("removing %s: not found", target)
				}
				fmt.Printf("removed %s\n", target)
			}
			return nil
		},
	}
}
