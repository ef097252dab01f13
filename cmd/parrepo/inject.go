// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/gitpan/par-repository/cmd/parrepo/cli"
	"github.com/gitpan/par-repository/lib/distname"
	"github.com/gitpan/par-repository/lib/repo"
)

func injectCommand() *cli.Command {
	options := &repoOptions{}
	var (
		overwrite      bool
		noScripts      bool
		anyArch        bool
		anyPerlVersion bool
		overrides      distname.Identity
	)

	return &cli.Command{
		Name:    "inject",
		Summary: "Copy artifacts into the repository and index them.",
		Usage:   "parrepo inject --repository <dir> [flags] <file>...",
		Description: "Inject copies each .par file into its matrix cell, records the\n" +
			"module names and scripts it provides, and optionally fans it out\n" +
			"across the any_arch / any_perlversion dimensions via aliases.",
		Examples: []cli.Example{
			{
				Description: "Inject a pure-perl distribution for every arch and perl",
				Command:     "parrepo inject -r /srv/par --any-arch --any-perlversion Kit-0.02-x86_64-linux-5.38.0.par",
			},
			{
				Description: "Replace an existing artifact",
				Command:     "parrepo inject -r /srv/par --overwrite Kit-0.02-x86_64-linux-5.38.0.par",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("inject", pflag.ContinueOnError)
			options.addFlags(flags)
			flags.BoolVar(&overwrite, "overwrite", false, "replace an existing artifact or alias at the destination")
			flags.BoolVar(&noScripts, "no-scripts", false, "skip script scanning and the executable index")
			flags.BoolVar(&anyArch, "any-arch", false, "alias the artifact into the any_arch dimension")
			flags.BoolVar(&anyPerlVersion, "any-perlversion", false, "alias the artifact into the any_perlversion dimension")
			flags.StringVar(&overrides.Name, "distname", "", "override the distribution name parsed from the file name")
			flags.StringVar(&overrides.Version, "distversion", "", "override the distribution version")
			flags.StringVar(&overrides.Arch, "arch", "", "override the architecture")
			flags.StringVar(&overrides.PerlVersion, "perlversion", "", "override the perl version")
			return flags
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("inject requires at least one artifact file")
			}
			repository, err := options.open()
			if err != nil {
				return err
			}
			defer repository.Close()

			opts := repo.InjectOptions{
				Overwrite:      overwrite,
				NoScripts:      noScripts,
				AnyArch:        anyArch,
				AnyPerlVersion: anyPerlVersion,
			}
			for _, source := range args {
				injected, err := repository.Inject(source, overrides, opts)
				if err != nil {
					return fmt.Errorf("injecting %s: %w", source, err)
				}
				if !injected {
					return fmt.Errorf("injecting %s: destination occupied (use --overwrite)", source)
				}
				fmt.Printf("injected %s\n", source)
			}
			return nil
		},
	}
}
