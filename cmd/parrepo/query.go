// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/gitpan/par-repository/cmd/parrepo/cli"
	"github.com/gitpan/par-repository/lib/repo"
)

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:    "query",
		Summary: "Look up artifacts by provided module or script name.",
		Subcommands: []*cli.Command{
			queryProviderCommand(),
			queryScriptCommand(),
		},
	}
}

func queryProviderCommand() *cli.Command {
	options := &repoOptions{}

	return &cli.Command{
		Name:    "provider",
		Summary: "List the artifacts providing a module name.",
		Usage:   "parrepo query provider --repository <dir> <module>...",
		Examples: []cli.Example{
			{
				Description: "Find every artifact providing Kit::Util",
				Command:     "parrepo query provider -r /srv/par Kit::Util",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("provider", pflag.ContinueOnError)
			options.addFlags(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("query provider requires at least one module name")
			}
			repository, err := options.open()
			if err != nil {
				return err
			}
			defer repository.Close()

			for _, name := range args {
				candidates, err := repository.QueryProvider(name)
				if err != nil {
					return err
				}
				printCandidates(name, candidates)
			}
			return nil
		},
	}
}

func queryScriptCommand() *cli.Command {
	options := &repoOptions{}

	return &cli.Command{
		Name:    "script",
		Summary: "List the artifacts shipping a script name.",
		Usage:   "parrepo query script --repository <dir> <script>...",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("script", pflag.ContinueOnError)
			options.addFlags(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("query script requires at least one script name")
			}
			repository, err := options.open()
			if err != nil {
				return err
			}
			defer repository.Close()

			for _, name := range args {
				candidates, err := repository.QueryScript(name)
				if err != nil {
					return err
				}
				printCandidates(name, candidates)
			}
			return nil
		},
	}
}

func printCandidates(name string, candidates []repo.Candidate) {
	if len(candidates) == 0 {
		fmt.Printf("%s: not found\n", name)
		return
	}
	for _, candidate := range candidates {
		version := "-"
		if candidate.Version != nil {
			version = *candidate.Version
		}
		fmt.Printf("%s\t%s\t%s\n", name, candidate.File, version)
	}
}
