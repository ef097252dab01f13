// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/gitpan/par-repository/cmd/parrepo/cli"
	"github.com/gitpan/par-repository/lib/repo"
)

func createCommand() *cli.Command {
	options := &repoOptions{}

	return &cli.Command{
		Name:    "create",
		Summary: "Initialize a new, empty repository.",
		Usage:   "parrepo create --repository <dir> [flags]",
		Examples: []cli.Example{
			{
				Description: "Create a repository with lz4-compressed indices",
				Command:     "parrepo create -r /srv/par --compression lz4",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("create", pflag.ContinueOnError)
			options.addFlags(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("create takes no positional arguments")
			}
			cfg, err := options.config()
			if err != nil {
				return err
			}
			repository, err := repo.Create(cfg)
			if err != nil {
				return err
			}
			defer repository.Close()

			fmt.Printf("created repository %s (format %s)\n",
				repository.Root(), repository.FormatVersion())
			return nil
		},
	}
}
