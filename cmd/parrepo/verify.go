// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/gitpan/par-repository/cmd/parrepo/cli"
)

func verifyCommand() *cli.Command {
	options := &repoOptions{}

	return &cli.Command{
		Name:    "verify",
		Summary: "Cross-check indices, files, and receipts.",
		Usage:   "parrepo verify --repository <dir>",
		Description: "Verify reports index entries pointing at missing files, files\n" +
			"no index mentions, broken alias links, and artifacts whose content\n" +
			"changed since injection. It never modifies the repository.",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			options.addFlags(flags)
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("verify takes no positional arguments")
			}
			repository, err := options.open()
			if err != nil {
				return err
			}
			defer repository.Close()

			report, err := repository.Verify()
			if err != nil {
				return err
			}
			if report.Clean() {
				fmt.Println("repository is consistent")
				return nil
			}

			for _, section := range []struct {
				title    string
				findings []string
			}{
				{"dangling index entries", report.DanglingEntries},
				{"unindexed files", report.UnindexedFiles},
				{"broken aliases", report.BrokenAliases},
				{"content hash mismatches", report.HashMismatches},
			} {
				if len(section.findings) == 0 {
					continue
				}
				fmt.Printf("%s:\n", section.title)
				for _, finding := range section.findings {
					fmt.Printf("  %s\n", finding)
				}
			}
			return &exitError{code: 2, err: fmt.Errorf("repository is inconsistent")}
		},
	}
}
