// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/gitpan/par-repository/cmd/parrepo/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run() error {
	return rootCommand().Execute(os.Args[1:])
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "parrepo",
		Summary: "Manage a local repository of .par artifacts.",
		Description: "parrepo maintains a file-tree repository of versioned .par\n" +
			"archives, indexed by the module names and scripts they provide.",
		Subcommands: []*cli.Command{
			createCommand(),
			injectCommand(),
			removeCommand(),
			queryCommand(),
			verifyCommand(),
			versionCommand(),
		},
	}
}
