// Copyright 2026 The PAR Repository Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/gitpan/par-repository/cmd/parrepo/cli"
	"github.com/gitpan/par-repository/lib/buildinfo"
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version and build information.",
		Usage:   "parrepo version",
		Run: func(args []string) error {
			fmt.Println(buildinfo.Full())
			return nil
		},
	}
}
