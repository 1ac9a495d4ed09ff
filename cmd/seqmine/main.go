// Copyright 2014 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// seqmine is the command-line client of the program miner.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"

	"github.com/seqmine/seqmine/cmd/utils"
)

var app = &cli.App{
	Name:      "seqmine",
	Usage:     "mine programs for integer sequences",
	Copyright: "Copyright 2024 The seqmine Authors",
	Flags:     utils.LoggingFlags,
	Before: func(ctx *cli.Context) error {
		return utils.SetupLogging(ctx)
	},
	Commands: []*cli.Command{
		mineCommand,
		evalCommand,
		analyticsCommand,
		dumpConfigCommand,
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
