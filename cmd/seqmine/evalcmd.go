// Copyright 2017 The go-ethereum Authors
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

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/seqmine/seqmine/cmd/utils"
	"github.com/seqmine/seqmine/core/programs"
	"github.com/seqmine/seqmine/core/vm"
	"github.com/seqmine/seqmine/oeis"
)

var termsFlag = &cli.IntFlag{
	Name:  "terms",
	Usage: "Number of terms to compute",
	Value: 10,
}

var evalCommand = &cli.Command{
	Action:    evalProgram,
	Name:      "eval",
	Usage:     "Evaluate a program and print its terms",
	ArgsUsage: "<A-number or program file>",
	Flags: []cli.Flag{
		termsFlag,
		utils.RepositoryFlag,
		utils.StepLimitFlag,
		utils.OperandBitsFlag,
	},
	Description: `
The eval command computes the first terms of a program. The argument is either
an A-number resolved through the repository or a path to an assembly file.
Calls to other programs are always resolved through the repository.`,
}

func evalProgram(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("expected exactly one program")
	}
	config := vm.DefaultConfig
	config.StepLimit = ctx.Uint64(utils.StepLimitFlag.Name)
	config.OperandBitLimit = ctx.Int(utils.OperandBitsFlag.Name)

	loader := programs.NewDependencyLoader(programs.NewRepository(ctx.String(utils.RepositoryFlag.Name)), config.MaxRegisters, 0)
	program, err := loadProgram(loader, ctx.Args().First())
	if err != nil {
		return err
	}
	return printTerms(os.Stdout, program, ctx.Int(termsFlag.Name), config)
}

// loadProgram compiles the program named by arg, either an A-number or a file.
func loadProgram(loader *programs.DependencyLoader, arg string) (*vm.Program, error) {
	if strings.HasPrefix(arg, "A") && !strings.ContainsAny(arg, "./\\") {
		id, err := oeis.ParseOeisID(arg)
		if err != nil {
			return nil, err
		}
		return loader.LoadProgram(uint32(id))
	}
	text, err := os.ReadFile(arg)
	if err != nil {
		return nil, err
	}
	parsed, err := vm.ParseProgram(string(text))
	if err != nil {
		return nil, err
	}
	return loader.Compile(parsed)
}

// printTerms writes the terms separated by commas. Terms computed before an
// evaluation fault are still printed.
func printTerms(w io.Writer, program *vm.Program, count int, config vm.Config) error {
	start := time.Now()
	terms, err := vm.ComputeTerms(program, count, config)
	values := make([]string, len(terms))
	for i, term := range terms {
		values[i] = term.String()
	}
	fmt.Fprintln(w, strings.Join(values, ","))
	if err != nil {
		return fmt.Errorf("evaluation stopped after %d terms: %w", len(terms), err)
	}
	fmt.Fprintf(os.Stderr, "computed %d terms in %v\n", len(terms), time.Since(start))
	return nil
}
