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

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/seqmine/seqmine/cmd/utils"
	"github.com/seqmine/seqmine/miner"
	"github.com/seqmine/seqmine/miner/minerconfig"
)

var mineCommand = &cli.Command{
	Action: mine,
	Name:   "mine",
	Usage:  "Run the miner until interrupted",
	Flags:  utils.MinerFlags,
	Description: `
The mine command syncs the program repository, refreshes the analytics and
starts the workers. Programs matching a sequence without a known program are
written to the output directory.`,
}

// checkMinerConfig terminates if a required setting is missing.
func checkMinerConfig(cfg *minerconfig.Config) {
	if cfg.RepositoryDir == "" {
		utils.Fatalf("No program repository given (--repository)")
	}
	if cfg.StrippedFile == "" {
		utils.Fatalf("No stripped file given (--stripped)")
	}
}

func mine(ctx *cli.Context) error {
	cfg, err := utils.MakeConfig(ctx)
	if err != nil {
		utils.Fatalf("%v", err)
	}
	checkMinerConfig(&cfg.Miner)

	m, err := miner.New(&cfg.Miner)
	if err != nil {
		utils.Fatalf("Failed to create the miner: %v", err)
	}
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting miner", "repository", cfg.Miner.RepositoryDir, "output", cfg.Miner.OutputDir, "workers", *cfg.Miner.Workers)
	runErr := m.Run(runCtx)
	if err := m.Close(); err != nil {
		log.Error("Failed to close the miner", "err", err)
	}
	var fe *miner.FatalError
	if errors.As(runErr, &fe) {
		log.Crit("Miner stopped", "stage", fe.Stage, "err", fe.Err)
	}
	log.Info("Miner stopped")
	return nil
}
