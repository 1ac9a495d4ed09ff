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
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/seqmine/seqmine/analytics"
	"github.com/seqmine/seqmine/cmd/utils"
)

var forceFlag = &cli.BoolFlag{
	Name:  "force",
	Usage: "Regenerate even if the analytics are up to date",
}

var analyticsCommand = &cli.Command{
	Action: regenerateAnalytics,
	Name:   "analytics",
	Usage:  "Regenerate the analytics of the program repository",
	Flags:  append([]cli.Flag{forceFlag}, utils.MinerFlags...),
	Description: `
The analytics command regenerates the popularity, constant and bigram files
used to guide mutations and prints a summary of the result.`,
}

func regenerateAnalytics(ctx *cli.Context) error {
	cfg, err := utils.MakeConfig(ctx)
	if err != nil {
		utils.Fatalf("%v", err)
	}
	if cfg.Miner.RepositoryDir == "" {
		utils.Fatalf("No program repository given (--repository)")
	}
	a := analytics.New(analytics.Config{
		RepositoryDir: cfg.Miner.RepositoryDir,
		AnalyticsDir:  cfg.Miner.AnalyticsDir,
		DenyFile:      cfg.Miner.DenyFile,
		Expiry:        *cfg.Miner.AnalyticsExpiry,
		MaxRegisters:  *cfg.Miner.VM.MaxRegisters,
	})
	if ctx.Bool(forceFlag.Name) {
		err = a.RunForce()
	} else {
		_, err = a.RunIfExpired()
	}
	if err != nil {
		return err
	}
	snapshot, err := analytics.Load(cfg.Miner.AnalyticsDir)
	if err != nil {
		return err
	}
	log.Info("Analytics ready", "dir", cfg.Miner.AnalyticsDir)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Cluster", "Programs"})
	total := 0
	for i := 0; i < analytics.NumberOfClusters; i++ {
		n := len(snapshot.Popular.Cluster(i))
		total += n
		table.Append([]string{strconv.Itoa(i), strconv.Itoa(n)})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(total)})
	table.Render()
	return nil
}
