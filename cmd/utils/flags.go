// Copyright 2015 The go-ethereum Authors
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

// Package utils contains internal helper functions for seqmine commands.
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/seqmine/seqmine/miner/minerconfig"
)

const (
	MinerCategory   = "MINER"
	FunnelCategory  = "FUNNEL"
	VMCategory      = "VIRTUAL MACHINE"
	LoggingCategory = "LOGGING AND DEBUGGING"
)

var (
	// General settings
	DataDirFlag = &cli.StringFlag{
		Name:     "datadir",
		Usage:    "Data directory for analytics, journal and mined programs",
		Value:    DefaultDataDir(),
		Category: MinerCategory,
	}
	ConfigFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: MinerCategory,
	}
	RepositoryFlag = &cli.StringFlag{
		Name:     "repository",
		Usage:    "Root of the program repository",
		Category: MinerCategory,
	}
	StrippedFlag = &cli.StringFlag{
		Name:     "stripped",
		Usage:    "Path of the OEIS 'stripped' file",
		Category: MinerCategory,
	}
	DenyFileFlag = &cli.StringFlag{
		Name:     "denyfile",
		Usage:    "File listing sequences that are never mined",
		Category: MinerCategory,
	}
	OutputDirFlag = &cli.StringFlag{
		Name:     "outputdir",
		Usage:    "Directory receiving mined programs (default = inside the datadir)",
		Category: MinerCategory,
	}
	SyncExecutableFlag = &cli.StringFlag{
		Name:     "sync",
		Usage:    "Executable that updates the repository and prints its status",
		Category: MinerCategory,
	}
	SyncIntervalFlag = &cli.DurationFlag{
		Name:     "sync.interval",
		Usage:    "Time between repository syncs while mining",
		Value:    *minerconfig.DefaultConfig.SyncInterval,
		Category: MinerCategory,
	}
	WorkersFlag = &cli.IntFlag{
		Name:     "workers",
		Usage:    "Number of mining workers",
		Value:    *minerconfig.DefaultConfig.Workers,
		Category: MinerCategory,
	}
	SeedFlag = &cli.Int64Flag{
		Name:     "seed",
		Usage:    "Random seed of the workers (0 = time based)",
		Category: MinerCategory,
	}
	SavesPerMinuteFlag = &cli.IntFlag{
		Name:     "saves-per-minute",
		Usage:    "Maximum number of programs saved per minute (0 = unlimited)",
		Value:    *minerconfig.DefaultConfig.SavesPerMinute,
		Category: MinerCategory,
	}
	DiscoveryLogFlag = &cli.StringFlag{
		Name:     "discovery.log",
		Usage:    "Rotating log of every saved program",
		Category: MinerCategory,
	}

	// Funnel settings
	MinimumTermsFlag = &cli.IntFlag{
		Name:     "funnel.minterms",
		Usage:    "Number of leading terms that must match a known sequence",
		Value:    *minerconfig.DefaultConfig.Funnel.MinimumTerms,
		Category: FunnelCategory,
	}
	TermCountFlag = &cli.IntFlag{
		Name:     "funnel.terms",
		Usage:    "Number of terms that confirm a match",
		Value:    *minerconfig.DefaultConfig.Funnel.TermCount,
		Category: FunnelCategory,
	}

	// VM settings
	StepLimitFlag = &cli.Uint64Flag{
		Name:     "vm.steps",
		Usage:    "Maximum number of steps per term",
		Value:    *minerconfig.DefaultConfig.VM.StepLimit,
		Category: VMCategory,
	}
	OperandBitsFlag = &cli.IntFlag{
		Name:     "vm.bits",
		Usage:    "Maximum bit length of register values",
		Value:    *minerconfig.DefaultConfig.VM.OperandBitLimit,
		Category: VMCategory,
	}

	// Logging
	VerbosityFlag = &cli.IntFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value:    3,
		Category: LoggingCategory,
	}
	LogFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to a rotated file instead of the terminal",
		Category: LoggingCategory,
	}
	LogFormatFlag = &cli.StringFlag{
		Name:     "log.format",
		Usage:    "Log format to use (terminal|logfmt|json)",
		Category: LoggingCategory,
	}
	LogMaxSizeFlag = &cli.IntFlag{
		Name:     "log.maxsize",
		Usage:    "Maximum size in megabytes of the log file before it is rotated",
		Value:    100,
		Category: LoggingCategory,
	}
	LogMaxBackupsFlag = &cli.IntFlag{
		Name:     "log.maxbackups",
		Usage:    "Maximum number of rotated log files to retain",
		Value:    10,
		Category: LoggingCategory,
	}
)

var (
	// MinerFlags are the flags shared by every command that runs the miner.
	MinerFlags = []cli.Flag{
		DataDirFlag,
		ConfigFileFlag,
		RepositoryFlag,
		StrippedFlag,
		DenyFileFlag,
		OutputDirFlag,
		SyncExecutableFlag,
		SyncIntervalFlag,
		WorkersFlag,
		SeedFlag,
		SavesPerMinuteFlag,
		DiscoveryLogFlag,
		MinimumTermsFlag,
		TermCountFlag,
		StepLimitFlag,
		OperandBitsFlag,
	}
	LoggingFlags = []cli.Flag{
		VerbosityFlag,
		LogFileFlag,
		LogFormatFlag,
		LogMaxSizeFlag,
		LogMaxBackupsFlag,
	}
)

// DefaultDataDir is the default data directory to use for the analytics,
// the journal and the mined programs.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".seqmine")
}

// MakeDataDir retrieves the currently requested data directory, terminating
// if none is available.
func MakeDataDir(ctx *cli.Context) string {
	if path := ctx.String(DataDirFlag.Name); path != "" {
		return path
	}
	Fatalf("Cannot determine default data directory, please set manually (--datadir)")
	return ""
}

// SetMinerConfig applies miner related command line flags to the config.
func SetMinerConfig(ctx *cli.Context, cfg *minerconfig.Config) {
	if ctx.IsSet(RepositoryFlag.Name) {
		cfg.RepositoryDir = ctx.String(RepositoryFlag.Name)
	}
	if ctx.IsSet(StrippedFlag.Name) {
		cfg.StrippedFile = ctx.String(StrippedFlag.Name)
	}
	if ctx.IsSet(DenyFileFlag.Name) {
		cfg.DenyFile = ctx.String(DenyFileFlag.Name)
	}
	if ctx.IsSet(OutputDirFlag.Name) {
		cfg.OutputDir = ctx.String(OutputDirFlag.Name)
	}
	if ctx.IsSet(SyncExecutableFlag.Name) {
		cfg.SyncExecutable = ctx.String(SyncExecutableFlag.Name)
	}
	if ctx.IsSet(SyncIntervalFlag.Name) {
		interval := ctx.Duration(SyncIntervalFlag.Name)
		cfg.SyncInterval = &interval
	}
	if ctx.IsSet(WorkersFlag.Name) {
		workers := ctx.Int(WorkersFlag.Name)
		cfg.Workers = &workers
	}
	if ctx.IsSet(SeedFlag.Name) {
		cfg.Seed = ctx.Int64(SeedFlag.Name)
	}
	if ctx.IsSet(SavesPerMinuteFlag.Name) {
		saves := ctx.Int(SavesPerMinuteFlag.Name)
		cfg.SavesPerMinute = &saves
	}
	if ctx.IsSet(DiscoveryLogFlag.Name) {
		cfg.DiscoveryLog = ctx.String(DiscoveryLogFlag.Name)
	}
	if ctx.IsSet(MinimumTermsFlag.Name) {
		minimum := ctx.Int(MinimumTermsFlag.Name)
		cfg.Funnel.MinimumTerms = &minimum
	}
	if ctx.IsSet(TermCountFlag.Name) {
		terms := ctx.Int(TermCountFlag.Name)
		cfg.Funnel.TermCount = &terms
	}
	if ctx.IsSet(StepLimitFlag.Name) {
		steps := ctx.Uint64(StepLimitFlag.Name)
		cfg.VM.StepLimit = &steps
	}
	if ctx.IsSet(OperandBitsFlag.Name) {
		bits := ctx.Int(OperandBitsFlag.Name)
		cfg.VM.OperandBitLimit = &bits
	}
	if cfg.Funnel.MinimumTerms != nil && cfg.Funnel.TermCount != nil && *cfg.Funnel.TermCount < *cfg.Funnel.MinimumTerms {
		log.Warn("Funnel term count below the minimum, raising it", "terms", *cfg.Funnel.TermCount, "minimum", *cfg.Funnel.MinimumTerms)
		raised := *cfg.Funnel.MinimumTerms
		cfg.Funnel.TermCount = &raised
	}
}

// CheckExclusive verifies that only a single instance of the provided flags was
// set by the user.
func CheckExclusive(ctx *cli.Context, args ...cli.Flag) {
	set := make([]string, 0, 1)
	for _, flag := range args {
		if ctx.IsSet(flag.Names()[0]) {
			set = append(set, "--"+flag.Names()[0])
		}
	}
	if len(set) > 1 {
		Fatalf("Flags %v can't be used at the same time", strings.Join(set, ", "))
	}
}

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := os.Stderr
	outf, _ := os.Stdout.Stat()
	errf, _ := os.Stderr.Stat()
	if outf != nil && errf != nil && os.SameFile(outf, errf) {
		w = os.Stdout
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}
