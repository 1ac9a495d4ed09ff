// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package minerconfig holds the configuration of the program miner.
package minerconfig

import (
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/seqmine/seqmine/core/vm"
	"github.com/seqmine/seqmine/miner/funnel"
	"github.com/seqmine/seqmine/miner/genome"
)

// Default timing configurations
var (
	defaultSyncTimeout           = 10 * time.Minute
	defaultSyncInterval          = 6 * time.Hour
	defaultAnalyticsExpiry       = 24 * time.Hour
	defaultPollTimeout           = 10 * time.Second
	defaultStatusInterval        = time.Minute
	defaultPreventFloodingWindow = 7 * 24 * time.Hour
)

// Other default configurations
var (
	defaultWorkers         = 4
	defaultSavesPerMinute  = 30
	defaultTriedCacheBytes = 64 * 1024 * 1024
	defaultRegisterCeiling = genome.DefaultRegisterCeiling
	defaultMutateAttempts  = genome.DefaultMutateAttempts

	defaultMinimumTerms       = funnel.DefaultConfig.MinimumTerms
	defaultTermCount          = funnel.DefaultConfig.TermCount
	defaultWildcardMagicValue = funnel.DefaultConfig.WildcardMagicValue

	defaultOperandBitLimit = vm.DefaultConfig.OperandBitLimit
	defaultStepLimit       = vm.DefaultConfig.StepLimit
	defaultMaxCallDepth    = vm.DefaultConfig.MaxCallDepth
	defaultMaxRegisters    = vm.DefaultConfig.MaxRegisters
	defaultCacheCapacity   = vm.DefaultConfig.CacheCapacity
)

// Config is the configuration parameters of mining.
type Config struct {
	RepositoryDir string // Root of the program repository, programs live in <root>/oeis
	AnalyticsDir  string `toml:",omitempty"` // Where analytics files are kept, defaults to <DataDir>/analytics
	OutputDir     string `toml:",omitempty"` // Where mined candidates are written, defaults to <DataDir>/mine-event
	JournalDir    string `toml:",omitempty"` // Candidate journal, defaults to <DataDir>/journal
	DiscoveryLog  string `toml:",omitempty"` // Rotating log of every saved candidate
	StrippedFile  string // OEIS stripped file with the reference terms
	DenyFile      string `toml:",omitempty"` // Sequences that must never be mined

	SyncExecutable  string         `toml:",omitempty"` // Executable pulling the latest programs, skipped when empty
	SyncTimeout     *time.Duration `toml:",omitempty"` // Maximum run time of the sync executable
	SyncInterval    *time.Duration `toml:",omitempty"` // Time between syncs while mining
	AnalyticsExpiry *time.Duration `toml:",omitempty"` // Analytics older than this are regenerated after a sync without changes
	PollTimeout     *time.Duration `toml:",omitempty"` // How long the coordinator waits for a message before doing housekeeping
	StatusInterval  *time.Duration `toml:",omitempty"` // Time between status reports

	Workers               *int           `toml:",omitempty"` // Number of mining workers
	Seed                  int64          // Base seed, worker i uses Seed+i. Zero picks a seed from the clock
	PreventFloodingWindow *time.Duration `toml:",omitempty"` // A fingerprint saved within this window is not saved again
	SavesPerMinute        *int           `toml:",omitempty"` // Upper bound on candidates written per minute
	TriedCacheBytes       *int           `toml:",omitempty"` // Size of the cache of already evaluated programs
	RegisterCeiling       *int           `toml:",omitempty"` // Highest register a mutated genome may use, exclusive
	MutateAttempts        *int           `toml:",omitempty"` // Operator retries per mutation

	Funnel FunnelConfig // Matching configuration
	VM     VMConfig     // Evaluation limits
}

// FunnelConfig is the configuration of the candidate matcher.
type FunnelConfig struct {
	MinimumTerms       *int   `toml:",omitempty"` // Length of the indexed prefix
	TermCount          *int   `toml:",omitempty"` // Terms compared before a candidate is confirmed
	WildcardMagicValue *int64 `toml:",omitempty"` // Reference term value that matches anything
}

// VMConfig is the configuration of program evaluation.
type VMConfig struct {
	OperandBitLimit *int    `toml:",omitempty"`
	StepLimit       *uint64 `toml:",omitempty"`
	MaxCallDepth    *int    `toml:",omitempty"`
	MaxRegisters    *int    `toml:",omitempty"`
	CacheCapacity   *int    `toml:",omitempty"`
}

// DefaultConfig contains default settings for miner.
var DefaultConfig = Config{
	SyncTimeout:     &defaultSyncTimeout,
	SyncInterval:    &defaultSyncInterval,
	AnalyticsExpiry: &defaultAnalyticsExpiry,
	PollTimeout:     &defaultPollTimeout,
	StatusInterval:  &defaultStatusInterval,

	Workers:               &defaultWorkers,
	PreventFloodingWindow: &defaultPreventFloodingWindow,
	SavesPerMinute:        &defaultSavesPerMinute,
	TriedCacheBytes:       &defaultTriedCacheBytes,
	RegisterCeiling:       &defaultRegisterCeiling,
	MutateAttempts:        &defaultMutateAttempts,

	Funnel: FunnelConfig{
		MinimumTerms:       &defaultMinimumTerms,
		TermCount:          &defaultTermCount,
		WildcardMagicValue: &defaultWildcardMagicValue,
	},
	VM: VMConfig{
		OperandBitLimit: &defaultOperandBitLimit,
		StepLimit:       &defaultStepLimit,
		MaxCallDepth:    &defaultMaxCallDepth,
		MaxRegisters:    &defaultMaxRegisters,
		CacheCapacity:   &defaultCacheCapacity,
	},
}

// ApplyDefaultMinerConfig fills every unset field with its default. Directories
// left empty are placed below dataDir.
func ApplyDefaultMinerConfig(cfg *Config, dataDir string) {
	if cfg == nil {
		log.Warn("ApplyDefaultMinerConfig cfg == nil")
		return
	}

	// check [Miner] directories
	if cfg.AnalyticsDir == "" {
		cfg.AnalyticsDir = filepath.Join(dataDir, "analytics")
		log.Info("ApplyDefaultMinerConfig", "AnalyticsDir", cfg.AnalyticsDir)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(dataDir, "mine-event")
		log.Info("ApplyDefaultMinerConfig", "OutputDir", cfg.OutputDir)
	}
	if cfg.JournalDir == "" {
		cfg.JournalDir = filepath.Join(dataDir, "journal")
		log.Info("ApplyDefaultMinerConfig", "JournalDir", cfg.JournalDir)
	}

	// check [Miner] timing
	if cfg.SyncTimeout == nil {
		cfg.SyncTimeout = &defaultSyncTimeout
		log.Info("ApplyDefaultMinerConfig", "SyncTimeout", *cfg.SyncTimeout)
	}
	if cfg.SyncInterval == nil {
		cfg.SyncInterval = &defaultSyncInterval
		log.Info("ApplyDefaultMinerConfig", "SyncInterval", *cfg.SyncInterval)
	}
	if cfg.AnalyticsExpiry == nil {
		cfg.AnalyticsExpiry = &defaultAnalyticsExpiry
		log.Info("ApplyDefaultMinerConfig", "AnalyticsExpiry", *cfg.AnalyticsExpiry)
	}
	if cfg.PollTimeout == nil {
		cfg.PollTimeout = &defaultPollTimeout
		log.Info("ApplyDefaultMinerConfig", "PollTimeout", *cfg.PollTimeout)
	}
	if cfg.StatusInterval == nil {
		cfg.StatusInterval = &defaultStatusInterval
		log.Info("ApplyDefaultMinerConfig", "StatusInterval", *cfg.StatusInterval)
	}

	// check [Miner] workers
	if cfg.Workers == nil || *cfg.Workers <= 0 {
		cfg.Workers = &defaultWorkers
		log.Info("ApplyDefaultMinerConfig", "Workers", *cfg.Workers)
	}
	if cfg.PreventFloodingWindow == nil {
		cfg.PreventFloodingWindow = &defaultPreventFloodingWindow
		log.Info("ApplyDefaultMinerConfig", "PreventFloodingWindow", *cfg.PreventFloodingWindow)
	}
	if cfg.SavesPerMinute == nil {
		cfg.SavesPerMinute = &defaultSavesPerMinute
		log.Info("ApplyDefaultMinerConfig", "SavesPerMinute", *cfg.SavesPerMinute)
	}
	if cfg.TriedCacheBytes == nil {
		cfg.TriedCacheBytes = &defaultTriedCacheBytes
		log.Info("ApplyDefaultMinerConfig", "TriedCacheBytes", *cfg.TriedCacheBytes)
	}
	if cfg.RegisterCeiling == nil {
		cfg.RegisterCeiling = &defaultRegisterCeiling
		log.Info("ApplyDefaultMinerConfig", "RegisterCeiling", *cfg.RegisterCeiling)
	}
	if cfg.MutateAttempts == nil {
		cfg.MutateAttempts = &defaultMutateAttempts
		log.Info("ApplyDefaultMinerConfig", "MutateAttempts", *cfg.MutateAttempts)
	}

	// check [Miner.Funnel]
	if cfg.Funnel.MinimumTerms == nil {
		cfg.Funnel.MinimumTerms = &defaultMinimumTerms
		log.Info("ApplyDefaultMinerConfig", "Funnel.MinimumTerms", *cfg.Funnel.MinimumTerms)
	}
	if cfg.Funnel.TermCount == nil {
		cfg.Funnel.TermCount = &defaultTermCount
		log.Info("ApplyDefaultMinerConfig", "Funnel.TermCount", *cfg.Funnel.TermCount)
	}
	if cfg.Funnel.WildcardMagicValue == nil {
		cfg.Funnel.WildcardMagicValue = &defaultWildcardMagicValue
		log.Info("ApplyDefaultMinerConfig", "Funnel.WildcardMagicValue", *cfg.Funnel.WildcardMagicValue)
	}

	// check [Miner.VM]
	if cfg.VM.OperandBitLimit == nil {
		cfg.VM.OperandBitLimit = &defaultOperandBitLimit
		log.Info("ApplyDefaultMinerConfig", "VM.OperandBitLimit", *cfg.VM.OperandBitLimit)
	}
	if cfg.VM.StepLimit == nil {
		cfg.VM.StepLimit = &defaultStepLimit
		log.Info("ApplyDefaultMinerConfig", "VM.StepLimit", *cfg.VM.StepLimit)
	}
	if cfg.VM.MaxCallDepth == nil {
		cfg.VM.MaxCallDepth = &defaultMaxCallDepth
		log.Info("ApplyDefaultMinerConfig", "VM.MaxCallDepth", *cfg.VM.MaxCallDepth)
	}
	if cfg.VM.MaxRegisters == nil {
		cfg.VM.MaxRegisters = &defaultMaxRegisters
		log.Info("ApplyDefaultMinerConfig", "VM.MaxRegisters", *cfg.VM.MaxRegisters)
	}
	if cfg.VM.CacheCapacity == nil {
		cfg.VM.CacheCapacity = &defaultCacheCapacity
		log.Info("ApplyDefaultMinerConfig", "VM.CacheCapacity", *cfg.VM.CacheCapacity)
	}
}

// FunnelSettings converts the section into the matcher configuration. Unset
// fields fall back to funnel.DefaultConfig.
func (c *Config) FunnelSettings() funnel.Config {
	config := funnel.DefaultConfig
	if c.Funnel.MinimumTerms != nil {
		config.MinimumTerms = *c.Funnel.MinimumTerms
	}
	if c.Funnel.TermCount != nil {
		config.TermCount = *c.Funnel.TermCount
	}
	if c.Funnel.WildcardMagicValue != nil {
		config.WildcardMagicValue = *c.Funnel.WildcardMagicValue
	}
	return config
}

// VMSettings converts the section into evaluation limits. Unset fields fall
// back to vm.DefaultConfig.
func (c *Config) VMSettings() vm.Config {
	config := vm.DefaultConfig
	if c.VM.OperandBitLimit != nil {
		config.OperandBitLimit = *c.VM.OperandBitLimit
	}
	if c.VM.StepLimit != nil {
		config.StepLimit = *c.VM.StepLimit
	}
	if c.VM.MaxCallDepth != nil {
		config.MaxCallDepth = *c.VM.MaxCallDepth
	}
	if c.VM.MaxRegisters != nil {
		config.MaxRegisters = *c.VM.MaxRegisters
	}
	if c.VM.CacheCapacity != nil {
		config.CacheCapacity = *c.VM.CacheCapacity
	}
	return config
}
