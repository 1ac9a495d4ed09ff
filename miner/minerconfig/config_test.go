package minerconfig

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqmine/seqmine/core/vm"
	"github.com/seqmine/seqmine/miner/funnel"
)

func TestApplyDefaultMinerConfig(t *testing.T) {
	var (
		workers  = 12
		interval = time.Hour
		terms    = 30
	)
	tests := []struct {
		name  string
		cfg   Config
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "empty config gets every default",
			cfg:  Config{},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, defaultWorkers, *cfg.Workers)
				assert.Equal(t, defaultSyncInterval, *cfg.SyncInterval)
				assert.Equal(t, defaultPollTimeout, *cfg.PollTimeout)
				assert.Equal(t, funnel.DefaultConfig.MinimumTerms, *cfg.Funnel.MinimumTerms)
				assert.Equal(t, vm.DefaultConfig.StepLimit, *cfg.VM.StepLimit)
				assert.Equal(t, filepath.Join("data", "analytics"), cfg.AnalyticsDir)
				assert.Equal(t, filepath.Join("data", "mine-event"), cfg.OutputDir)
				assert.Equal(t, filepath.Join("data", "journal"), cfg.JournalDir)
			},
		},
		{
			name: "explicit values are kept",
			cfg: Config{
				OutputDir:    "out",
				Workers:      &workers,
				SyncInterval: &interval,
				Funnel:       FunnelConfig{TermCount: &terms},
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 12, *cfg.Workers)
				assert.Equal(t, time.Hour, *cfg.SyncInterval)
				assert.Equal(t, 30, *cfg.Funnel.TermCount)
				assert.Equal(t, "out", cfg.OutputDir)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			ApplyDefaultMinerConfig(&cfg, "data")
			tt.check(t, &cfg)
		})
	}
}

func TestApplyDefaultMinerConfigNil(t *testing.T) {
	require.NotPanics(t, func() { ApplyDefaultMinerConfig(nil, "data") })
}

func TestApplyDefaultMinerConfigNonPositiveWorkers(t *testing.T) {
	zero := 0
	cfg := Config{Workers: &zero}
	ApplyDefaultMinerConfig(&cfg, "data")
	assert.Equal(t, defaultWorkers, *cfg.Workers)
}

func TestSettings(t *testing.T) {
	var (
		minimum  = 8
		bits     = 64
		wildcard = int64(-1)
	)
	cfg := Config{
		Funnel: FunnelConfig{MinimumTerms: &minimum, WildcardMagicValue: &wildcard},
		VM:     VMConfig{OperandBitLimit: &bits},
	}
	fc := cfg.FunnelSettings()
	assert.Equal(t, funnel.Config{MinimumTerms: 8, TermCount: funnel.DefaultConfig.TermCount, WildcardMagicValue: -1}, fc)

	vc := cfg.VMSettings()
	expected := vm.DefaultConfig
	expected.OperandBitLimit = 64
	assert.Equal(t, expected, vc)
}
