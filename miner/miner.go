// Copyright 2024 The go-ethereum Authors
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

// Package miner searches for programs that reproduce known integer sequences.
// A coordinator keeps the analytics and the matching index fresh and
// broadcasts them to a pool of workers that mutate, evaluate and save
// candidate programs.
package miner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/seqmine/seqmine/analytics"
	"github.com/seqmine/seqmine/common/gopool"
	mlog "github.com/seqmine/seqmine/log"
	"github.com/seqmine/seqmine/miner/minerconfig"
)

// Miner wires the coordinator, the workers and candidate persistence.
type Miner struct {
	config      *minerconfig.Config
	state       sharedState
	syncStatus  syncSnapshot
	group       *workerGroup
	analytics   *analytics.Analytics
	coordinator *coordinator
	journal     *CandidateJournal
	saver       *CandidateSaver
	discovery   *mlog.AsyncFileWriter
	pool        *gopool.Pool
	workers     []*worker
	status      *statusReporter
	denyWatcher *denyWatcher
	fatalCh     chan error
}

// New creates a miner. The config must have been completed with
// minerconfig.ApplyDefaultMinerConfig. The output directory stays locked
// until Close.
func New(config *minerconfig.Config) (*Miner, error) {
	var syncer Syncer = noopSyncer{}
	if config.SyncExecutable != "" {
		syncer = &ExecSyncer{Executable: config.SyncExecutable, Timeout: *config.SyncTimeout}
	}
	return newMiner(config, syncer)
}

func newMiner(config *minerconfig.Config, syncer Syncer) (_ *Miner, err error) {
	m := &Miner{
		config:  config,
		group:   newWorkerGroup(WorkerPoolName),
		fatalCh: make(chan error, 1),
	}
	defer func() {
		if err != nil {
			m.Close()
		}
	}()

	if m.journal, err = OpenCandidateJournal(config.JournalDir); err != nil {
		return nil, err
	}
	if config.DiscoveryLog != "" {
		if m.discovery, err = mlog.NewAsyncFileWriter(config.DiscoveryLog, 1024, 24); err != nil {
			return nil, err
		}
		if err = m.discovery.Start(); err != nil {
			return nil, err
		}
	}
	saverConfig := SaverConfig{
		OutputDir:      config.OutputDir,
		SavesPerMinute: *config.SavesPerMinute,
		Journal:        m.journal,
	}
	if m.discovery != nil {
		saverConfig.Discovery = m.discovery
	}
	if m.saver, err = NewCandidateSaver(saverConfig); err != nil {
		return nil, err
	}

	vmConfig := config.VMSettings()
	m.analytics = analytics.New(analytics.Config{
		RepositoryDir: config.RepositoryDir,
		AnalyticsDir:  config.AnalyticsDir,
		DenyFile:      config.DenyFile,
		Expiry:        *config.AnalyticsExpiry,
		MaxRegisters:  vmConfig.MaxRegisters,
	})
	m.coordinator = &coordinator{
		syncer:       syncer,
		analytics:    m.analytics,
		builder:      bundleBuilder{config: config, journal: m.journal},
		group:        m.group,
		state:        &m.state,
		syncStatus:   &m.syncStatus,
		pollTimeout:  *config.PollTimeout,
		syncInterval: *config.SyncInterval,
		msgCh:        make(chan Message, 4),
		now:          time.Now,
	}

	workers := *config.Workers
	if m.pool, err = gopool.NewPool(workers); err != nil {
		return nil, err
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Info("Creating mining workers", "workers", workers, "seed", seed)
	tried := fastcache.New(*config.TriedCacheBytes)
	for i := 0; i < workers; i++ {
		m.workers = append(m.workers, newWorker(i, seed, m.group, &m.state, m.saver, tried, vmConfig))
	}
	m.status = &statusReporter{
		workers:    m.workers,
		state:      &m.state,
		syncStatus: &m.syncStatus,
		interval:   *config.StatusInterval,
		out:        os.Stdout,
		start:      time.Now(),
	}

	if config.DenyFile != "" {
		if _, statErr := os.Stat(filepath.Dir(config.DenyFile)); statErr == nil {
			if m.denyWatcher, err = newDenyWatcher(config.DenyFile, m.denyFileChanged); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Miner) denyFileChanged() {
	if err := m.analytics.Invalidate(); err != nil {
		log.Warn("Failed to invalidate analytics", "err", err)
	}
	m.coordinator.send(RegenerateAnalytics)
}

// State returns the current phase of the coordinator.
func (m *Miner) State() SharedWorkerState {
	return m.state.get()
}

// Run starts the launch procedure and mines until ctx is cancelled or a
// fatal error occurs. Workers have returned when Run returns. A non-nil
// error is always a *FatalError.
func (m *Miner) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for i, w := range m.workers {
		w := w
		err := m.pool.Submit(func() {
			if err := w.loop(gctx); err != nil {
				m.reportFatal(err)
			}
		})
		if err != nil {
			for _, idle := range m.workers[i:] {
				idle.sub.Unsubscribe()
			}
			cancel()
			m.pool.Wait()
			return fatal(StageStartWorkers, err)
		}
	}
	g.Go(func() error { return m.coordinator.run(gctx) })
	g.Go(func() error { return m.status.run(gctx) })
	if m.denyWatcher != nil {
		g.Go(func() error { return m.denyWatcher.run(gctx) })
	}
	g.Go(func() error {
		select {
		case err := <-m.fatalCh:
			return err
		case <-gctx.Done():
			return nil
		}
	})
	m.coordinator.send(RunLaunchProcedure)

	err := g.Wait()
	cancel()
	m.pool.Wait()
	if err != nil {
		var fe *FatalError
		if !errors.As(err, &fe) {
			err = &FatalError{Stage: StageRun, Err: err}
		}
		return err
	}
	return nil
}

func (m *Miner) reportFatal(err error) {
	select {
	case m.fatalCh <- err:
	default:
	}
}

// Close flushes pending candidates and releases every resource. It must
// only be called after Run returned.
func (m *Miner) Close() error {
	var errs []error
	if m.discovery != nil {
		m.discovery.Stop()
	}
	if m.saver != nil {
		errs = append(errs, m.saver.Close())
	}
	if m.journal != nil {
		errs = append(errs, m.journal.Close())
	}
	if m.denyWatcher != nil {
		m.denyWatcher.watcher.Close()
	}
	if m.pool != nil {
		m.pool.Release()
	}
	return errors.Join(errs...)
}
