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

package miner

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/seqmine/seqmine/core/vm"
	mlog "github.com/seqmine/seqmine/log"
	"github.com/seqmine/seqmine/miner/funnel"
	"github.com/seqmine/seqmine/miner/genome"
)

// idleWait is how long a worker sleeps while it has nothing to mine.
const idleWait = 200 * time.Millisecond

// workerStats are the per worker counters shown in the status table.
type workerStats struct {
	rounds    atomic.Uint64
	confirmed atomic.Uint64
	saved     atomic.Uint64
	epoch     atomic.Uint64
}

// worker runs mining rounds on its own random source. It only touches
// shared state through the bundle, the worker state and the saver.
type worker struct {
	index    int
	rng      *rand.Rand
	ch       chan *AnalyticsBundle
	sub      event.Subscription
	state    *sharedState
	saver    *CandidateSaver
	tried    *fastcache.Cache
	vmConfig vm.Config
	bundle   *AnalyticsBundle
	stats    workerStats

	loadFailures *mlog.EveryN
	rateLimited  *mlog.EveryN
}

func newWorker(index int, seed int64, group *workerGroup, state *sharedState, saver *CandidateSaver, tried *fastcache.Cache, vmConfig vm.Config) *worker {
	w := &worker{
		index:        index,
		rng:          rand.New(rand.NewSource(seed + int64(index))),
		ch:           make(chan *AnalyticsBundle, 1),
		state:        state,
		saver:        saver,
		tried:        tried,
		vmConfig:     vmConfig,
		loadFailures: &mlog.EveryN{N: 1000},
		rateLimited:  &mlog.EveryN{N: 100},
	}
	w.sub = group.subscribe(w.ch)
	return w
}

// loop mines until ctx is cancelled or a candidate cannot be persisted.
func (w *worker) loop(ctx context.Context) error {
	defer w.sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return nil
		case bundle := <-w.ch:
			w.adopt(bundle)
		default:
		}
		if w.bundle == nil || w.state.get() != Mining {
			select {
			case <-ctx.Done():
				return nil
			case bundle := <-w.ch:
				w.adopt(bundle)
			case <-time.After(idleWait):
			}
			continue
		}
		if err := w.round(); err != nil {
			return err
		}
	}
}

func (w *worker) adopt(bundle *AnalyticsBundle) {
	w.bundle = bundle
	w.stats.epoch.Store(bundle.Epoch)
	log.Debug("Worker adopted analytics bundle", "worker", w.index, "epoch", bundle.Epoch)
}

// round draws a seed, mutates it and checks the result. Only persistence
// failures are returned; everything else just ends the round.
func (w *worker) round() error {
	var (
		bundle = w.bundle
		ctx    = bundle.MutateContext
	)
	w.stats.rounds.Add(1)
	roundMeter.Mark(1)

	seed, ok := ctx.ChooseSeedProgram(w.rng)
	if !ok {
		noSeedCounter.Inc(1)
		return nil
	}
	parent, err := ctx.LoadGenome(seed)
	if err != nil {
		mlog.DebugBy(w.loadFailures, "Failed to load seed genome", "id", seed, "err", err)
		return nil
	}
	child, ok := parent.Mutate(w.rng, ctx)
	if !ok {
		mutateFailedCounter.Inc(1)
		return nil
	}
	text := child.String()
	if w.tried.Has([]byte(text)) {
		duplicateCounter.Inc(1)
		return nil
	}
	w.tried.Set([]byte(text), nil)

	runner := vm.NewProgramRunner(child.Program(), w.vmConfig)
	outcome := bundle.Funnel.Check(runner.Terms())
	if outcome.Stage != funnel.Confirmed {
		return nil
	}
	w.stats.confirmed.Add(1)

	var ids []uint32
	for _, id := range outcome.IDs {
		if !bundle.skip(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		dontMineCounter.Inc(1)
		return nil
	}
	fingerprint := Fingerprint(outcome.Terms)
	if !bundle.PreventFlooding.TryRegister(fingerprint) {
		floodingCounter.Inc(1)
		return nil
	}
	path, err := w.saver.Save(newCandidate(child, outcome, ids, fingerprint))
	if errors.Is(err, errRateLimited) {
		bundle.PreventFlooding.Unregister(fingerprint)
		rateLimitedCounter.Inc(1)
		mlog.WarnBy(w.rateLimited, "Dropping candidates, save rate limit reached", "ids", formatIDs(ids), "worker", w.index)
		return nil
	}
	if err != nil {
		bundle.PreventFlooding.Unregister(fingerprint)
		return fatal(StageSaveCandidate, err)
	}
	w.stats.saved.Add(1)
	savedCounter.Inc(1)
	log.Info("Saved candidate", "ids", formatIDs(ids), "seed", seed, "worker", w.index, "file", path)
	return nil
}

// newCandidate describes a confirmed child for the saver. Instructions that
// never reach the output are left out of the saved program.
func newCandidate(child *genome.Genome, outcome funnel.Outcome, ids []uint32, fingerprint uint64) *Candidate {
	return &Candidate{
		Program:     child.Program().EliminateDeadCode().String(),
		IDs:         ids,
		TermCount:   outcome.TermCount,
		Terms:       outcome.Terms,
		Fingerprint: fingerprint,
		Mutations:   child.MutationLog(),
	}
}
