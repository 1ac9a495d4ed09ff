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
	"fmt"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/seqmine/seqmine/analytics"
	"github.com/seqmine/seqmine/core/programs"
	"github.com/seqmine/seqmine/miner/funnel"
	"github.com/seqmine/seqmine/miner/genome"
	"github.com/seqmine/seqmine/miner/minerconfig"
	"github.com/seqmine/seqmine/oeis"
)

// WorkerPoolName is the name the coordinator broadcasts bundles to.
const WorkerPoolName = "miner_worker"

// AnalyticsBundle is everything a worker needs for one epoch. It is never
// modified after it has been published; the next epoch replaces it.
type AnalyticsBundle struct {
	Epoch           uint64
	Funnel          *funnel.Funnel
	MutateContext   *genome.GenomeMutateContext
	Index           *oeis.TermsToProgramIdSet
	PreventFlooding *PreventFlooding
	DontMine        mapset.Set[uint32] // Solved or denied sequences, never saved again
	Loader          *programs.DependencyLoader
}

// skip reports whether a confirmed id must not be saved.
func (b *AnalyticsBundle) skip(id uint32) bool {
	return b.DontMine != nil && b.DontMine.Contains(id)
}

// workerGroup delivers bundles to every subscribed worker.
type workerGroup struct {
	name    string
	feed    event.Feed
	members atomic.Int32
}

func newWorkerGroup(name string) *workerGroup {
	return &workerGroup{name: name}
}

// subscribe registers a worker. The subscription must be released when the
// worker exits, otherwise broadcasts wait for it.
func (g *workerGroup) subscribe(ch chan<- *AnalyticsBundle) event.Subscription {
	g.members.Add(1)
	sub := g.feed.Subscribe(ch)
	return &groupSubscription{Subscription: sub, group: g}
}

// broadcast blocks until every worker accepted the bundle.
func (g *workerGroup) broadcast(bundle *AnalyticsBundle) error {
	want := int(g.members.Load())
	sent := g.feed.Send(bundle)
	if sent < want {
		return fmt.Errorf("%w: %s delivered %d of %d", errBroadcastPartial, g.name, sent, want)
	}
	log.Info("Broadcast analytics bundle", "distributor", g.name, "epoch", bundle.Epoch, "workers", sent)
	return nil
}

type groupSubscription struct {
	event.Subscription
	group *workerGroup
	done  atomic.Bool
}

func (s *groupSubscription) Unsubscribe() {
	if s.done.CompareAndSwap(false, true) {
		s.group.members.Add(-1)
	}
	s.Subscription.Unsubscribe()
}

// bundleBuilder assembles a new AnalyticsBundle from the files on disk. The
// prevent flooding tracker is loaded from the journal once and shared by all
// epochs.
type bundleBuilder struct {
	config   *minerconfig.Config
	journal  *CandidateJournal
	flooding *PreventFlooding
	epoch    uint64
}

// build follows the launch order: prevent flooding, terms index, funnel,
// then the mutate context.
func (b *bundleBuilder) build() (*AnalyticsBundle, error) {
	var (
		config       = b.config
		funnelConfig = config.FunnelSettings()
		vmConfig     = config.VMSettings()
	)
	if b.flooding == nil {
		window := minerconfig.DefaultConfig.PreventFloodingWindow
		if config.PreventFloodingWindow != nil {
			window = config.PreventFloodingWindow
		}
		flooding, err := loadPreventFlooding(b.journal, *window)
		if err != nil {
			return nil, fatal(StagePreventFlooding, err)
		}
		b.flooding = flooding
		log.Info("Populated prevent flooding", "fingerprints", flooding.Len())
	} else {
		log.Debug("Pruned prevent flooding", "fingerprints", b.flooding.Prune())
	}

	deny, err := analytics.LoadDenyFile(config.DenyFile)
	if err != nil {
		return nil, fatal(StageTermsIndex, err)
	}
	index, err := oeis.LoadTermsToProgramIdSet(config.StrippedFile, oeis.LoadConfig{
		PrefixLength: funnelConfig.MinimumTerms,
		TermCount:    funnelConfig.TermCount,
		MinimumTerms: funnelConfig.MinimumTerms,
		Wildcard:     funnelConfig.Wildcard(),
		Deny:         deny,
	})
	if err != nil {
		return nil, fatal(StageTermsIndex, err)
	}

	matcher, err := funnel.New(funnelConfig, index)
	if err != nil {
		return nil, fatal(StageFunnel, err)
	}

	snapshot, err := analytics.Load(config.AnalyticsDir)
	if err != nil {
		return nil, fatal(StageMutateContext, err)
	}
	loader := programs.NewDependencyLoader(programs.NewRepository(config.RepositoryDir), vmConfig.MaxRegisters, 0)
	contextConfig := genome.ContextConfig{
		Analytics: snapshot,
		Source:    loader,
	}
	if config.RegisterCeiling != nil {
		contextConfig.RegisterCeiling = *config.RegisterCeiling
	}
	if config.MutateAttempts != nil {
		contextConfig.MutateAttempts = *config.MutateAttempts
	}
	mutateContext := genome.NewGenomeMutateContext(contextConfig)

	b.epoch++
	return &AnalyticsBundle{
		Epoch:           b.epoch,
		Funnel:          matcher,
		MutateContext:   mutateContext,
		Index:           index,
		PreventFlooding: b.flooding,
		DontMine:        snapshot.DontMine.Union(deny),
		Loader:          loader,
	}, nil
}
