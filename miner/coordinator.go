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
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/seqmine/seqmine/analytics"
)

// Message is a request handled by the coordinator.
type Message int

const (
	// RunLaunchProcedure syncs, refreshes analytics, broadcasts a new bundle
	// and switches the workers to mining.
	RunLaunchProcedure Message = iota
	// RegenerateAnalytics syncs and broadcasts a new bundle only if the
	// analytics were regenerated.
	RegenerateAnalytics
)

func (m Message) String() string {
	if m == RunLaunchProcedure {
		return "run launch procedure"
	}
	return "regenerate analytics"
}

// analyticsRunner is the part of analytics.Analytics used by the coordinator.
type analyticsRunner interface {
	RunForce() error
	RunIfExpired() (bool, error)
}

var _ analyticsRunner = (*analytics.Analytics)(nil)

// coordinator owns the refresh cycle. It is the only writer of the shared
// worker state and the only producer of bundles.
type coordinator struct {
	syncer       Syncer
	analytics    analyticsRunner
	builder      bundleBuilder
	group        *workerGroup
	state        *sharedState
	syncStatus   *syncSnapshot
	pollTimeout  time.Duration
	syncInterval time.Duration

	msgCh    chan Message
	nextSync time.Time
	now      func() time.Time
}

// send queues a message without blocking. It reports false if the queue is
// full, in which case an equivalent request is already pending.
func (c *coordinator) send(msg Message) bool {
	select {
	case c.msgCh <- msg:
		return true
	default:
		return false
	}
}

// run handles messages until ctx is cancelled. A poll timeout is normal and
// is used to start the periodic sync once mining.
func (c *coordinator) run(ctx context.Context) error {
	timer := time.NewTimer(c.pollTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-c.msgCh:
			log.Info("Coordinator received message", "message", msg)
			if err := c.handle(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		case <-timer.C:
			log.Debug("Coordinator poll timeout", "state", c.state.get())
			if c.state.get() == Mining && !c.now().Before(c.nextSync) {
				if err := c.handle(ctx, RegenerateAnalytics); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(c.pollTimeout)
	}
}

func (c *coordinator) handle(ctx context.Context, msg Message) error {
	previous := c.state.get()
	c.state.set(Syncing)

	start := time.Now()
	status, err := c.syncer.Sync(ctx)
	if err != nil {
		return fatal(StageSync, err)
	}
	syncTimer.UpdateSince(start)
	c.syncStatus.record(c.now(), status)
	c.nextSync = c.now().Add(c.syncInterval)

	regenerated := true
	if status == SyncChanged {
		err = c.analytics.RunForce()
	} else {
		regenerated, err = c.analytics.RunIfExpired()
	}
	if err != nil {
		return fatal(StageAnalytics, err)
	}

	if msg == RunLaunchProcedure || regenerated {
		if err := c.refresh(); err != nil {
			return err
		}
	}
	if msg == RunLaunchProcedure {
		c.state.set(Mining)
		log.Info("Launch procedure complete, mining")
	} else {
		c.state.set(previous)
	}
	return nil
}

// refresh builds a new bundle and hands it to every worker.
func (c *coordinator) refresh() error {
	start := time.Now()
	bundle, err := c.builder.build()
	if err != nil {
		return err
	}
	if err := c.group.broadcast(bundle); err != nil {
		return fatal(StageBroadcast, err)
	}
	refreshTimer.UpdateSince(start)
	epochGauge.Update(int64(bundle.Epoch))
	floodingSizeGauge.Update(int64(bundle.PreventFlooding.Len()))
	return nil
}
