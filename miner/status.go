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
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/cpu"
)

// statusReporter periodically prints one row per worker.
type statusReporter struct {
	workers    []*worker
	state      *sharedState
	syncStatus *syncSnapshot
	interval   time.Duration
	out        io.Writer
	start      time.Time
}

func (r *statusReporter) run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *statusReporter) report() {
	var rounds, saved uint64
	for _, w := range r.workers {
		rounds += w.stats.rounds.Load()
		saved += w.stats.saved.Load()
	}
	elapsed := time.Since(r.start)
	last, status, syncs := r.syncStatus.get()
	ctx := []interface{}{"state", r.state.get(), "rounds", rounds, "saved", saved,
		"rate", fmt.Sprintf("%.1f/s", float64(rounds)/elapsed.Seconds()),
		"syncs", syncs, "lastSync", last.Format(time.RFC3339), "syncStatus", status}
	// Usage since the previous report.
	if load, err := cpu.Percent(0, false); err == nil && len(load) == 1 {
		ctx = append(ctx, "cpu", fmt.Sprintf("%.0f%%", load[0]))
	}
	log.Info("Miner status", ctx...)
	if r.out != nil {
		r.render(r.out)
	}
}

func (r *statusReporter) render(out io.Writer) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Worker", "Epoch", "Rounds", "Confirmed", "Saved"})
	var rounds, confirmed, saved uint64
	for _, w := range r.workers {
		stats := &w.stats
		rounds += stats.rounds.Load()
		confirmed += stats.confirmed.Load()
		saved += stats.saved.Load()
		table.Append([]string{
			strconv.Itoa(w.index),
			strconv.FormatUint(stats.epoch.Load(), 10),
			strconv.FormatUint(stats.rounds.Load(), 10),
			strconv.FormatUint(stats.confirmed.Load(), 10),
			strconv.FormatUint(stats.saved.Load(), 10),
		})
	}
	table.SetFooter([]string{"Total", "", strconv.FormatUint(rounds, 10), strconv.FormatUint(confirmed, 10), strconv.FormatUint(saved, 10)})
	table.Render()
}
