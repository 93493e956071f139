// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package checkpoint

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDumpInterval is the fixed cadence at which Dumper forces a Dump,
// per spec.md §4.1 ("default ~ every 15s").
const DefaultDumpInterval = 15 * time.Second

// Dumper periodically calls Store.Dump on a fixed cadence, and additionally
// forces a dump before shutdown and immediately after a job reaches a
// terminal state (see ForceDump).
type Dumper struct {
	store    Store
	interval time.Duration
	logger   *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewDumper constructs a Dumper. A non-positive interval defaults to
// DefaultDumpInterval.
func NewDumper(store Store, interval time.Duration, logger *zap.Logger) *Dumper {
	if interval <= 0 {
		interval = DefaultDumpInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dumper{store: store, interval: interval, logger: logger, stop: make(chan struct{})}
}

// Start launches the background dump loop.
func (d *Dumper) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop halts the loop and forces a final dump before returning.
func (d *Dumper) Stop(ctx context.Context) {
	d.once.Do(func() { close(d.stop) })
	d.wg.Wait()
	d.ForceDump(ctx)
}

// ForceDump dumps immediately, outside the periodic cadence. Callers use
// this right after a job transitions to a terminal state, per §4.1.
func (d *Dumper) ForceDump(ctx context.Context) {
	if err := d.store.Dump(ctx); err != nil {
		d.logger.Error("forced checkpoint dump failed", zap.Error(err))
	}
}

func (d *Dumper) run() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), d.interval)
			if err := d.store.Dump(ctx); err != nil {
				d.logger.Error("periodic checkpoint dump failed", zap.Error(err))
			}
			cancel()
		case <-d.stop:
			return
		}
	}
}
