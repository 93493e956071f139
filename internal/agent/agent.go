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

// Package agent wires the agent's components — discovery, tailing,
// splitting, the parsing pipeline, routing, and the sender subsystem —
// into one running process, and owns their start/stop lifecycle.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/esteban-alvarez/logtrail-agent/internal/checkpoint"
	"github.com/esteban-alvarez/logtrail-agent/internal/config"
	"github.com/esteban-alvarez/logtrail-agent/internal/discovery"
	"github.com/esteban-alvarez/logtrail-agent/internal/fsevents"
	"github.com/esteban-alvarez/logtrail-agent/internal/metrics"
	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/processor"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/router"
	"github.com/esteban-alvarez/logtrail-agent/internal/scheduler"
	"github.com/esteban-alvarez/logtrail-agent/internal/sender/driver"
	"github.com/esteban-alvarez/logtrail-agent/internal/sender/limiter"
	"github.com/esteban-alvarez/logtrail-agent/internal/sender/queue"
	"github.com/esteban-alvarez/logtrail-agent/internal/splitter"
	"github.com/esteban-alvarez/logtrail-agent/internal/tailer"
)

const defaultQueueCapacity = 4096

// Agent is the root object for one running instance: one checkpoint
// store, one dumper, one scheduler dispatching every tailer's read
// cycles (spec.md §2/§5), one discovery matcher plus file-system watcher
// maintaining the live tailed set continuously (§4.3), and one driver
// per configured flusher.
type Agent struct {
	logger *zap.Logger
	alarms *obslog.AlarmChannel
	store  checkpoint.Store
	dumper *checkpoint.Dumper
	acker  *checkpointAcker
	reg    *metrics.Registry
	sched  *scheduler.Scheduler

	matcher   *discovery.Matcher
	watcher   *fsevents.Watcher
	watchDirs map[string]struct{}
	workers   map[string]tailer.Sink // input name -> pipelineWorker

	mu          sync.Mutex
	tailedPaths map[string]struct{} // job+"|"+path, already-started readers

	readers  []*tailer.Reader
	queues   map[string]*queue.Queue
	limiters map[string]*limiter.Limiter
	drivers  []*driver.Driver
}

// New constructs an Agent from cfg but does not start anything. store
// and logger are constructed by the caller (cmd/logtrail-agent) so tests
// can substitute a checkpoint.MemStore and a development logger.
func New(cfg *config.Pipeline, store checkpoint.Store, logger *zap.Logger) (*Agent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	alarms := obslog.NewAlarmChannel(logger, 30*time.Second, nil)
	reg := metrics.NewRegistry()
	matcher := discovery.NewMatcher(logger, cfg.Global.AllowRootDir, cfg.Global.AllowMultiConfig)
	a := &Agent{
		logger:      logger,
		alarms:      alarms,
		store:       store,
		dumper:      checkpoint.NewDumper(store, 0, logger),
		acker:       newCheckpointAcker(store),
		reg:         reg,
		sched:       scheduler.New(scheduler.Config{Logger: logger}),
		matcher:     matcher,
		watchDirs:   make(map[string]struct{}),
		workers:     make(map[string]tailer.Sink),
		tailedPaths: make(map[string]struct{}),
		queues:      make(map[string]*queue.Queue),
		limiters:    make(map[string]*limiter.Limiter),
	}

	watcher, err := fsevents.New(logger, alarms, matcher.Rescan)
	if err != nil {
		return nil, fmt.Errorf("agent: starting file-system watcher: %w", err)
	}
	a.watcher = watcher

	scheme := processor.SchemeLegacy
	if cfg.Global.TagScheme == "modern" {
		scheme = processor.SchemeModern
	}

	if err := a.buildSenders(cfg, alarms); err != nil {
		return nil, err
	}
	if err := a.buildInputs(cfg, scheme, alarms); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Agent) buildSenders(cfg *config.Pipeline, alarms *obslog.AlarmChannel) error {
	for _, f := range cfg.Flushers {
		s, err := buildSink(f)
		if err != nil {
			return err
		}
		cap := f.QueueCapacity
		if cap <= 0 {
			cap = defaultQueueCapacity
		}
		q := queue.New(cap)
		lim := limiter.New(limiter.Config{
			MaxAllowed:           f.MaxAllowed,
			MinRetryInterval:     parseDurationOr(f.MinRetryInterval, 0),
			MaxRetryInterval:     parseDurationOr(f.MaxRetryInterval, 0),
			ConcurrencyDownRatio: f.ConcurrencyDownRatio,
			RetryIntervalUpRatio: f.RetryIntervalUpRatio,
		})
		a.queues[f.Name] = q
		a.limiters[f.Name] = lim
		d := driver.New(driver.Options{
			Sink:     s,
			Queue:    q,
			Limiter:  lim,
			Acker:    a.acker,
			Alarms:   alarms,
			Logger:   a.logger,
			Registry: a.reg,
		})
		a.drivers = append(a.drivers, d)
	}
	return nil
}

func (a *Agent) buildInputs(cfg *config.Pipeline, scheme processor.TagScheme, alarms *obslog.AlarmChannel) error {
	flusherIndex := make(map[string]int, len(cfg.Flushers))
	for i, f := range cfg.Flushers {
		flusherIndex[f.Name] = i
	}

	var rows []router.Row
	if len(cfg.Route) == 0 {
		for i := range cfg.Flushers {
			rows = append(rows, router.Row{SinkIndex: i, Predicate: router.PredicateAlways})
		}
	} else {
		for _, r := range cfg.Route {
			idx, ok := flusherIndex[r.Flusher]
			if !ok {
				return fmt.Errorf("agent: route references unknown flusher %q", r.Flusher)
			}
			row := router.Row{SinkIndex: idx, TagKey: r.TagKey, TagValue: r.TagValue}
			switch r.Predicate {
			case "event_type":
				row.Predicate = router.PredicateEventType
			case "tag":
				row.Predicate = router.PredicateTag
			default:
				row.Predicate = router.PredicateAlways
			}
			rows = append(rows, row)
		}
	}
	rt := router.New(rows)

	queuesInOrder := make([]*queue.Queue, len(cfg.Flushers))
	for i, f := range cfg.Flushers {
		queuesInOrder[i] = a.queues[f.Name]
	}

	for _, in := range cfg.Inputs {
		procs := make([]processor.Processor, 0, len(cfg.Processors))
		for _, pc := range cfg.Processors {
			p, err := buildProcessor(pc, scheme, in.Name, alarms)
			if err != nil {
				return err
			}
			procs = append(procs, p)
		}
		pipe, err := pipeline.New(in.Name, procs)
		if err != nil {
			return err
		}
		agg, err := buildAggregator(cfg.Aggregators)
		if err != nil {
			return err
		}

		mode := splitter.ModeWholeLine
		switch in.SplitMode {
		case "begin_pattern":
			mode = splitter.ModeBeginPattern
		case "json":
			mode = splitter.ModeJSON
		}
		split, err := splitter.New(splitter.Config{
			Mode:           mode,
			BeginPattern:   in.BeginPattern,
			DiscardUnmatch: in.DiscardUnmatch,
			Pipeline:       in.Name,
			Alarms:         alarms,
		})
		if err != nil {
			return err
		}

		worker := newPipelineWorker(in.Name, scheme, split, pipe, agg, rt, queuesInOrder, in.Tags, a.reg)
		a.workers[in.Name] = worker

		bl := discovery.Blacklist{}
		specs := make([]discovery.GlobSpec, 0, len(in.Paths))
		for _, raw := range in.Paths {
			specs = append(specs, discovery.ParseGlobSpec(raw, in.MaxDepth))
		}
		if err := a.matcher.AddConfig(in.Name, specs, bl); err != nil {
			return fmt.Errorf("agent: input %q: %w", in.Name, err)
		}

		for _, spec := range specs {
			paths, err := discovery.Scan(spec, bl)
			if err != nil {
				return fmt.Errorf("agent: input %q: scan %q: %w", in.Name, spec.Raw, err)
			}
			for _, p := range paths {
				owner, _ := a.matcher.Consider(p)
				if owner != in.Name && !cfg.Global.AllowMultiConfig {
					continue
				}
				if err := a.startReader(in.Name, p, worker); err != nil {
					a.logger.Warn("failed to start tailer", zap.String("path", p), zap.Error(err))
				}
			}
			if spec.StaticPrefix != "" {
				a.watchDirs[spec.StaticPrefix] = struct{}{}
			}
		}
	}
	return nil
}

// startWatching registers every static-prefix directory collected during
// buildInputs with the file-system watcher, so files created after process
// start are discovered without waiting on the next scheduled rescan.
func (a *Agent) startWatching() {
	for dir := range a.watchDirs {
		if _, err := a.watcher.Add(dir); err != nil {
			a.logger.Warn("failed to watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}
}

// reconcile is the continuous discovery loop (spec.md §4.3): every
// create/move-to event is matched against the registered configs, and a new
// reader is started the first time a path is claimed by one of them.
func (a *Agent) reconcile(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.watcher.Events():
			if !ok {
				return
			}
			if ev.IsDir || (ev.Kind != fsevents.KindCreate && ev.Kind != fsevents.KindMoveTo) {
				continue
			}
			a.considerPath(ev.Path())
		}
	}
}

func (a *Agent) considerPath(path string) {
	owner, matched := a.matcher.Consider(path)
	if !matched {
		return
	}
	worker, ok := a.workers[owner]
	if !ok {
		return
	}
	key := owner + "|" + path
	a.mu.Lock()
	if _, already := a.tailedPaths[key]; already {
		a.mu.Unlock()
		return
	}
	a.tailedPaths[key] = struct{}{}
	a.mu.Unlock()

	if err := a.startReader(owner, path, worker); err != nil {
		a.logger.Warn("failed to start tailer for discovered file", zap.String("path", path), zap.Error(err))
	}
}

func (a *Agent) startReader(job, path string, sink tailer.Sink) error {
	a.mu.Lock()
	a.tailedPaths[job+"|"+path] = struct{}{}
	a.mu.Unlock()

	cp, err := a.store.CreateFileCheckpoint(job, path)
	if err != nil {
		return err
	}
	r := tailer.New(tailer.Config{
		Job:       job,
		Path:      path,
		Store:     a.store,
		Sink:      sink,
		Logger:    a.logger,
		Alarms:    a.alarms,
		Scheduler: a.sched,
	})
	if err := r.Start(cp.Fingerprint, cp.AckedOffset); err != nil {
		return err
	}
	a.acker.trackFingerprint(job, path, cp.Fingerprint)
	a.readers = append(a.readers, r)
	return nil
}

// Start launches the scheduler, the file-system watcher and its
// reconciliation loop, the dumper, and every configured sender driver.
// Tailers are registered with the scheduler by the time New returns
// (spec.md §2/§5: control flows top-down from the Scheduler into Tailing
// Readers), but their read cycles only begin firing once the scheduler
// itself starts dispatching here. Directories collected during
// buildInputs are only watched from this point on; a file created
// between the initial scan inside New and this call is seen by neither
// the scan nor the watcher.
func (a *Agent) Start(ctx context.Context) {
	a.sched.Start(ctx)
	a.startWatching()
	go a.watcher.Run(ctx)
	go a.reconcile(ctx)
	a.dumper.Start()
	for _, d := range a.drivers {
		d.Start(ctx)
	}
}

// Stop halts every component in this order: the watcher first
// (so reconcile sees no more events), then readers (so no more items are
// queued), then the scheduler, then drivers (drain in-flight sends),
// then the dumper (force a final checkpoint dump).
func (a *Agent) Stop(ctx context.Context) {
	a.watcher.Close()
	for _, r := range a.readers {
		r.Stop()
	}
	a.sched.Stop()
	for _, d := range a.drivers {
		d.Stop()
	}
	a.dumper.Stop(ctx)
}

// Registry exposes the agent's metrics registry for the self-observability
// HTTP server.
func (a *Agent) Registry() *metrics.Registry { return a.reg }
