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

package scheduler

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-rendezvous"
	"go.uber.org/zap"
)

func xxhashNode(s string) uint64 { return xxhash.Sum64String(s) }

const (
	defaultTickInterval         = 500 * time.Millisecond
	defaultJitterWindow         = 1 * time.Second
	defaultJitterBuckets        = 20
	defaultMaxExecuteRatio      = 3.0
	defaultContinueExceedCount  = 3
)

// Config configures a Scheduler.
type Config struct {
	Logger              *zap.Logger
	TickInterval        time.Duration // dispatcher wake interval, default ~500ms
	JitterWindow        time.Duration // global jitter window tasks are hash-bucketed into
	JitterBuckets       int
	MaxExecuteRatio     float64 // interval/MaxExecuteRatio is the slow threshold
	ContinueExceedCount int     // consecutive slow runs before demotion
	MaxExecuteTime      time.Duration // default used by the demotion-interval-count formula when a task has none of its own
	MaxWorkers          int           // bounded worker pool size
}

// Scheduler is the single-threaded cooperative dispatcher of spec.md
// §4.8: it wakes on TickInterval, decides which tasks are due, and feeds
// a bounded worker pool.
type Scheduler struct {
	logger              *zap.Logger
	tickInterval        time.Duration
	jitterWindow        time.Duration
	jitterBuckets       int
	maxExecuteRatio     float64
	continueExceedCount int
	defaultMaxExecTime  time.Duration
	hasher              *rendezvous.Rendezvous

	mu    sync.Mutex
	tasks map[string]*Task

	statusMu sync.Mutex
	status   map[string]*Status

	sem  chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

func bucketNodes(n int) []string {
	nodes := make([]string, n)
	for i := 0; i < n; i++ {
		nodes[i] = strconv.Itoa(i)
	}
	return nodes
}

// New constructs a Scheduler. Call Start to begin dispatching.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = defaultTickInterval
	}
	jitter := cfg.JitterWindow
	if jitter <= 0 {
		jitter = defaultJitterWindow
	}
	buckets := cfg.JitterBuckets
	if buckets <= 0 {
		buckets = defaultJitterBuckets
	}
	ratio := cfg.MaxExecuteRatio
	if ratio <= 0 {
		ratio = defaultMaxExecuteRatio
	}
	exceed := cfg.ContinueExceedCount
	if exceed <= 0 {
		exceed = defaultContinueExceedCount
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = 8
	}
	return &Scheduler{
		logger:              logger,
		tickInterval:        tick,
		jitterWindow:        jitter,
		jitterBuckets:       buckets,
		maxExecuteRatio:     ratio,
		continueExceedCount: exceed,
		defaultMaxExecTime:  cfg.MaxExecuteTime,
		hasher:              rendezvous.New(bucketNodes(buckets), xxhashNode),
		tasks:               make(map[string]*Task),
		status:              make(map[string]*Status),
		sem:                 make(chan struct{}, workers),
		stop:                make(chan struct{}),
	}
}

// AddTask registers t, initializing its scheduling state to run on its
// next due tick (one interval from now).
func (s *Scheduler) AddTask(t *Task) error {
	if t.Interval <= 0 {
		return fmt.Errorf("scheduler: task %q has a non-positive interval", t.Name)
	}
	t.lastBegin = time.Now()
	s.mu.Lock()
	s.tasks[t.Name] = t
	s.mu.Unlock()
	s.statusMu.Lock()
	s.status[t.Name] = &Status{Name: t.Name}
	s.statusMu.Unlock()
	return nil
}

// RemoveTask unregisters a task; an in-flight run (if any) completes but
// is not replaced.
func (s *Scheduler) RemoveTask(name string) {
	s.mu.Lock()
	delete(s.tasks, name)
	s.mu.Unlock()
	s.statusMu.Lock()
	delete(s.status, name)
	s.statusMu.Unlock()
}

// Start launches the dispatcher loop in its own goroutine and returns at
// once; the loop runs until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.dispatchLoop(ctx)
}

// Stop halts the dispatcher and waits for in-flight task runs to drain.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	due := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if run, skipped := s.dueAction(t, now); run {
			if skipped > 0 {
				s.recordSkip(t.Name, skipped)
			}
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		s.dispatch(ctx, t)
	}
}

// dueAction computes whether t should run now, per spec.md §4.8's
// due-time computation, time-window gating, and force-skip demotion.
func (s *Scheduler) dueAction(t *Task, now time.Time) (run bool, skippedIntervals int) {
	if t.forceSkipRemain > 0 {
		t.forceSkipRemain--
		t.lastBegin = now
		return false, 0
	}
	if t.Window != nil && !t.Window.In(now) {
		// Fast-forward so the task resumes promptly when the window opens,
		// without backfilling the intervals skipped while it was closed.
		t.lastBegin = now
		return false, 0
	}

	jitter := s.jitterOffset(t.Name)
	anchor := t.lastBegin.Add(jitter)
	due := anchor.Add(t.Interval)
	if now.Before(due) {
		return false, 0
	}
	n := int(now.Sub(anchor) / t.Interval)
	if n < 1 {
		n = 1
	}
	t.lastBegin = t.lastBegin.Add(time.Duration(n) * t.Interval)
	return true, n - 1
}

// jitterOffset deterministically hash-buckets name into the jitter
// window, so tasks sharing an interval are spread rather than stampeding
// together, without persisting any assignment across restarts.
func (s *Scheduler) jitterOffset(name string) time.Duration {
	bucket := s.hasher.Lookup(name)
	idx, err := strconv.Atoi(bucket)
	if err != nil {
		return 0
	}
	slot := s.jitterWindow / time.Duration(s.jitterBuckets)
	return time.Duration(idx) * slot
}

func (s *Scheduler) dispatch(ctx context.Context, t *Task) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return
	case <-s.stop:
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.sem }()
		s.runOnce(ctx, t)
	}()
}

func (s *Scheduler) runOnce(ctx context.Context, t *Task) {
	start := time.Now()
	err := t.Run(ctx)
	elapsed := time.Since(start)
	t.lastExecuteTime = elapsed
	s.applySlowness(t, elapsed)

	if err != nil {
		s.logger.Warn("scheduled task failed", zap.String("task", t.Name), zap.Error(err))
		s.recordError(t.Name)
		return
	}
	s.recordSuccess(t.Name, elapsed)
}

// applySlowness implements spec.md §4.8 "Slowness demotion."
func (s *Scheduler) applySlowness(t *Task, elapsed time.Duration) {
	threshold := time.Duration(float64(t.Interval) / s.maxExecuteRatio)
	if elapsed <= threshold {
		t.slowStreak = 0
		return
	}
	t.slowStreak++
	if t.slowStreak < s.continueExceedCount {
		return
	}
	maxExecTime := s.defaultMaxExecTime
	if maxExecTime <= 0 {
		maxExecTime = threshold
	}
	t.forceSkipRemain = int(math.Ceil(float64(elapsed) / float64(maxExecTime)))
	t.slowStreak = 0
}

func (s *Scheduler) recordSuccess(name string, elapsed time.Duration) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st, ok := s.status[name]; ok {
		st.SuccessN++
		st.LastExecute = elapsed
	}
}

func (s *Scheduler) recordError(name string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st, ok := s.status[name]; ok {
		st.ErrorN++
	}
}

func (s *Scheduler) recordSkip(name string, n int) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st, ok := s.status[name]; ok {
		st.SkipN += n
	}
}

// StatusSnapshot returns a copy of every task's counters and resets them,
// implementing spec.md §4.8 "Status export" ("a periodic metric
// summarising per-task success/error/skip counts since the last
// export").
func (s *Scheduler) StatusSnapshot() []Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	out := make([]Status, 0, len(s.status))
	for _, st := range s.status {
		out = append(out, *st)
		st.SuccessN, st.ErrorN, st.SkipN = 0, 0, 0
	}
	return out
}
