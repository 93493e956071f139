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

// Package driver runs the per-sink send loop of spec.md §4.9–§4.11: pop an
// item, acquire a limiter permit, send with a deadline, then either ack the
// checkpoint, requeue with backoff, or drop to the dead-letter bucket.
package driver

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/esteban-alvarez/logtrail-agent/internal/metrics"
	"github.com/esteban-alvarez/logtrail-agent/internal/obslog"
	"github.com/esteban-alvarez/logtrail-agent/internal/sender/limiter"
	"github.com/esteban-alvarez/logtrail-agent/internal/sender/queue"
	"github.com/esteban-alvarez/logtrail-agent/internal/sink"
)

// DefaultMaxTries is the default try_count ceiling before an item is moved
// to the dead-letter bucket instead of being requeued again.
const DefaultMaxTries = 8

// DefaultDeadLetterCapacity bounds the in-memory dead-letter bucket.
const DefaultDeadLetterCapacity = 1024

// Acker commits a successful send back to the checkpoint store.
type Acker interface {
	Ack(job, sourcePath string, offset int64) error
}

// DeadLetterEntry is one item the driver gave up retrying.
type DeadLetterEntry struct {
	Item     *queue.Item
	Err      error
	DroppedAt time.Time
}

// Options configures a Driver.
type Options struct {
	Sink              sink.Sink
	Queue             *queue.Queue
	Limiter           *limiter.Limiter
	Acker             Acker
	Alarms            *obslog.AlarmChannel
	Logger            *zap.Logger
	Registry          *metrics.Registry
	MaxTries          int
	DeadLetterCapacity int
	IdleWait          time.Duration
	NewBackOff        func() backoff.BackOff
}

// Driver owns one sink's send loop: a single goroutine pops from Queue,
// acquires a Limiter permit, and sends through Sink, looping until Stop.
type Driver struct {
	sink     sink.Sink
	queue    *queue.Queue
	limiter  *limiter.Limiter
	acker    Acker
	alarms   *obslog.AlarmChannel
	logger   *zap.Logger
	maxTries int
	idleWait time.Duration
	newBackOff func() backoff.BackOff

	sent       *metrics.Counter
	failed     *metrics.Counter
	deadLettered *metrics.Counter

	deadLetter *lru.Cache[string, DeadLetterEntry]

	backoffMu sync.Mutex
	backoffs  map[*queue.Item]backoff.BackOff

	stop chan struct{}
	wg   sync.WaitGroup
}

// New constructs a Driver. A nil Acker means successful sends are not
// acknowledged to any checkpoint store (useful for sinks with no
// associated tailed files, such as synthetic test traffic).
func New(opts Options) *Driver {
	if opts.MaxTries <= 0 {
		opts.MaxTries = DefaultMaxTries
	}
	if opts.DeadLetterCapacity <= 0 {
		opts.DeadLetterCapacity = DefaultDeadLetterCapacity
	}
	if opts.IdleWait <= 0 {
		opts.IdleWait = 50 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		}
	}
	dl, _ := lru.New[string, DeadLetterEntry](opts.DeadLetterCapacity)
	reg := opts.Registry
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	name := opts.Sink.Name()
	return &Driver{
		sink:         opts.Sink,
		queue:        opts.Queue,
		limiter:      opts.Limiter,
		acker:        opts.Acker,
		alarms:       opts.Alarms,
		logger:       opts.Logger,
		maxTries:     opts.MaxTries,
		idleWait:     opts.IdleWait,
		newBackOff:   opts.NewBackOff,
		sent:         reg.Counter(name + ".sent"),
		failed:       reg.Counter(name + ".failed"),
		deadLettered: reg.Counter(name + ".dead_lettered"),
		deadLetter:   dl,
		backoffs:     make(map[*queue.Item]backoff.BackOff),
		stop:         make(chan struct{}),
	}
}

// Start launches the send loop.
func (d *Driver) Start(ctx context.Context) {
	d.wg.Add(1)
	go d.run(ctx)
}

// Stop halts the loop and waits for the in-flight send, if any, to return.
func (d *Driver) Stop() {
	close(d.stop)
	d.wg.Wait()
}

func (d *Driver) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		default:
		}

		if !d.limiter.IsValidToPop() {
			d.sleep(d.idleWait)
			continue
		}
		item, ok := d.queue.Pop()
		if !ok {
			d.sleep(d.idleWait)
			continue
		}
		if !d.limiter.Acquire() {
			d.queue.PushFront(item)
			d.sleep(d.idleWait)
			continue
		}
		d.sendOne(ctx, item)
	}
}

func (d *Driver) sleep(dur time.Duration) {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
	case <-d.stop:
	}
}

func (d *Driver) sendOne(ctx context.Context, item *queue.Item) {
	item.Status = queue.StatusSending
	item.TryCount++
	item.LastSend = time.Now()

	batch := sink.Batch{
		Payload:      item.Payload,
		Job:          item.Sink,
		QueueKey:     item.QueueKey,
		SourcePath:   item.SourcePath,
		SourceOffset: item.SourceOffset,
	}
	err := d.sink.Send(ctx, batch)
	if err == nil {
		d.sent.Inc()
		d.limiter.OnSuccess()
		d.clearBackOff(item)
		if d.acker != nil {
			if ackErr := d.acker.Ack(item.Sink, item.SourcePath, item.SourceOffset); ackErr != nil {
				d.raiseAlarm("ack failed after successful send: " + ackErr.Error())
			}
		}
		return
	}

	d.failed.Inc()
	disposition := d.sink.Classify(err)
	d.limiter.OnFail()

	switch disposition {
	case sink.DispositionPermanent:
		d.dropToDeadLetter(item, err)
		return
	case sink.DispositionRetryable:
		if item.TryCount >= d.maxTries {
			d.dropToDeadLetter(item, err)
			return
		}
		d.requeueWithBackoff(item)
	default:
		d.requeueWithBackoff(item)
	}
}

func (d *Driver) requeueWithBackoff(item *queue.Item) {
	b := d.backOffFor(item)
	delay := b.NextBackOff()
	if delay == backoff.Stop {
		d.dropToDeadLetter(item, nil)
		return
	}
	go func() {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-d.stop:
			return
		}
		item.Status = queue.StatusIdle
		if !d.queue.TryPush(item) {
			d.dropToDeadLetter(item, nil)
		}
	}()
}

func (d *Driver) dropToDeadLetter(item *queue.Item, err error) {
	d.deadLettered.Inc()
	d.clearBackOff(item)
	key := item.QueueKey + "|" + item.SourcePath
	d.deadLetter.Add(key, DeadLetterEntry{Item: item, Err: err, DroppedAt: time.Now()})
	msg := "item dropped to dead letter after exhausting retries"
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	d.raiseAlarm(msg)
}

func (d *Driver) backOffFor(item *queue.Item) backoff.BackOff {
	d.backoffMu.Lock()
	defer d.backoffMu.Unlock()
	b, ok := d.backoffs[item]
	if !ok {
		b = d.newBackOff()
		d.backoffs[item] = b
	}
	return b
}

func (d *Driver) clearBackOff(item *queue.Item) {
	d.backoffMu.Lock()
	defer d.backoffMu.Unlock()
	delete(d.backoffs, item)
}

func (d *Driver) raiseAlarm(message string) {
	if d.alarms == nil {
		return
	}
	d.alarms.Raise(obslog.Alarm{
		Category: obslog.CategorySink,
		Pipeline: d.sink.Name(),
		Key:      "send-failure",
		Message:  message,
	})
}

// DeadLetterEntries returns a snapshot of the currently held dead-letter
// items, for diagnostics.
func (d *Driver) DeadLetterEntries() []DeadLetterEntry {
	keys := d.deadLetter.Keys()
	out := make([]DeadLetterEntry, 0, len(keys))
	for _, k := range keys {
		if v, ok := d.deadLetter.Peek(k); ok {
			out = append(out, v)
		}
	}
	return out
}
