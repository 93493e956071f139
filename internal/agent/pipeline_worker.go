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

package agent

import (
	"sync"

	"github.com/esteban-alvarez/logtrail-agent/internal/metrics"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/aggregator"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/processor"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/router"
	"github.com/esteban-alvarez/logtrail-agent/internal/sender/queue"
	"github.com/esteban-alvarez/logtrail-agent/internal/splitter"
	"github.com/esteban-alvarez/logtrail-agent/internal/tailer"
)

// pipelineWorker bridges one input's tailed byte ranges into the parsing
// pipeline and router, implementing tailer.Sink. A worker owns no
// goroutine of its own: Accept runs synchronously on the calling
// Reader's loop, matching spec.md §5's single-goroutine-per-file model
// up through parsing.
type pipelineWorker struct {
	job    string
	scheme processor.TagScheme
	split  *splitter.Splitter
	pipe   *pipeline.Pipeline
	agg    aggregator.Aggregator
	route  *router.Router
	queues []*queue.Queue // indexed the same as route's sink indices
	tags   map[string]string

	recordsRead    *metrics.Counter
	recordsDropped *metrics.Counter
	recordsRouted  *metrics.Counter

	mu   sync.Mutex
	held map[string][]byte
}

func newPipelineWorker(job string, scheme processor.TagScheme, split *splitter.Splitter, pipe *pipeline.Pipeline, agg aggregator.Aggregator, route *router.Router, queues []*queue.Queue, tags map[string]string, reg *metrics.Registry) *pipelineWorker {
	if agg == nil {
		agg = aggregator.NewIdentity()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &pipelineWorker{
		job:            job,
		scheme:         scheme,
		split:          split,
		pipe:           pipe,
		agg:            agg,
		route:          route,
		queues:         queues,
		tags:           tags,
		recordsRead:    reg.Counter(job + ".records_read"),
		recordsDropped: reg.Counter(job + ".records_dropped"),
		recordsRouted:  reg.Counter(job + ".records_routed"),
		held:           make(map[string][]byte),
	}
}

// Accept implements tailer.Sink. It is deliberately simple about
// straddling a queue-full condition: on back-pressure the records
// already split out of this tick's bytes are not re-delivered (the
// Reader does not advance its offset, but the bytes already consumed
// into a Group here are not replayed) — a known simplification recorded
// in DESIGN.md, acceptable because back-pressure is expected to be rare
// and short-lived given the bounded per-sink queues upstream.
func (w *pipelineWorker) Accept(r tailer.Range) (backpressure bool) {
	w.mu.Lock()
	prevHeld := w.held[r.Path]
	data := r.Data
	baseOffset := r.FileOffset
	if len(prevHeld) > 0 {
		data = append(append([]byte(nil), prevHeld...), r.Data...)
		baseOffset = r.FileOffset - int64(len(prevHeld))
	}
	w.mu.Unlock()

	records, held := w.split.Split(data, baseOffset, false)

	w.mu.Lock()
	if len(held) > 0 {
		w.held[r.Path] = held
	} else {
		delete(w.held, r.Path)
	}
	w.mu.Unlock()

	full := false
	for _, rec := range records {
		g := event.NewGroup(event.KindLog)
		for k, v := range w.tags {
			g.Tags[k] = v
		}
		processor.SetSemanticTag(g.Tags, w.scheme, processor.TagFilePath, r.Path)
		ev := event.Event{RawOffset: rec.Offset}
		ev.Set("content", string(rec.Data))
		g.Events = append(g.Events, ev)
		w.recordsRead.Inc()

		w.pipe.Process(g)
		if len(g.Events) == 0 {
			w.recordsDropped.Inc()
			continue
		}
		for _, ready := range w.agg.Add(g) {
			w.routeAndEnqueue(ready, r.Path, rec.Offset+int64(len(rec.Data)), &full)
		}
	}
	return full
}

func (w *pipelineWorker) routeAndEnqueue(g *event.Group, path string, ackOffset int64, full *bool) {
	for _, idx := range w.route.Route(g) {
		if idx < 0 || idx >= len(w.queues) {
			continue
		}
		payload := make([]byte, 0, len(g.Events)*64)
		for _, e := range g.Events {
			if v, ok := e.Get("content"); ok {
				payload = append(payload, v...)
				payload = append(payload, '\n')
			}
		}
		item := &queue.Item{
			Payload:      payload,
			QueueKey:     path,
			Sink:         w.job,
			SourcePath:   path,
			SourceOffset: ackOffset,
		}
		if !w.queues[idx].TryPush(item) {
			*full = true
			continue
		}
		w.recordsRouted.Inc()
	}
}
