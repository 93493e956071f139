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
	"testing"

	"github.com/esteban-alvarez/logtrail-agent/internal/metrics"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/aggregator"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/processor"
	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/router"
	"github.com/esteban-alvarez/logtrail-agent/internal/sender/queue"
	"github.com/esteban-alvarez/logtrail-agent/internal/splitter"
	"github.com/esteban-alvarez/logtrail-agent/internal/tailer"
)

func newTestWorker(t *testing.T, q *queue.Queue) *pipelineWorker {
	t.Helper()
	split, err := splitter.New(splitter.Config{Mode: splitter.ModeWholeLine})
	if err != nil {
		t.Fatalf("splitter.New: %v", err)
	}
	pipe, err := pipeline.New("test", nil)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	rt := router.New([]router.Row{{SinkIndex: 0, Predicate: router.PredicateAlways}})
	return newPipelineWorker("test", processor.SchemeLegacy, split, pipe, aggregator.NewIdentity(), rt, []*queue.Queue{q}, map[string]string{"env": "prod"}, metrics.NewRegistry())
}

func TestPipelineWorkerAcceptEnqueuesWholeLines(t *testing.T) {
	q := queue.New(16)
	w := newTestWorker(t, q)

	backpressure := w.Accept(tailer.Range{Path: "/var/log/app.log", FileOffset: 0, Data: []byte("line one\nline two\n")})
	if backpressure {
		t.Fatal("unexpected backpressure")
	}

	item, ok := q.Pop()
	if !ok {
		t.Fatal("expected an item in the queue")
	}
	if string(item.Payload) != "line one\n" {
		t.Fatalf("unexpected first payload: %q", item.Payload)
	}
	item2, ok := q.Pop()
	if !ok {
		t.Fatal("expected a second item in the queue")
	}
	if string(item2.Payload) != "line two\n" {
		t.Fatalf("unexpected second payload: %q", item2.Payload)
	}
}

func TestPipelineWorkerHoldsPartialTrailingLine(t *testing.T) {
	q := queue.New(16)
	w := newTestWorker(t, q)

	w.Accept(tailer.Range{Path: "/var/log/app.log", FileOffset: 0, Data: []byte("line one\npartial")})
	if _, ok := q.Pop(); !ok {
		t.Fatal("expected the complete first line to be enqueued")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("the partial trailing chunk must not be enqueued yet")
	}

	w.Accept(tailer.Range{Path: "/var/log/app.log", FileOffset: 16, Data: []byte(" line\n")})
	item, ok := q.Pop()
	if !ok {
		t.Fatal("expected the now-complete line to be enqueued")
	}
	if string(item.Payload) != "partial line\n" {
		t.Fatalf("unexpected merged payload: %q", item.Payload)
	}
}

func TestPipelineWorkerRecordsMetrics(t *testing.T) {
	q := queue.New(16)
	reg := metrics.NewRegistry()
	split, err := splitter.New(splitter.Config{Mode: splitter.ModeWholeLine})
	if err != nil {
		t.Fatalf("splitter.New: %v", err)
	}
	pipe, err := pipeline.New("test", nil)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	rt := router.New([]router.Row{{SinkIndex: 0, Predicate: router.PredicateAlways}})
	w := newPipelineWorker("test", processor.SchemeLegacy, split, pipe, aggregator.NewIdentity(), rt, []*queue.Queue{q}, nil, reg)

	w.Accept(tailer.Range{Path: "/var/log/app.log", FileOffset: 0, Data: []byte("line one\nline two\n")})

	if got := reg.Counter("test.records_read").Value(); got != 2 {
		t.Fatalf("expected 2 records_read, got %d", got)
	}
	if got := reg.Counter("test.records_routed").Value(); got != 2 {
		t.Fatalf("expected 2 records_routed, got %d", got)
	}
	if got := reg.Counter("test.records_dropped").Value(); got != 0 {
		t.Fatalf("expected 0 records_dropped, got %d", got)
	}
}

func TestPipelineWorkerReturnsBackpressureWhenQueueFull(t *testing.T) {
	q := queue.New(1)
	w := newTestWorker(t, q)
	q.TryPush(&queue.Item{Payload: []byte("filler")}) // fill capacity

	backpressure := w.Accept(tailer.Range{Path: "/x.log", FileOffset: 0, Data: []byte("a line\n")})
	if !backpressure {
		t.Fatal("expected backpressure when the destination queue is full")
	}
}
