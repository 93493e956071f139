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

package aggregator

import (
	"testing"
	"time"

	"github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"
)

func newGroup(path string, n int) *event.Group {
	g := event.NewGroup(event.KindLog)
	g.Tags["__path__"] = path
	for i := 0; i < n; i++ {
		g.Events = append(g.Events, event.Event{})
	}
	return g
}

func TestIdentityPassesThrough(t *testing.T) {
	var a Identity
	g := newGroup("/var/log/app.log", 3)
	out := a.Add(g)
	if len(out) != 1 || out[0] != g {
		t.Fatalf("expected identity to pass the same group through, got %+v", out)
	}
}

func TestCountBasedFlushesAtCountThreshold(t *testing.T) {
	a := NewCountBased(Config{CountThreshold: 5})
	out := a.Add(newGroup("/a.log", 2))
	if len(out) != 0 {
		t.Fatalf("expected no flush yet, got %d", len(out))
	}
	out = a.Add(newGroup("/a.log", 3))
	if len(out) != 1 {
		t.Fatalf("expected one merged flush, got %d", len(out))
	}
	if len(out[0].Events) != 5 {
		t.Fatalf("expected 5 merged events, got %d", len(out[0].Events))
	}
}

func TestCountBasedFlushesAtTimeCap(t *testing.T) {
	cur := time.Unix(0, 0)
	a := NewCountBased(Config{
		CountThreshold: 1000,
		TimeCap:        time.Second,
		Now:            func() time.Time { return cur },
	})
	out := a.Add(newGroup("/a.log", 1))
	if len(out) != 0 {
		t.Fatalf("expected no flush yet, got %d", len(out))
	}
	cur = cur.Add(2 * time.Second)
	out = a.Add(newGroup("/b.log", 1))
	found := false
	for _, g := range out {
		if g.Tags["__path__"] == "/a.log" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected /a.log bucket to flush once its time cap elapsed, got %+v", out)
	}
}

func TestCountBasedKeepsBucketsSeparateByKey(t *testing.T) {
	a := NewCountBased(Config{CountThreshold: 2})
	out := a.Add(newGroup("/a.log", 1))
	out = append(out, a.Add(newGroup("/b.log", 1))...)
	if len(out) != 0 {
		t.Fatalf("different keys should not cross-trigger a flush, got %d", len(out))
	}
}

func TestFlushReleasesHeldBuckets(t *testing.T) {
	a := NewCountBased(Config{CountThreshold: 1000, TimeCap: time.Hour})
	a.Add(newGroup("/a.log", 1))
	a.Add(newGroup("/b.log", 2))
	out := a.Flush()
	if len(out) != 2 {
		t.Fatalf("expected both buckets released, got %d", len(out))
	}
}
