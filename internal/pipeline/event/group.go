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

// Package event defines the shared record shape that flows from the
// splitter through the parsing pipeline, router, and sender queues.
package event

import "time"

// Kind is the homogeneous event type carried by a Group.
type Kind int

const (
	KindLog Kind = iota
	KindMetric
	KindSpan
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindMetric:
		return "metric"
	case KindSpan:
		return "span"
	default:
		return "unknown"
	}
}

// Field is one key/value pair in a record's ordered field map. Values are
// plain strings rather than zero-copy views into a shared arena: this repo
// favors the simpler, GC-safe idiom over the slab/arena discipline, since
// nothing downstream needs sub-microsecond per-record allocation avoidance
// badly enough to justify the unsafe-string aliasing it would require.
type Field struct {
	Key   string
	Value string
}

// Event is one log record, metric sample, or span within a Group.
type Event struct {
	Fields    []Field
	Time      time.Time
	NanosSet  bool // true when Time carries sub-second precision worth preserving on the wire
	RawOffset int64 // source-file byte offset this event was read from, when known
}

// Get returns the value of the named field and whether it was present.
func (e *Event) Get(key string) (string, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Set overwrites an existing field or appends a new one.
func (e *Event) Set(key, value string) {
	for i := range e.Fields {
		if e.Fields[i].Key == key {
			e.Fields[i].Value = value
			return
		}
	}
	e.Fields = append(e.Fields, Field{Key: key, Value: value})
}

// Delete removes a field by key, if present.
func (e *Event) Delete(key string) {
	for i := range e.Fields {
		if e.Fields[i].Key == key {
			e.Fields = append(e.Fields[:i], e.Fields[i+1:]...)
			return
		}
	}
}

// Group is a set of events sharing one tag map, read from one source in
// one tick (spec's "Event group").
type Group struct {
	Kind Kind
	Tags map[string]string // e.g. __path__, host.name -- see processor.TagScheme
	Meta map[string]string // source path, topic, pack-id
	Events []Event
}

// NewGroup constructs an empty Group of the given kind.
func NewGroup(kind Kind) *Group {
	return &Group{
		Kind: kind,
		Tags: make(map[string]string),
		Meta: make(map[string]string),
	}
}

// Clone returns a deep-enough copy safe for a second sink to hold
// independently: per spec.md §4.7, sinks that receive a shared group must
// not mutate it, so the router hands out the same *Group to every matching
// sink and only processors that need to mutate call Clone first.
func (g *Group) Clone() *Group {
	cp := &Group{Kind: g.Kind, Tags: make(map[string]string, len(g.Tags)), Meta: make(map[string]string, len(g.Meta))}
	for k, v := range g.Tags {
		cp.Tags[k] = v
	}
	for k, v := range g.Meta {
		cp.Meta[k] = v
	}
	cp.Events = make([]Event, len(g.Events))
	for i, e := range g.Events {
		ev := Event{Time: e.Time, NanosSet: e.NanosSet, RawOffset: e.RawOffset}
		ev.Fields = append([]Field(nil), e.Fields...)
		cp.Events[i] = ev
	}
	return cp
}
