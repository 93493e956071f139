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

// Package router computes, for each event group, the set of destination
// sink indices (spec.md §4.7).
package router

import "github.com/esteban-alvarez/logtrail-agent/internal/pipeline/event"

// PredicateKind selects how a Row decides whether its sink receives a
// group.
type PredicateKind int

const (
	// PredicateAlways: the sink receives every group, no predicate.
	PredicateAlways PredicateKind = iota
	// PredicateEventType: match on the group's homogeneous event Kind.
	PredicateEventType
	// PredicateTag: exact-string comparison of a named tag against a
	// constant.
	PredicateTag
)

// Row is one (sink_index, predicate) entry in the router's fixed table.
type Row struct {
	SinkIndex int
	Predicate PredicateKind

	// EventType is used when Predicate == PredicateEventType.
	EventType event.Kind

	// TagKey/TagValue are used when Predicate == PredicateTag.
	TagKey   string
	TagValue string
}

func (r Row) matches(g *event.Group) bool {
	switch r.Predicate {
	case PredicateAlways:
		return true
	case PredicateEventType:
		return g.Kind == r.EventType
	case PredicateTag:
		v, ok := g.Tags[r.TagKey]
		return ok && v == r.TagValue
	default:
		return false
	}
}

// Router is a fixed table of rows, built once at pipeline construction.
// Evaluating a group is O(len(rows)); per spec.md §4.7 every matching
// sink receives a reference to the same group, never a private copy, and
// callers that fan out to more than one matching sink must Clone before
// letting any of them mutate it.
type Router struct {
	rows []Row
}

// New constructs a Router from a fixed row table.
func New(rows []Row) *Router {
	return &Router{rows: append([]Row(nil), rows...)}
}

// Route returns the sink indices that g matches, in row order. Duplicate
// sink indices (more than one matching row for the same sink) are
// collapsed to a single entry.
func (r *Router) Route(g *event.Group) []int {
	var sinks []int
	seen := make(map[int]struct{}, len(r.rows))
	for _, row := range r.rows {
		if _, dup := seen[row.SinkIndex]; dup {
			continue
		}
		if row.matches(g) {
			sinks = append(sinks, row.SinkIndex)
			seen[row.SinkIndex] = struct{}{}
		}
	}
	return sinks
}

// Rows returns the router's row table (read-only use).
func (r *Router) Rows() []Row { return r.rows }
